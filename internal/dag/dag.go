package dag

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		vertices: make(map[string]*vertex),
	}
}

// AddNode adds a vertex with the given ID. Adding an existing ID is a no-op.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.vertices[id]; ok {
		return
	}
	g.vertices[id] = &vertex{
		id:         id,
		deps:       make(map[string]*vertex),
		dependents: make(map[string]*vertex),
	}
}

// AddEdge records that toID depends on fromID. Both vertices must exist
// and must differ.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("%w: %s depends on itself", ErrCycle, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	from, ok := g.vertices[fromID]
	if !ok {
		return fmt.Errorf("source %w: %s", ErrUnknownVertex, fromID)
	}
	to, ok := g.vertices[toID]
	if !ok {
		return fmt.Errorf("destination %w: %s", ErrUnknownVertex, toID)
	}

	to.deps[fromID] = from
	from.dependents[toID] = to
	return nil
}

// Dependencies returns the sorted IDs the given vertex depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	v, ok := g.vertices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVertex, id)
	}
	return slices.Sorted(maps.Keys(v.deps)), nil
}

// Dependents returns the sorted IDs depending on the given vertex.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	v, ok := g.vertices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVertex, id)
	}
	return slices.Sorted(maps.Keys(v.dependents)), nil
}

// DetectCycles returns an error wrapping ErrCycle that spells out the first
// cycle found, e.g. "a -> b -> a". Vertices are visited in ID order so the
// reported cycle is stable.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	done := make(map[string]bool, len(g.vertices))
	onPath := make(map[string]int)
	var path []string

	var visit func(v *vertex) error
	visit = func(v *vertex) error {
		if done[v.id] {
			return nil
		}
		if start, ok := onPath[v.id]; ok {
			cycle := append(slices.Clone(path[start:]), v.id)
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
		}
		onPath[v.id] = len(path)
		path = append(path, v.id)
		for _, id := range slices.Sorted(maps.Keys(v.dependents)) {
			if err := visit(v.dependents[id]); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		delete(onPath, v.id)
		done[v.id] = true
		return nil
	}

	for _, id := range slices.Sorted(maps.Keys(g.vertices)) {
		if err := visit(g.vertices[id]); err != nil {
			return err
		}
	}
	return nil
}
