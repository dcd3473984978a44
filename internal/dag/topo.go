package dag

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.vertices)
}

// Has reports whether a node with the given ID exists.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.vertices[id]
	return ok
}

// Nodes returns all node IDs in sorted order.
func (g *Graph) Nodes() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return slices.Sorted(maps.Keys(g.vertices))
}

// TopologicalOrder returns every node ID such that each node comes after all
// of its dependencies. Ties are broken by the order function when given, and
// by ID otherwise, so the result is deterministic.
func (g *Graph) TopologicalOrder(less func(a, b string) int) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if less == nil {
		less = strings.Compare
	}

	pending := make(map[string]int, len(g.vertices))
	var ready []string
	for id, n := range g.vertices {
		pending[id] = len(n.deps)
		if len(n.deps) == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(g.vertices))
	for len(ready) > 0 {
		slices.SortFunc(ready, less)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for depID := range g.vertices[id].dependents {
			pending[depID]--
			if pending[depID] == 0 {
				ready = append(ready, depID)
			}
		}
	}

	if len(order) != len(g.vertices) {
		for _, id := range slices.Sorted(maps.Keys(pending)) {
			if pending[id] > 0 {
				return nil, fmt.Errorf("%w: involving %s", ErrCycle, id)
			}
		}
	}
	return order, nil
}
