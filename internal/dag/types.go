package dag

import (
	"errors"
	"sync"
)

var (
	// ErrCycle is wrapped by errors reporting a dependency cycle.
	ErrCycle = errors.New("cycle detected")
	// ErrUnknownVertex is wrapped by errors naming a vertex not in the graph.
	ErrUnknownVertex = errors.New("vertex not found")
)

// Graph is a set of vertices and the dependencies between them. All
// operations on the graph are concurrency-safe.
type Graph struct {
	mutex    sync.RWMutex
	vertices map[string]*vertex
}

// vertex is un-exported so callers work with IDs only.
type vertex struct {
	id string
	// deps are the vertices this one depends on.
	deps map[string]*vertex
	// dependents are the vertices depending on this one.
	dependents map[string]*vertex
}
