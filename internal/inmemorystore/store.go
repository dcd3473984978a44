package inmemorystore

import (
	"sync"
	"sync/atomic"

	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/nodeid"
)

// Status is the execution state of an operator within one evaluation.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Store keeps materialized EventSets keyed by node identity, and operator
// statuses and errors keyed by operator address.
//
// The store maintains three independent sync.Maps:
//   - results: *node.Node to *eventset.EventSet
//   - states: operator address string to Status
//   - errors: operator address string to the error of a failed operator
type Store struct {
	results sync.Map
	states  sync.Map
	errors  sync.Map
	count   atomic.Int64
}

// New creates a new, empty store.
func New() *Store {
	return &Store{}
}

// SetResult records the materialized data of a node.
func (s *Store) SetResult(n *node.Node, es *eventset.EventSet) {
	if _, loaded := s.results.Swap(n, es); !loaded {
		s.count.Add(1)
	}
}

// Result retrieves the materialized data of a node.
func (s *Store) Result(n *node.Node) (*eventset.EventSet, bool) {
	v, ok := s.results.Load(n)
	if !ok {
		return nil, false
	}
	return v.(*eventset.EventSet), true
}

// Len returns the number of materialized nodes.
func (s *Store) Len() int {
	return int(s.count.Load())
}

// SetStatus updates the execution status of an operator.
func (s *Store) SetStatus(id *nodeid.Address, status Status) {
	s.states.Store(id.String(), status)
}

// Status retrieves the execution status of an operator. If a status has not
// been set, it returns StatusPending.
func (s *Store) Status(id *nodeid.Address) Status {
	status, ok := s.states.Load(id.String())
	if !ok {
		return StatusPending
	}
	return status.(Status)
}

// SetError records the failure of an operator and marks it failed.
func (s *Store) SetError(id *nodeid.Address, err error) {
	s.errors.Store(id.String(), err)
	s.SetStatus(id, StatusFailed)
}

// Error retrieves the recorded error of a failed operator.
func (s *Store) Error(id *nodeid.Address) error {
	err, ok := s.errors.Load(id.String())
	if !ok {
		return nil
	}
	return err.(error)
}
