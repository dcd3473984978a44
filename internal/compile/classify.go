package compile

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/shape"
)

var (
	// ErrMixedModality is returned when one call receives both EventSets and
	// Nodes.
	ErrMixedModality = errors.New("cannot mix EventSets and Nodes as inputs to a single call")
	// ErrConflictingBinding is returned when one node is bound to two
	// EventSets holding different data.
	ErrConflictingBinding = errors.New("conflicting binding")
)

var (
	nodeType     = reflect.TypeOf((*node.Node)(nil))
	eventSetType = reflect.TypeOf((*eventset.EventSet)(nil))
)

// Mode is the execution mode a call resolves to.
type Mode int

const (
	// ModeUnset means no Node or EventSet has been seen yet.
	ModeUnset Mode = iota
	// ModeEager means the call received EventSets and is evaluated now.
	ModeEager
	// ModeSymbolic means the call received Nodes and only builds the graph.
	ModeSymbolic
)

func (m Mode) String() string {
	switch m {
	case ModeUnset:
		return "unset"
	case ModeEager:
		return "eager"
	case ModeSymbolic:
		return "symbolic"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) with(next Mode) (Mode, error) {
	if m != ModeUnset && m != next {
		return m, ErrMixedModality
	}
	return next, nil
}

// Classify normalizes an argument tree: every EventSet is replaced by its
// node and recorded in bindings, nodes and other values are kept. Containers
// are copied, with element type *EventSet becoming *Node. mode is the mode
// resolved by earlier arguments of the same call; the returned mode also
// accounts for v. Leaves are visited once, depth-first, and classification
// stops at the first leaf whose modality contradicts the mode so far.
func Classify(v any, mode Mode, bindings eventset.Bindings) (any, Mode, error) {
	symbolic := func(leaf reflect.Value) error {
		if leaf.IsNil() {
			return nil
		}
		next, err := mode.with(ModeSymbolic)
		if err != nil {
			return err
		}
		mode = next
		return nil
	}
	eager := func(leaf reflect.Value) (reflect.Value, error) {
		es := leaf.Interface().(*eventset.EventSet)
		if es == nil {
			return reflect.Zero(nodeType), nil
		}
		next, err := mode.with(ModeEager)
		if err != nil {
			return reflect.Value{}, err
		}
		mode = next
		if err := bind(bindings, es); err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(es.Node()), nil
	}

	out, err := shape.Map(v, eventSetType, nodeType, eager, shape.Observe(nodeType, symbolic))
	if err != nil {
		return nil, mode, err
	}
	return out, mode, nil
}

func bind(bindings eventset.Bindings, es *eventset.EventSet) error {
	n := es.Node()
	prev, ok := bindings[n]
	if !ok {
		bindings[n] = es
		return nil
	}
	if prev != es && !eventset.Equal(prev, es) {
		return fmt.Errorf("%w: node %s is bound to two different EventSets", ErrConflictingBinding, n)
	}
	return nil
}
