// Package operator defines the symbolic operator base shared by all operator
// kinds and the contract their executable implementations follow.
package operator

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/vk/eventflow/internal/node"
)

var (
	// ErrSchema is returned when an operator is constructed with inputs or
	// attributes its kind does not accept.
	ErrSchema = errors.New("invalid operator schema")
	// ErrInvariant is returned when an implementation receives or produces
	// data that does not match the operator's declared schema.
	ErrInvariant = errors.New("operator invariant violated")
)

// SchemaErrorf formats an error wrapping ErrSchema.
func SchemaErrorf(kind, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", kind, ErrSchema, fmt.Sprintf(format, args...))
}

// Base carries the identity, kind, inputs, outputs and attributes of an
// operator. Concrete operators embed it and fill it only from their
// constructor; after that it is read-only.
type Base struct {
	id      uint64
	kind    string
	inputs  map[string]*node.Node
	outputs map[string]*node.Node
	attrs   map[string]any
}

// NewBase returns an empty Base for the given kind with a fresh id.
func NewBase(kind string) Base {
	return Base{
		id:      node.NextID(),
		kind:    kind,
		inputs:  make(map[string]*node.Node),
		outputs: make(map[string]*node.Node),
		attrs:   make(map[string]any),
	}
}

func (b *Base) ID() uint64 { return b.id }
func (b *Base) Kind() string { return b.kind }

// Inputs returns a copy of the named inputs.
func (b *Base) Inputs() map[string]*node.Node { return maps.Clone(b.inputs) }

// Outputs returns a copy of the named outputs.
func (b *Base) Outputs() map[string]*node.Node { return maps.Clone(b.outputs) }

// Attributes returns a copy of the attributes.
func (b *Base) Attributes() map[string]any { return maps.Clone(b.attrs) }

// Input returns one named input, or nil.
func (b *Base) Input(name string) *node.Node { return b.inputs[name] }

// Output returns one named output, or nil.
func (b *Base) Output(name string) *node.Node { return b.outputs[name] }

// Attribute returns one attribute value, or nil.
func (b *Base) Attribute(name string) any { return b.attrs[name] }

// AddInput declares a named input.
func (b *Base) AddInput(name string, n *node.Node) {
	if _, dup := b.inputs[name]; dup {
		panic(fmt.Sprintf("operator %s: input %q already declared", b.kind, name))
	}
	b.inputs[name] = n
}

// AddOutput declares a named output. The node's creator must be the
// operator embedding this Base.
func (b *Base) AddOutput(name string, n *node.Node) {
	if _, dup := b.outputs[name]; dup {
		panic(fmt.Sprintf("operator %s: output %q already declared", b.kind, name))
	}
	b.outputs[name] = n
}

// SetAttribute records an operator parameter.
func (b *Base) SetAttribute(name string, value any) {
	b.attrs[name] = value
}

// InputNames returns the declared input names in sorted order.
func InputNames(op node.Operator) []string {
	return slices.Sorted(maps.Keys(op.Inputs()))
}

// OutputNames returns the declared output names in sorted order.
func OutputNames(op node.Operator) []string {
	return slices.Sorted(maps.Keys(op.Outputs()))
}

// String renders an operator for logs.
func String(op node.Operator) string {
	return fmt.Sprintf("%s[%d]", op.Kind(), op.ID())
}
