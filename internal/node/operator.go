package node

// Operator is the symbolic descriptor of a computation as seen from the
// graph: a kind, named inputs and outputs, and immutable attributes.
// Concrete operators live in the modules packages and embed operator.Base.
type Operator interface {
	// ID is the operator's creation handle.
	ID() uint64
	// Kind names the operator family member, e.g. "add_scalar".
	Kind() string
	// Inputs returns the named input nodes.
	Inputs() map[string]*Node
	// Outputs returns the named output nodes.
	Outputs() map[string]*Node
	// Attributes returns the operator parameters.
	Attributes() map[string]any
}
