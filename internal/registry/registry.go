package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/operator"
	"github.com/zclconf/go-cty/cty"
)

// Module is the interface that all operator modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// AttributeSpec describes one attribute accepted by an operator definition.
type AttributeSpec struct {
	// Type is the cty type the attribute is converted to. DynamicPseudoType
	// accepts any value and leaves the check to the builder.
	Type        cty.Type
	Required    bool
	Description string
}

// BuildFunc constructs a symbolic operator from its named input nodes and
// converted attribute values.
type BuildFunc func(inputs map[string]*node.Node, attrs map[string]cty.Value) (node.Operator, error)

// ImplementationFactory binds an executable implementation to an operator
// instance of the kind it was registered for.
type ImplementationFactory func(op node.Operator) (operator.Implementation, error)

// Definition is the pipeline-facing description of an operator kind.
type Definition struct {
	Kind           string
	Description    string
	Inputs         []string
	OptionalInputs []string
	Attributes     map[string]AttributeSpec
	Build          BuildFunc
}

// Registry holds the operator definitions and implementation factories for a
// single application instance.
type Registry struct {
	definitions     map[string]*Definition
	implementations map[string]ImplementationFactory
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		definitions:     make(map[string]*Definition),
		implementations: make(map[string]ImplementationFactory),
	}
}

// Register populates the registry from a list of modules.
func (r *Registry) Register(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// RegisterOperator registers the definition of an operator kind.
func (r *Registry) RegisterOperator(def *Definition) {
	if _, exists := r.definitions[def.Kind]; exists {
		panic(fmt.Sprintf("operator definition with kind '%s' already registered", def.Kind))
	}
	slog.Debug("Registering operator definition.", "kind", def.Kind)
	r.definitions[def.Kind] = def
}

// RegisterImplementation registers the implementation factory of an operator kind.
func (r *Registry) RegisterImplementation(kind string, factory ImplementationFactory) {
	if _, exists := r.implementations[kind]; exists {
		panic(fmt.Sprintf("implementation for kind '%s' already registered", kind))
	}
	slog.Debug("Registering operator implementation.", "kind", kind)
	r.implementations[kind] = factory
}

// Definition returns the definition of an operator kind.
func (r *Registry) Definition(kind string) (*Definition, bool) {
	def, ok := r.definitions[kind]
	return def, ok
}

// Kinds returns the registered operator kinds in sorted order.
func (r *Registry) Kinds() []string {
	return slices.Sorted(maps.Keys(r.definitions))
}

// Implementation creates the implementation bound to an operator.
func (r *Registry) Implementation(op node.Operator) (operator.Implementation, error) {
	factory, ok := r.implementations[op.Kind()]
	if !ok {
		return nil, fmt.Errorf("no implementation registered for operator kind '%s'", op.Kind())
	}
	impl, err := factory(op)
	if err != nil {
		return nil, fmt.Errorf("binding implementation for %s: %w", operator.String(op), err)
	}
	return impl, nil
}
