package registry

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/vk/eventflow/internal/node"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Build checks inputs and attributes against the definition of kind and
// constructs the operator.
func (r *Registry) Build(kind string, inputs map[string]*node.Node, attrs map[string]cty.Value) (node.Operator, error) {
	def, ok := r.definitions[kind]
	if !ok {
		return nil, fmt.Errorf("unknown operator kind '%s' (available: %s)", kind, strings.Join(r.Kinds(), ", "))
	}

	allowed := make(map[string]bool, len(def.Inputs)+len(def.OptionalInputs))
	for _, name := range def.Inputs {
		allowed[name] = true
		if inputs[name] == nil {
			return nil, fmt.Errorf("operator '%s': missing required input '%s'", kind, name)
		}
	}
	for _, name := range def.OptionalInputs {
		allowed[name] = true
	}
	for _, name := range slices.Sorted(maps.Keys(inputs)) {
		if !allowed[name] {
			return nil, fmt.Errorf("operator '%s': unexpected input '%s'", kind, name)
		}
	}

	converted := make(map[string]cty.Value, len(attrs))
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		spec, ok := def.Attributes[name]
		if !ok {
			return nil, fmt.Errorf("operator '%s': unsupported attribute '%s'", kind, name)
		}
		val := attrs[name]
		if !spec.Type.Equals(cty.DynamicPseudoType) {
			var err error
			val, err = convert.Convert(val, spec.Type)
			if err != nil {
				return nil, fmt.Errorf("operator '%s', attribute '%s': %w", kind, name, err)
			}
		}
		converted[name] = val
	}
	for _, name := range slices.Sorted(maps.Keys(def.Attributes)) {
		if _, ok := converted[name]; !ok && def.Attributes[name].Required {
			return nil, fmt.Errorf("operator '%s': missing required attribute '%s'", kind, name)
		}
	}

	return def.Build(inputs, converted)
}
