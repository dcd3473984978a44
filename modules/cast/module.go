package cast

import (
	"fmt"

	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Cast returns a node holding every feature of input converted to dtype to.
// Out of range float to int conversions fail at evaluation.
func Cast(input *node.Node, to dtype.DType) (*node.Node, error) {
	op, err := New(input, to, true)
	if err != nil {
		return nil, err
	}
	return op.Output(OutputName), nil
}

// CastFeatures converts the named features of input.
func CastFeatures(input *node.Node, targets map[string]dtype.DType, checkOverflow bool) (*node.Node, error) {
	op, err := NewPerFeature(input, targets, checkOverflow)
	if err != nil {
		return nil, err
	}
	return op.Output(OutputName), nil
}

func build(inputs map[string]*node.Node, attrs map[string]cty.Value) (node.Operator, error) {
	input := inputs[InputName]
	check := true
	if v, ok := attr(attrs, "check_overflow"); ok {
		check = v.True()
	}

	single, hasSingle := attr(attrs, "dtype")
	perFeature, hasPerFeature := attr(attrs, "dtypes")
	switch {
	case hasSingle && hasPerFeature:
		return nil, fmt.Errorf("%s: attributes 'dtype' and 'dtypes' are mutually exclusive", Kind)
	case hasSingle:
		to, err := dtype.Parse(single.AsString())
		if err != nil {
			return nil, fmt.Errorf("%s: attribute 'dtype': %w", Kind, err)
		}
		return New(input, to, check)
	case hasPerFeature:
		targets := make(map[string]dtype.DType, perFeature.LengthInt())
		for name, v := range perFeature.AsValueMap() {
			to, err := dtype.Parse(v.AsString())
			if err != nil {
				return nil, fmt.Errorf("%s: attribute 'dtypes', feature %q: %w", Kind, name, err)
			}
			targets[name] = to
		}
		return NewPerFeature(input, targets, check)
	default:
		return nil, fmt.Errorf("%s: one of the attributes 'dtype' or 'dtypes' is required", Kind)
	}
}

// attr returns a set, non-null attribute.
func attr(attrs map[string]cty.Value, name string) (cty.Value, bool) {
	v, ok := attrs[name]
	if !ok || v.IsNull() || !v.IsKnown() {
		return cty.NilVal, false
	}
	return v, true
}

// Register registers the cast operator with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterOperator(&registry.Definition{
		Kind:        Kind,
		Description: "Converts features to other dtypes.",
		Inputs:      []string{InputName},
		Attributes: map[string]registry.AttributeSpec{
			"dtype":          {Type: cty.String, Description: "Target dtype of every feature."},
			"dtypes":         {Type: cty.Map(cty.String), Description: "Target dtype per feature name."},
			"check_overflow": {Type: cty.Bool, Description: "Fail on values the target dtype cannot hold. Defaults to true."},
		},
		Build: build,
	})
	r.RegisterImplementation(Kind, NewImplementation)
}
