package arithmetic

import (
	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/operator"
	"github.com/vk/eventflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// AddScalar returns a node holding every feature of input plus value.
func AddScalar(input *node.Node, value any) (*node.Node, error) {
	return apply(KindAdd, input, value)
}

// SubtractScalar returns a node holding every feature of input minus value.
func SubtractScalar(input *node.Node, value any) (*node.Node, error) {
	return apply(KindSubtract, input, value)
}

// MultiplyScalar returns a node holding every feature of input times value.
func MultiplyScalar(input *node.Node, value any) (*node.Node, error) {
	return apply(KindMultiply, input, value)
}

// DivideScalar returns a node holding every float feature of input divided
// by value.
func DivideScalar(input *node.Node, value any) (*node.Node, error) {
	return apply(KindDivide, input, value)
}

// FloorDivideScalar returns a node holding every integer feature of input
// floor-divided by value.
func FloorDivideScalar(input *node.Node, value any) (*node.Node, error) {
	return apply(KindFloorDivide, input, value)
}

func apply(kind string, input *node.Node, value any) (*node.Node, error) {
	op, err := NewScalar(kind, input, value)
	if err != nil {
		return nil, err
	}
	return op.Output(OutputName), nil
}

// build creates a scalar operator from pipeline attributes. The operand
// dtype follows the input: whole numbers against float features are read
// as floats.
func build(kind string) registry.BuildFunc {
	return func(inputs map[string]*node.Node, attrs map[string]cty.Value) (node.Operator, error) {
		input := inputs[InputName]
		want := dtype.Float64
		if input.NumFeatures() > 0 && input.Feature(0).DType == dtype.Int64 {
			want = dtype.Int64
		}
		value, err := dtype.FromCty(attrs["value"], want)
		if err != nil {
			return nil, operator.SchemaErrorf(kind, "attribute 'value': %v", err)
		}
		return NewScalar(kind, input, value)
	}
}

// Register registers the scalar arithmetic operators with the engine.
func (m *Module) Register(r *registry.Registry) {
	for _, kind := range Kinds() {
		r.RegisterOperator(&registry.Definition{
			Kind:        kind,
			Description: kinds[kind].description,
			Inputs:      []string{InputName},
			Attributes: map[string]registry.AttributeSpec{
				"value": {Type: cty.Number, Required: true, Description: "Scalar operand."},
			},
			Build: build(kind),
		})
		r.RegisterImplementation(kind, NewImplementation)
	}
}
