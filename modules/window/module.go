package window

import (
	"fmt"

	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// SimpleMovingAverage returns a node with the moving average of every
// feature of input. sampling may be nil.
func SimpleMovingAverage(input *node.Node, windowLength float64, sampling *node.Node) (*node.Node, error) {
	op, err := NewSimpleMovingAverage(input, windowLength, sampling)
	if err != nil {
		return nil, err
	}
	return op.Output(OutputName), nil
}

func build(inputs map[string]*node.Node, attrs map[string]cty.Value) (node.Operator, error) {
	v, err := dtype.FromCty(attrs["window_length"], dtype.Float64)
	if err != nil {
		return nil, fmt.Errorf("%s: attribute 'window_length': %w", KindSimpleMovingAverage, err)
	}
	return NewSimpleMovingAverage(inputs[InputName], v.(float64), inputs[SamplingName])
}

// Register registers the window operators with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterOperator(&registry.Definition{
		Kind:           KindSimpleMovingAverage,
		Description:    "Mean of each feature over a sliding time window, skipping missing values.",
		Inputs:         []string{InputName},
		OptionalInputs: []string{SamplingName},
		Attributes: map[string]registry.AttributeSpec{
			"window_length": {Type: cty.Number, Required: true, Description: "Window length in seconds."},
		},
		Build: build,
	})
	r.RegisterImplementation(KindSimpleMovingAverage, NewImplementation)
}
