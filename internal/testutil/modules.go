package testutil

import (
	"context"

	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/operator"
	"github.com/vk/eventflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// SplitKind is the operator kind registered by SplitModule.
const SplitKind = "split"

// SplitModule registers a test operator with two outputs, "left" and
// "right", each forwarding its single input unchanged.
type SplitModule struct{}

type split struct {
	operator.Base
}

func newSplit(input *node.Node) *split {
	op := &split{Base: operator.NewBase(SplitKind)}
	op.AddInput("input", input)
	op.AddOutput("left", node.New(input.Features(), input.Sampling(), op))
	op.AddOutput("right", node.New(input.Features(), input.Sampling(), op))
	return op
}

type splitImpl struct{ op *split }

func (i *splitImpl) Operator() node.Operator { return i.op }

func (i *splitImpl) Call(_ context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
	in, err := operator.InputSet(inputs, "input")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*eventset.EventSet, 2)
	for name, n := range i.op.Outputs() {
		if out[name], err = in.Relabel(n); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Register implements the registry.Module interface.
func (m *SplitModule) Register(r *registry.Registry) {
	r.RegisterOperator(&registry.Definition{
		Kind:        SplitKind,
		Description: "Forwards its input to two outputs.",
		Inputs:      []string{"input"},
		Attributes:  map[string]registry.AttributeSpec{},
		Build: func(inputs map[string]*node.Node, _ map[string]cty.Value) (node.Operator, error) {
			return newSplit(inputs["input"]), nil
		},
	})
	r.RegisterImplementation(SplitKind, func(op node.Operator) (operator.Implementation, error) {
		return &splitImpl{op: op.(*split)}, nil
	})
}
