package calendar

import (
	"context"
	"fmt"

	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/operator"
)

// Implementation executes a calendar Operator.
type Implementation struct {
	op *Operator
}

// NewImplementation binds an implementation to a calendar operator.
func NewImplementation(op node.Operator) (operator.Implementation, error) {
	co, ok := op.(*Operator)
	if !ok {
		return nil, fmt.Errorf("expected *calendar.Operator, got %T", op)
	}
	return &Implementation{op: co}, nil
}

// Operator returns the bound operator.
func (i *Implementation) Operator() node.Operator { return i.op }

// Call computes the component at every timestamp of every index key.
func (i *Implementation) Call(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
	in, err := operator.InputSet(inputs, InputName)
	if err != nil {
		return nil, err
	}
	extract := components[i.op.Kind()].extract
	ctxlog.FromContext(ctx).Debug("Computing calendar component.", "kind", i.op.Kind(), "timezone", i.op.loc.String())

	out := eventset.New(i.op.Output(OutputName))
	for _, d := range in.Index() {
		values := make(eventset.Int64s, len(d.Timestamps))
		for j, ts := range d.Timestamps {
			values[j] = extract(unixTime(ts, i.op.loc))
		}
		if err := out.Set(&eventset.IndexData{Key: d.Key, Timestamps: d.Timestamps, Features: []eventset.Array{values}}); err != nil {
			return nil, fmt.Errorf("%w: %v", operator.ErrInvariant, err)
		}
	}
	return map[string]*eventset.EventSet{OutputName: out}, nil
}
