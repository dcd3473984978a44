package arithmetic

import (
	"context"
	"fmt"

	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/operator"
	"gonum.org/v1/gonum/floats"
)

// Implementation executes a ScalarOperator.
type Implementation struct {
	op *ScalarOperator
}

// NewImplementation binds an implementation to a scalar operator.
func NewImplementation(op node.Operator) (operator.Implementation, error) {
	so, ok := op.(*ScalarOperator)
	if !ok {
		return nil, fmt.Errorf("expected *arithmetic.ScalarOperator, got %T", op)
	}
	return &Implementation{op: so}, nil
}

// Operator returns the bound operator.
func (i *Implementation) Operator() node.Operator { return i.op }

// Call applies the operation to every feature of every index key.
func (i *Implementation) Call(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
	in, err := operator.InputSet(inputs, InputName)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Applying scalar operation.", "kind", i.op.Kind(), "value", i.op.value, "index_keys", in.Len())

	out, err := operator.MapFeatures(in, i.op.Output(OutputName), func(_ int, arr eventset.Array) (eventset.Array, error) {
		switch a := arr.(type) {
		case eventset.Float64s:
			return applyFloat(i.op.Kind(), a, i.op.value.(float64)), nil
		case eventset.Int64s:
			return applyInt(i.op.Kind(), a, i.op.value.(int64)), nil
		default:
			return nil, fmt.Errorf("%w: unsupported array dtype %s", operator.ErrInvariant, arr.DType())
		}
	})
	if err != nil {
		return nil, err
	}
	return map[string]*eventset.EventSet{OutputName: out}, nil
}

// applyFloat returns a new array; NaN inputs stay NaN.
func applyFloat(kind string, in eventset.Float64s, v float64) eventset.Float64s {
	out := make(eventset.Float64s, len(in))
	copy(out, in)
	switch kind {
	case KindAdd:
		floats.AddConst(v, out)
	case KindSubtract:
		floats.AddConst(-v, out)
	case KindMultiply:
		floats.Scale(v, out)
	case KindDivide:
		for j := range out {
			out[j] /= v
		}
	}
	return out
}

func applyInt(kind string, in eventset.Int64s, v int64) eventset.Int64s {
	out := make(eventset.Int64s, len(in))
	for j, x := range in {
		switch kind {
		case KindAdd:
			out[j] = x + v
		case KindSubtract:
			out[j] = x - v
		case KindMultiply:
			out[j] = x * v
		case KindFloorDivide:
			out[j] = floorDiv(x, v)
		}
	}
	return out
}

// floorDiv rounds the quotient toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
