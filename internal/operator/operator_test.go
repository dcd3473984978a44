package operator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
)

// negate is a minimal operator used to exercise Run.
type negate struct {
	Base
}

func newNegate(in *node.Node) *negate {
	op := &negate{Base: NewBase("negate")}
	op.AddInput("input", in)
	op.AddOutput("output", node.New(in.Features(), in.Sampling(), op))
	return op
}

type negateImpl struct {
	op       *negate
	badShape bool
	panics   bool
}

func (i *negateImpl) Operator() node.Operator { return i.op }

func (i *negateImpl) Call(_ context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
	if i.panics {
		panic("index out of range")
	}
	in, err := InputSet(inputs, "input")
	if err != nil {
		return nil, err
	}
	out, err := MapFeatures(in, i.op.Output("output"), func(_ int, arr eventset.Array) (eventset.Array, error) {
		src := arr.(eventset.Float64s)
		dst := make(eventset.Float64s, len(src))
		for j, v := range src {
			dst[j] = -v
		}
		if i.badShape {
			dst = dst[:0]
		}
		return dst, nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]*eventset.EventSet{"output": out}, nil
}

func fixture(t *testing.T) *eventset.EventSet {
	t.Helper()
	es, err := eventset.FromArrays([]float64{1, 2}, []eventset.Feature{{Name: "x", Data: eventset.Float64s{1, 2}}})
	require.NoError(t, err)
	return es
}

func TestBase(t *testing.T) {
	in := node.NewInput([]node.Feature{{Name: "x", DType: dtype.Float64}}, nil, false)
	op := newNegate(in)
	op.SetAttribute("k", 1)

	assert.Equal(t, "negate", op.Kind())
	assert.Same(t, in, op.Input("input"))
	assert.Same(t, op, op.Output("output").Creator())
	assert.Equal(t, []string{"input"}, InputNames(op))
	assert.Equal(t, []string{"output"}, OutputNames(op))
	assert.Equal(t, 1, op.Attribute("k"))

	attrs := op.Attributes()
	attrs["k"] = 2
	assert.Equal(t, 1, op.Attribute("k"))

	assert.Panics(t, func() { op.AddInput("input", in) })
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	data := fixture(t)
	op := newNegate(data.Node())

	t.Run("success", func(t *testing.T) {
		out, err := Run(ctx, &negateImpl{op: op}, map[string]*eventset.EventSet{"input": data})
		require.NoError(t, err)
		d, ok := out["output"].Get(nil)
		require.True(t, ok)
		assert.Equal(t, eventset.Float64s{-1, -2}, d.Features[0])

		in, _ := data.Get(nil)
		assert.Equal(t, eventset.Float64s{1, 2}, in.Features[0], "input must not be mutated")
		assert.Same(t, &in.Timestamps[0], &d.Timestamps[0], "timestamps are shared")
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := Run(ctx, &negateImpl{op: op}, map[string]*eventset.EventSet{})
		assert.True(t, errors.Is(err, ErrInvariant))
	})

	t.Run("wrong input schema", func(t *testing.T) {
		other, err := eventset.FromArrays([]float64{1}, []eventset.Feature{{Name: "y", Data: eventset.Float64s{1}}})
		require.NoError(t, err)
		_, err = Run(ctx, &negateImpl{op: op}, map[string]*eventset.EventSet{"input": other})
		assert.ErrorIs(t, err, ErrInvariant)
	})

	t.Run("bad output shape", func(t *testing.T) {
		_, err := Run(ctx, &negateImpl{op: op, badShape: true}, map[string]*eventset.EventSet{"input": data})
		assert.ErrorIs(t, err, ErrInvariant)
	})

	t.Run("panic", func(t *testing.T) {
		_, err := Run(ctx, &negateImpl{op: op, panics: true}, map[string]*eventset.EventSet{"input": data})
		assert.ErrorIs(t, err, ErrInvariant)
		assert.Contains(t, err.Error(), "panic")
	})
}

func TestSchemaErrorf(t *testing.T) {
	err := SchemaErrorf("add_scalar", "feature %q is %s", "x", "string")
	assert.ErrorIs(t, err, ErrSchema)
	assert.Equal(t, `add_scalar: invalid operator schema: feature "x" is string`, err.Error())
}
