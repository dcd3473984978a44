package compile

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/evaluator"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/metric"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/registry"
	"github.com/vk/eventflow/modules/arithmetic"
)

func sales(t *testing.T) *eventset.EventSet {
	t.Helper()
	es, err := eventset.FromArrays(
		[]float64{1, 2, 3, 4, 5},
		[]eventset.Feature{
			{Name: "store_id", Data: eventset.Int64s{0, 0, 0, 0, 0}},
			{Name: "sales", Data: eventset.Float64s{10, 0, 12, math.NaN(), 30}},
		},
		eventset.WithIndex("store_id"),
	)
	require.NoError(t, err)
	return es
}

func newEvaluator(t *testing.T) *evaluator.Evaluator {
	t.Helper()
	reg := registry.New()
	reg.Register(&arithmetic.Module{})
	return evaluator.New(reg)
}

// arithmeticFunc compiles a function returning the four scalar operations
// of its first argument.
func arithmeticFunc(ev Evaluator) *Func {
	return New("all_ops", func(ctx context.Context, args Args) (any, error) {
		in, err := args.Node(0, "input")
		if err != nil {
			return nil, err
		}
		out := map[string]*node.Node{}
		for name, fn := range map[string]func(*node.Node, any) (*node.Node, error){
			"add": arithmetic.AddScalar,
			"sub": arithmetic.SubtractScalar,
			"mul": arithmetic.MultiplyScalar,
			"div": arithmetic.DivideScalar,
		} {
			if out[name], err = fn(in, 10.0); err != nil {
				return nil, err
			}
		}
		return out, nil
	}, ev)
}

func TestClassify(t *testing.T) {
	es := sales(t)
	n := node.NewInput([]node.Feature{{Name: "x", DType: dtype.Float64}}, nil, false)

	t.Run("eventsets become nodes", func(t *testing.T) {
		bindings := eventset.Bindings{}
		out, mode, err := Classify(map[string]any{"a": []*eventset.EventSet{es}, "b": 3}, ModeUnset, bindings)
		require.NoError(t, err)
		assert.Equal(t, ModeEager, mode)
		assert.Equal(t, map[string]any{"a": []*node.Node{es.Node()}, "b": 3}, out)
		assert.Same(t, es, bindings[es.Node()])
	})

	t.Run("nodes keep symbolic mode", func(t *testing.T) {
		out, mode, err := Classify([]any{n, "x"}, ModeUnset, eventset.Bindings{})
		require.NoError(t, err)
		assert.Equal(t, ModeSymbolic, mode)
		assert.Equal(t, []any{n, "x"}, out)
	})

	t.Run("plain values leave mode unset", func(t *testing.T) {
		_, mode, err := Classify([]any{1, "a", (*node.Node)(nil)}, ModeUnset, eventset.Bindings{})
		require.NoError(t, err)
		assert.Equal(t, ModeUnset, mode)
	})

	testCases := []struct {
		name string
		in   any
		mode Mode
	}{
		{name: "node then eventset", in: []any{n, es}, mode: ModeUnset},
		{name: "eventset then node", in: []any{es, n}, mode: ModeUnset},
		{name: "node after eager", in: n, mode: ModeEager},
		{name: "eventset after symbolic", in: map[string]any{"k": es}, mode: ModeSymbolic},
	}
	for _, tc := range testCases {
		t.Run("mixed/"+tc.name, func(t *testing.T) {
			_, _, err := Classify(tc.in, tc.mode, eventset.Bindings{})
			assert.ErrorIs(t, err, ErrMixedModality)
		})
	}
}

func TestClassify_StopsAtFirstOppositeLeaf(t *testing.T) {
	es := sales(t)
	n := node.NewInput([]node.Feature{{Name: "x", DType: dtype.Float64}}, nil, false)

	testCases := []struct {
		name         string
		in           any
		wantMode     Mode
		wantBindings int
	}{
		{name: "eventset bound before node", in: []any{es, n, es}, wantMode: ModeEager, wantBindings: 1},
		{name: "node before eventset", in: []any{n, es}, wantMode: ModeSymbolic, wantBindings: 0},
		{name: "map keys in order", in: map[string]any{"a": es, "b": []*node.Node{n}}, wantMode: ModeEager, wantBindings: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bindings := eventset.Bindings{}
			out, mode, err := Classify(tc.in, ModeUnset, bindings)
			assert.Equal(t, ErrMixedModality, err)
			assert.Nil(t, out)
			assert.Equal(t, tc.wantMode, mode)
			assert.Len(t, bindings, tc.wantBindings)
		})
	}
}

func TestFunc_MixedModalityErrorUnwrapped(t *testing.T) {
	es := sales(t)
	n := node.NewInput([]node.Feature{{Name: "x", DType: dtype.Float64}}, nil, false)
	called := false
	f := New("pair", func(context.Context, Args) (any, error) {
		called = true
		return nil, nil
	}, stubEvaluator{})

	for _, args := range []Args{
		{Positional: []any{es, n}},
		{Positional: []any{n}, Keyword: map[string]any{"other": es}},
	} {
		_, err := f.CallArgs(context.Background(), args)
		assert.Equal(t, ErrMixedModality, err)
	}
	assert.False(t, called)
}

func TestClassify_RepeatedBinding(t *testing.T) {
	es := sales(t)
	same, err := eventset.FromArrays(
		[]float64{1, 2, 3, 4, 5},
		[]eventset.Feature{
			{Name: "store_id", Data: eventset.Int64s{0, 0, 0, 0, 0}},
			{Name: "sales", Data: eventset.Float64s{10, 0, 12, math.NaN(), 30}},
		},
		eventset.WithIndex("store_id"),
	)
	require.NoError(t, err)
	equalData, err := same.Relabel(es.Node())
	require.NoError(t, err)

	bindings := eventset.Bindings{}
	_, _, err = Classify([]any{es, es, equalData}, ModeUnset, bindings)
	require.NoError(t, err)
	assert.Same(t, es, bindings[es.Node()])

	other, err := eventset.FromArrays(
		[]float64{1, 2, 3, 4, 5},
		[]eventset.Feature{
			{Name: "store_id", Data: eventset.Int64s{0, 0, 0, 0, 0}},
			{Name: "sales", Data: eventset.Float64s{1, 1, 1, 1, 1}},
		},
		eventset.WithIndex("store_id"),
	)
	require.NoError(t, err)
	conflicting, err := other.Relabel(es.Node())
	require.NoError(t, err)
	_, _, err = Classify([]any{es, conflicting}, ModeUnset, eventset.Bindings{})
	assert.ErrorIs(t, err, ErrConflictingBinding)
}

func TestFunc_Eager(t *testing.T) {
	es := sales(t)
	f := arithmeticFunc(newEvaluator(t))

	res, err := f.Call(context.Background(), es)
	require.NoError(t, err)
	got, ok := res.(map[string]*eventset.EventSet)
	require.True(t, ok, "got %T", res)

	want := map[string]struct {
		name   string
		values eventset.Float64s
	}{
		"add": {"add_sales_10.0", eventset.Float64s{20, 10, 22, math.NaN(), 40}},
		"sub": {"sub_sales_10.0", eventset.Float64s{0, -10, 2, math.NaN(), 20}},
		"mul": {"mult_sales_10.0", eventset.Float64s{100, 0, 120, math.NaN(), 300}},
		"div": {"div_sales_10.0", eventset.Float64s{1, 0, 1.2, math.NaN(), 3}},
	}
	for key, w := range want {
		out := got[key]
		require.NotNil(t, out, key)
		assert.Equal(t, []string{w.name}, out.Node().FeatureNames())
		d, ok := out.Get([]any{int64(0)})
		require.True(t, ok)
		assert.Equal(t, []float64{1, 2, 3, 4, 5}, d.Timestamps)
		if diff := cmp.Diff(w.values, d.Features[0], cmpopts.EquateNaNs()); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", key, diff)
		}
	}
}

func TestFunc_ModeTransparency(t *testing.T) {
	es := sales(t)
	ev := newEvaluator(t)
	f := arithmeticFunc(ev)

	eager, err := f.Call(context.Background(), es)
	require.NoError(t, err)

	symbolic, err := f.Call(context.Background(), es.Node())
	require.NoError(t, err)
	nodes, ok := symbolic.(map[string]*node.Node)
	require.True(t, ok, "got %T", symbolic)

	evaluated, err := ev.Evaluate(context.Background(), nodes, eventset.Bindings{es.Node(): es})
	require.NoError(t, err)

	eagerSets := eager.(map[string]*eventset.EventSet)
	for key, es := range evaluated.(map[string]*eventset.EventSet) {
		assert.True(t, eventset.Equal(eagerSets[key], es), key)
	}
}

func TestFunc_KeywordArguments(t *testing.T) {
	es := sales(t)
	f := arithmeticFunc(newEvaluator(t))

	res, err := f.CallArgs(context.Background(), Args{Keyword: map[string]any{"input": es}})
	require.NoError(t, err)
	assert.Len(t, res.(map[string]*eventset.EventSet), 4)

	n := node.NewInput([]node.Feature{{Name: "x", DType: dtype.Float64}}, nil, false)
	_, err = f.CallArgs(context.Background(), Args{Positional: []any{n}, Keyword: map[string]any{"other": es}})
	assert.ErrorIs(t, err, ErrMixedModality)
}

type stubEvaluator struct{ err error }

func (s stubEvaluator) Evaluate(context.Context, any, eventset.Bindings) (any, error) {
	return nil, s.err
}

func TestFunc_Errors(t *testing.T) {
	es := sales(t)
	boom := errors.New("boom")

	t.Run("graph function error propagates", func(t *testing.T) {
		f := New("fail", func(context.Context, Args) (any, error) { return nil, boom }, nil)
		_, err := f.Call(context.Background(), es)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("evaluator error propagates", func(t *testing.T) {
		f := New("id", func(_ context.Context, a Args) (any, error) { return a.Positional[0], nil }, stubEvaluator{err: boom})
		_, err := f.Call(context.Background(), es)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("eager without evaluator", func(t *testing.T) {
		f := New("id", func(_ context.Context, a Args) (any, error) { return a.Positional[0], nil }, nil)
		_, err := f.Call(context.Background(), es)
		assert.ErrorContains(t, err, "requires an evaluator")
	})

	t.Run("schema error propagates", func(t *testing.T) {
		f := New("add_int", func(_ context.Context, a Args) (any, error) {
			in, err := a.Node(0, "input")
			if err != nil {
				return nil, err
			}
			return arithmetic.AddScalar(in, int64(1))
		}, newEvaluator(t))
		_, err := f.Call(context.Background(), es)
		assert.ErrorContains(t, err, "invalid operator schema")
	})

	t.Run("unset mode returns output unchanged", func(t *testing.T) {
		f := New("const", func(context.Context, Args) (any, error) { return 42, nil }, stubEvaluator{err: boom})
		got, err := f.Call(context.Background(), 1, "a")
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})
}

func TestFunc_Metrics(t *testing.T) {
	m := metric.NewMetrics(prometheus.NewRegistry())
	f := New("noop", func(context.Context, Args) (any, error) { return nil, nil }, nil, WithMetrics(m))
	n := node.NewInput([]node.Feature{{Name: "x", DType: dtype.Float64}}, nil, false)

	_, err := f.Call(context.Background(), n)
	require.NoError(t, err)
	_, err = f.Call(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompiledCalls.WithLabelValues("noop", "symbolic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompiledCalls.WithLabelValues("noop", "unset")))
}

func TestIsCompiled(t *testing.T) {
	f := New("noop", func(context.Context, Args) (any, error) { return nil, nil }, nil)
	assert.True(t, IsCompiled(f))
	assert.False(t, IsCompiled((*Func)(nil)))
	assert.False(t, IsCompiled(func() {}))
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "unset", ModeUnset.String())
	assert.Equal(t, "eager", ModeEager.String())
	assert.Equal(t, "symbolic", ModeSymbolic.String())
	assert.Equal(t, "Mode(7)", Mode(7).String())
}
