package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/eventflow/internal/compile"
	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/metric"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/modules/arithmetic"
	"github.com/vk/eventflow/modules/calendar"
	"github.com/vk/eventflow/modules/cast"
	"github.com/vk/eventflow/modules/window"
	"github.com/zclconf/go-cty/cty"
)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(context.Background(), opts...)
	require.NoError(t, err)
	return e
}

func sales(t *testing.T) *eventset.EventSet {
	t.Helper()
	es, err := eventset.FromArrays(
		[]float64{1, 2, 3, 4, 5},
		[]eventset.Feature{
			{Name: "store_id", Data: eventset.Int64s{0, 0, 0, 0, 0}},
			{Name: "sales", Data: eventset.Float64s{10, 0, 12, math.NaN(), 30}},
		},
		eventset.WithIndex("store_id"),
		eventset.WithUnixTimestamps(),
	)
	require.NoError(t, err)
	return es
}

func TestNew_RegistersCoreModules(t *testing.T) {
	e := newEngine(t)
	kinds := e.Registry().Kinds()
	for _, kind := range []string{arithmetic.KindAdd, cast.Kind, calendar.KindHour, window.KindSimpleMovingAverage} {
		assert.Contains(t, kinds, kind)
	}
}

func TestOperator_EagerAndSymbolic(t *testing.T) {
	e := newEngine(t)
	es := sales(t)
	add := e.MustOperator(arithmetic.KindAdd)
	assert.True(t, compile.IsCompiled(add))

	eager, err := add.CallArgs(context.Background(), compile.Args{
		Positional: []any{es},
		Keyword:    map[string]any{"value": 10.0},
	})
	require.NoError(t, err)
	got, ok := eager.(*eventset.EventSet)
	require.True(t, ok, "got %T", eager)
	assert.Equal(t, []string{"add_sales_10.0"}, got.Node().FeatureNames())
	d, ok := got.Get([]any{int64(0)})
	require.True(t, ok)
	if diff := cmp.Diff(eventset.Float64s{20, 10, 22, math.NaN(), 40}, d.Features[0], cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}

	symbolic, err := add.CallArgs(context.Background(), compile.Args{
		Keyword: map[string]any{"input": es.Node(), "value": 10.0},
	})
	require.NoError(t, err)
	n, ok := symbolic.(*node.Node)
	require.True(t, ok, "got %T", symbolic)
	assert.Equal(t, got.Node().Features(), n.Features())
}

func TestCompile_ChainedOperators(t *testing.T) {
	e := newEngine(t)
	es := sales(t)

	f := e.Compile("features", func(ctx context.Context, args compile.Args) (any, error) {
		in, err := args.Node(0, "input")
		if err != nil {
			return nil, err
		}
		sma, err := window.SimpleMovingAverage(in, 2, nil)
		if err != nil {
			return nil, err
		}
		day, err := calendar.DayOfWeek(in, time.UTC)
		if err != nil {
			return nil, err
		}
		asFloat, err := cast.Cast(day, dtype.Float64)
		if err != nil {
			return nil, err
		}
		return []*node.Node{sma, asFloat}, nil
	})

	res, err := f.Call(context.Background(), es)
	require.NoError(t, err)
	sets, ok := res.([]*eventset.EventSet)
	require.True(t, ok, "got %T", res)
	require.Len(t, sets, 2)

	d, _ := sets[0].Get([]any{int64(0)})
	if diff := cmp.Diff(eventset.Float64s{10, 5, 6, 12, 30}, d.Features[0], cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("moving average mismatch (-want +got):\n%s", diff)
	}
	// 1970-01-01 was a Thursday.
	d, _ = sets[1].Get([]any{int64(0)})
	assert.Equal(t, eventset.Float64s{3, 3, 3, 3, 3}, d.Features[0])
}

func TestOperator_Arguments(t *testing.T) {
	e := newEngine(t)
	es := sales(t)

	t.Run("calendar with fixed zone", func(t *testing.T) {
		res, err := e.MustOperator(calendar.KindHour).CallArgs(context.Background(), compile.Args{
			Positional: []any{es},
			Keyword:    map[string]any{"timezone": calendar.FixedZone(5)},
		})
		require.NoError(t, err)
		d, _ := res.(*eventset.EventSet).Get([]any{int64(0)})
		assert.Equal(t, eventset.Int64s{5, 5, 5, 5, 5}, d.Features[0])
	})

	t.Run("cast with per feature dtypes", func(t *testing.T) {
		res, err := e.MustOperator(cast.Kind).CallArgs(context.Background(), compile.Args{
			Positional: []any{es},
			Keyword:    map[string]any{"dtypes": map[string]dtype.DType{"sales": dtype.String}},
		})
		require.NoError(t, err)
		assert.Equal(t, dtype.String, res.(*eventset.EventSet).Node().Feature(0).DType)
	})

	t.Run("window with duration and optional sampling", func(t *testing.T) {
		res, err := e.MustOperator(window.KindSimpleMovingAverage).CallArgs(context.Background(), compile.Args{
			Positional: []any{es},
			Keyword:    map[string]any{"window_length": 2 * time.Second, "sampling": es},
		})
		require.NoError(t, err)
		assert.Same(t, es.Node().Sampling(), res.(*eventset.EventSet).Node().Sampling())
	})

	t.Run("errors", func(t *testing.T) {
		add := e.MustOperator(arithmetic.KindAdd)
		_, err := add.CallArgs(context.Background(), compile.Args{Positional: []any{es, es}})
		assert.ErrorContains(t, err, "takes 1 positional inputs")
		_, err = add.CallArgs(context.Background(), compile.Args{Positional: []any{es}, Keyword: map[string]any{"input": es}})
		assert.ErrorContains(t, err, "given twice")
		_, err = add.CallArgs(context.Background(), compile.Args{Positional: []any{es}})
		assert.ErrorContains(t, err, "missing required attribute 'value'")
		_, err = e.Operator("nope")
		assert.ErrorContains(t, err, "unknown operator kind")
		assert.Panics(t, func() { e.MustOperator("nope") })
	})
}

func TestToCtyValue(t *testing.T) {
	testCases := []struct {
		name string
		in   any
		want cty.Value
	}{
		{name: "int", in: 3, want: cty.NumberIntVal(3)},
		{name: "float", in: 2.5, want: cty.NumberFloatVal(2.5)},
		{name: "string", in: "a", want: cty.StringVal("a")},
		{name: "duration", in: 1500 * time.Millisecond, want: cty.NumberFloatVal(1.5)},
		{name: "dtype", in: dtype.Int64, want: cty.StringVal("int64")},
		{name: "iana zone", in: time.UTC, want: cty.StringVal("UTC")},
		{name: "fixed zone", in: calendar.FixedZone(-3), want: cty.NumberFloatVal(-3)},
		{name: "string list", in: []string{"a"}, want: cty.ListVal([]cty.Value{cty.StringVal("a")})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToCtyValue(tc.in)
			require.NoError(t, err)
			assert.True(t, tc.want.Equals(got).True(), "got %#v", got)
		})
	}
}

func TestEngine_Metrics(t *testing.T) {
	m := metric.NewMetrics(prometheus.NewRegistry())
	e := newEngine(t, WithMetrics(m))

	_, err := e.MustOperator(arithmetic.KindMultiply).CallArgs(context.Background(), compile.Args{
		Positional: []any{sales(t)},
		Keyword:    map[string]any{"value": 2.0},
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompiledCalls.WithLabelValues(arithmetic.KindMultiply, "eager")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("completed")))
}
