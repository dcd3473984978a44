package window

import (
	"context"
	"fmt"
	"math"

	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/operator"
	"gonum.org/v1/gonum/floats"
)

// Implementation executes a MovingAverage operator.
type Implementation struct {
	op *MovingAverage
}

// NewImplementation binds an implementation to a moving average operator.
func NewImplementation(op node.Operator) (operator.Implementation, error) {
	ma, ok := op.(*MovingAverage)
	if !ok {
		return nil, fmt.Errorf("expected *window.MovingAverage, got %T", op)
	}
	return &Implementation{op: ma}, nil
}

// Operator returns the bound operator.
func (i *Implementation) Operator() node.Operator { return i.op }

// Call evaluates the window at every sampling timestamp. Index keys of the
// sampling missing from the input produce NaN values.
func (i *Implementation) Call(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
	in, err := operator.InputSet(inputs, InputName)
	if err != nil {
		return nil, err
	}
	sampling := in
	if i.op.hasSampling {
		if sampling, err = operator.InputSet(inputs, SamplingName); err != nil {
			return nil, err
		}
	}
	ctxlog.FromContext(ctx).Debug("Computing moving average.", "window_length", i.op.windowLength, "index_keys", sampling.Len())

	numFeatures := i.op.Output(OutputName).NumFeatures()
	out := eventset.New(i.op.Output(OutputName))
	for _, s := range sampling.Index() {
		od := &eventset.IndexData{Key: s.Key, Timestamps: s.Timestamps, Features: make([]eventset.Array, numFeatures)}
		src, ok := in.Get(s.Key)
		for f := range numFeatures {
			if !ok {
				od.Features[f] = missing(len(s.Timestamps))
				continue
			}
			od.Features[f] = MovingMean(src.Timestamps, toFloats(src.Features[f]), s.Timestamps, i.op.windowLength)
		}
		if err := out.Set(od); err != nil {
			return nil, fmt.Errorf("%w: %v", operator.ErrInvariant, err)
		}
	}
	return map[string]*eventset.EventSet{OutputName: out}, nil
}

// MovingMean returns, for every sampling timestamp t, the mean of the
// non-NaN values with timestamps in (t-window, t]. Windows without values
// give NaN. Both timestamp slices must be sorted.
func MovingMean(timestamps, values, sampling []float64, window float64) eventset.Float64s {
	present := make([]float64, len(values))
	clean := make([]float64, len(values))
	for j, v := range values {
		if !math.IsNaN(v) {
			present[j] = 1
			clean[j] = v
		}
	}
	// sums[k] and counts[k] cover the first k values.
	sums := make([]float64, len(values)+1)
	counts := make([]float64, len(values)+1)
	if len(values) > 0 {
		floats.CumSum(sums[1:], clean)
		floats.CumSum(counts[1:], present)
	}

	out := make(eventset.Float64s, len(sampling))
	lo, hi := 0, 0
	for j, t := range sampling {
		for hi < len(timestamps) && timestamps[hi] <= t {
			hi++
		}
		for lo < hi && timestamps[lo] <= t-window {
			lo++
		}
		n := counts[hi] - counts[lo]
		if n == 0 {
			out[j] = math.NaN()
			continue
		}
		out[j] = (sums[hi] - sums[lo]) / n
	}
	return out
}

func toFloats(arr eventset.Array) []float64 {
	switch a := arr.(type) {
	case eventset.Float64s:
		return a
	case eventset.Int64s:
		out := make([]float64, len(a))
		for j, v := range a {
			out[j] = float64(v)
		}
		return out
	default:
		out := make([]float64, arr.Len())
		for j := range out {
			out[j] = math.NaN()
		}
		return out
	}
}

func missing(n int) eventset.Float64s {
	out := make(eventset.Float64s, n)
	for j := range out {
		out[j] = math.NaN()
	}
	return out
}
