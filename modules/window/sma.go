// Package window implements moving window operators. A window of length w
// evaluated at time t covers the input events with timestamps in (t-w, t].
package window

import (
	"math"

	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/operator"
)

const KindSimpleMovingAverage = "simple_moving_average"

const (
	InputName    = "input"
	SamplingName = "sampling"
	OutputName   = "output"
)

// MovingAverage computes the mean of each feature over a sliding window.
type MovingAverage struct {
	operator.Base
	windowLength float64
	hasSampling  bool
}

// NewSimpleMovingAverage builds a moving average over windowLength seconds.
// The output is sampled like sampling when it is not nil, and like input
// otherwise. All input features must be numeric; outputs are float64 and
// keep the input feature names.
func NewSimpleMovingAverage(input *node.Node, windowLength float64, sampling *node.Node) (*MovingAverage, error) {
	kind := KindSimpleMovingAverage
	if input == nil {
		return nil, operator.SchemaErrorf(kind, "input is required")
	}
	if math.IsNaN(windowLength) || math.IsInf(windowLength, 0) || windowLength <= 0 {
		return nil, operator.SchemaErrorf(kind, "window_length must be a strictly positive number, got %v", windowLength)
	}
	for _, f := range input.Features() {
		if !f.DType.IsNumeric() {
			return nil, operator.SchemaErrorf(kind, "feature %q has non-numeric dtype %s", f.Name, f.DType)
		}
	}

	op := &MovingAverage{Base: operator.NewBase(kind), windowLength: windowLength}
	op.AddInput(InputName, input)
	outSampling := input.Sampling()
	if sampling != nil {
		if err := input.Sampling().CheckSameIndex(sampling.Sampling(), "input and sampling"); err != nil {
			return nil, operator.SchemaErrorf(kind, "%v", err)
		}
		op.AddInput(SamplingName, sampling)
		op.hasSampling = true
		outSampling = sampling.Sampling()
	}
	op.SetAttribute("window_length", windowLength)

	out := make([]node.Feature, input.NumFeatures())
	for i, f := range input.Features() {
		out[i] = node.Feature{Name: f.Name, DType: dtype.Float64}
	}
	op.AddOutput(OutputName, node.New(out, outSampling, op))
	return op, nil
}

// WindowLength returns the window length in seconds.
func (o *MovingAverage) WindowLength() float64 { return o.windowLength }

// HasSampling reports whether the operator has an explicit sampling input.
func (o *MovingAverage) HasSampling() bool { return o.hasSampling }
