// Package cast implements the cast operator, which converts features to other
// dtypes while keeping their names and the input sampling.
package cast

import (
	"maps"
	"slices"

	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/operator"
)

const Kind = "cast"

const (
	InputName  = "input"
	OutputName = "output"
)

// Operator converts each feature of its input to a target dtype.
type Operator struct {
	operator.Base
	targets       []dtype.DType
	checkOverflow bool
	reuse         bool
}

// New casts every feature of input to the same dtype.
func New(input *node.Node, to dtype.DType, checkOverflow bool) (*Operator, error) {
	if input == nil {
		return nil, operator.SchemaErrorf(Kind, "input is required")
	}
	targets := make(map[string]dtype.DType, input.NumFeatures())
	for _, f := range input.Features() {
		targets[f.Name] = to
	}
	return NewPerFeature(input, targets, checkOverflow)
}

// NewPerFeature casts the named features of input. Features not listed keep
// their dtype.
func NewPerFeature(input *node.Node, targets map[string]dtype.DType, checkOverflow bool) (*Operator, error) {
	if input == nil {
		return nil, operator.SchemaErrorf(Kind, "input is required")
	}
	names := make(map[string]bool, input.NumFeatures())
	for _, name := range input.FeatureNames() {
		names[name] = true
	}
	for _, name := range slices.Sorted(maps.Keys(targets)) {
		if !names[name] {
			return nil, operator.SchemaErrorf(Kind, "feature %q is not in the input; available features: %v", name, input.FeatureNames())
		}
		if _, ok := castable[targets[name]]; !ok {
			return nil, operator.SchemaErrorf(Kind, "feature %q: unsupported target dtype %s", name, targets[name])
		}
	}

	op := &Operator{Base: operator.NewBase(Kind), checkOverflow: checkOverflow, reuse: true}
	op.AddInput(InputName, input)

	out := make([]node.Feature, input.NumFeatures())
	attr := make(map[string]string, input.NumFeatures())
	for i, f := range input.Features() {
		to, ok := targets[f.Name]
		if !ok {
			to = f.DType
		}
		if to != f.DType {
			op.reuse = false
		}
		op.targets = append(op.targets, to)
		out[i] = node.Feature{Name: f.Name, DType: to}
		attr[f.Name] = to.String()
	}
	op.SetAttribute("dtypes", attr)
	op.SetAttribute("check_overflow", checkOverflow)
	op.AddOutput(OutputName, node.New(out, input.Sampling(), op))
	return op, nil
}

var castable = map[dtype.DType]bool{
	dtype.Int64:   true,
	dtype.Float64: true,
	dtype.String:  true,
	dtype.Bool:    true,
}

// Targets returns the target dtype of every input feature, in feature order.
func (o *Operator) Targets() []dtype.DType { return slices.Clone(o.targets) }

// CheckOverflow reports whether out of range conversions fail.
func (o *Operator) CheckOverflow() bool { return o.checkOverflow }

// Reuse reports whether no feature changes dtype, so the input data can be
// passed through as is.
func (o *Operator) Reuse() bool { return o.reuse }
