// Package arithmetic implements the scalar arithmetic operators: every feature
// of the input is combined elementwise with one scalar operand.
package arithmetic

import (
	"math"
	"strconv"
	"strings"

	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/operator"
)

const (
	KindAdd         = "add_scalar"
	KindSubtract    = "subtract_scalar"
	KindMultiply    = "multiply_scalar"
	KindDivide      = "divide_scalar"
	KindFloorDivide = "floordiv_scalar"
)

// Input and output names of every scalar operator.
const (
	InputName  = "input"
	OutputName = "output"
)

type kindInfo struct {
	prefix      string
	description string
}

var kinds = map[string]kindInfo{
	KindAdd:         {prefix: "add", description: "Adds a scalar to every feature."},
	KindSubtract:    {prefix: "sub", description: "Subtracts a scalar from every feature."},
	KindMultiply:    {prefix: "mult", description: "Multiplies every feature by a scalar."},
	KindDivide:      {prefix: "div", description: "Divides every float feature by a scalar."},
	KindFloorDivide: {prefix: "floordiv", description: "Floor-divides every integer feature by a non-zero scalar."},
}

// Kinds returns the operator kinds of the family.
func Kinds() []string {
	return []string{KindAdd, KindSubtract, KindMultiply, KindDivide, KindFloorDivide}
}

// ScalarOperator combines every feature of its input with a scalar.
type ScalarOperator struct {
	operator.Base
	value any
	dtype dtype.DType
}

// NewScalar builds a scalar operator of the given kind. The operand must be
// an int or float whose dtype equals the dtype of every input feature.
func NewScalar(kind string, input *node.Node, value any) (*ScalarOperator, error) {
	info, ok := kinds[kind]
	if !ok {
		return nil, operator.SchemaErrorf(kind, "not a scalar arithmetic operator")
	}
	if input == nil {
		return nil, operator.SchemaErrorf(kind, "input is required")
	}
	norm, vt, err := dtype.Normalize(value)
	if err != nil {
		return nil, operator.SchemaErrorf(kind, "operand: %v", err)
	}
	if !vt.IsNumeric() {
		return nil, operator.SchemaErrorf(kind, "operand %v has non-numeric dtype %s", value, vt)
	}

	for _, f := range input.Features() {
		if !f.DType.IsNumeric() {
			return nil, operator.SchemaErrorf(kind, "feature %q has non-numeric dtype %s", f.Name, f.DType)
		}
		if f.DType != vt {
			return nil, operator.SchemaErrorf(kind, "operand %v has dtype %s but feature %q has dtype %s; cast one of them first", value, vt, f.Name, f.DType)
		}
		if kind == KindDivide && f.DType != dtype.Float64 {
			return nil, operator.SchemaErrorf(kind, "cannot divide feature %q of dtype %s; cast it to float64 or use %s", f.Name, f.DType, KindFloorDivide)
		}
		if kind == KindFloorDivide && f.DType != dtype.Int64 {
			return nil, operator.SchemaErrorf(kind, "feature %q has dtype %s, expected int64", f.Name, f.DType)
		}
	}
	if kind == KindFloorDivide && norm == int64(0) {
		return nil, operator.SchemaErrorf(kind, "division by zero")
	}

	op := &ScalarOperator{Base: operator.NewBase(kind), value: norm, dtype: vt}
	op.AddInput(InputName, input)
	op.SetAttribute("value", norm)

	out := make([]node.Feature, input.NumFeatures())
	for i, f := range input.Features() {
		out[i] = node.Feature{Name: FeatureName(info.prefix, f.Name, norm), DType: f.DType}
	}
	op.AddOutput(OutputName, node.New(out, input.Sampling(), op))
	return op, nil
}

// Value returns the normalized operand (int64 or float64).
func (o *ScalarOperator) Value() any { return o.value }

// FeatureName derives an output feature name from the operation prefix, the
// input feature name and the operand.
func FeatureName(prefix, feature string, value any) string {
	return prefix + "_" + feature + "_" + formatOperand(value)
}

func formatOperand(value any) string {
	switch v := value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		format := byte('f')
		if math.Abs(v) >= 1e16 {
			format = 'g'
		}
		s := strconv.FormatFloat(v, format, -1, 64)
		if !math.IsInf(v, 0) && !math.IsNaN(v) && !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s
	default:
		return ""
	}
}
