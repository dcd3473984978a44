package cast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/operator"
)

var (
	// ErrOverflow is returned when a checked cast meets a value the target
	// dtype cannot represent.
	ErrOverflow = errors.New("overflow")
	// ErrParse is returned when a string value cannot be read as the target
	// dtype.
	ErrParse = errors.New("cannot parse value")
)

// Implementation executes a cast Operator.
type Implementation struct {
	op *Operator
}

// NewImplementation binds an implementation to a cast operator.
func NewImplementation(op node.Operator) (operator.Implementation, error) {
	co, ok := op.(*Operator)
	if !ok {
		return nil, fmt.Errorf("expected *cast.Operator, got %T", op)
	}
	return &Implementation{op: co}, nil
}

// Operator returns the bound operator.
func (i *Implementation) Operator() node.Operator { return i.op }

// Call converts every feature whose dtype changes. Arrays already of the
// target dtype are shared with the input.
func (i *Implementation) Call(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
	in, err := operator.InputSet(inputs, InputName)
	if err != nil {
		return nil, err
	}
	out := i.op.Output(OutputName)
	if i.op.reuse {
		ctxlog.FromContext(ctx).Debug("No feature changes dtype, reusing input data.")
		res, err := in.Relabel(out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", operator.ErrInvariant, err)
		}
		return map[string]*eventset.EventSet{OutputName: res}, nil
	}

	res, err := operator.MapFeatures(in, out, func(f int, arr eventset.Array) (eventset.Array, error) {
		return Convert(arr, i.op.targets[f], i.op.checkOverflow)
	})
	if err != nil {
		return nil, err
	}
	return map[string]*eventset.EventSet{OutputName: res}, nil
}

// Convert returns arr converted to dtype to. Missing floats and strings map
// to the missing value of the target when it has one. When checkOverflow is
// set, float values that are NaN or outside the int64 range fail the cast
// to int64; otherwise NaN becomes 0 and the value saturates.
func Convert(arr eventset.Array, to dtype.DType, checkOverflow bool) (eventset.Array, error) {
	if arr.DType() == to {
		return arr, nil
	}
	switch a := arr.(type) {
	case eventset.Float64s:
		return fromFloats(a, to, checkOverflow)
	case eventset.Int64s:
		return fromInts(a, to), nil
	case eventset.Strings:
		return fromStrings(a, to)
	case eventset.Bools:
		return fromBools(a, to), nil
	default:
		return nil, fmt.Errorf("%w: unsupported array dtype %s", operator.ErrInvariant, arr.DType())
	}
}

func fromFloats(a eventset.Float64s, to dtype.DType, checkOverflow bool) (eventset.Array, error) {
	switch to {
	case dtype.Int64:
		out := make(eventset.Int64s, len(a))
		for i, v := range a {
			switch {
			case math.IsNaN(v):
				if checkOverflow {
					return nil, fmt.Errorf("%w: cannot cast missing value at position %d to int64", ErrOverflow, i)
				}
			case v >= math.MaxInt64 || v < math.MinInt64:
				if checkOverflow {
					return nil, fmt.Errorf("%w: value %g at position %d is out of the int64 range", ErrOverflow, v, i)
				}
				out[i] = math.MaxInt64
				if v < 0 {
					out[i] = math.MinInt64
				}
			default:
				out[i] = int64(v)
			}
		}
		return out, nil
	case dtype.String:
		out := make(eventset.Strings, len(a))
		for i, v := range a {
			if !math.IsNaN(v) {
				out[i] = formatFloat(v)
			}
		}
		return out, nil
	default:
		out := make(eventset.Bools, len(a))
		for i, v := range a {
			out[i] = v != 0
		}
		return out, nil
	}
}

func fromInts(a eventset.Int64s, to dtype.DType) eventset.Array {
	switch to {
	case dtype.Float64:
		out := make(eventset.Float64s, len(a))
		for i, v := range a {
			out[i] = float64(v)
		}
		return out
	case dtype.String:
		out := make(eventset.Strings, len(a))
		for i, v := range a {
			out[i] = strconv.FormatInt(v, 10)
		}
		return out
	default:
		out := make(eventset.Bools, len(a))
		for i, v := range a {
			out[i] = v != 0
		}
		return out
	}
}

func fromStrings(a eventset.Strings, to dtype.DType) (eventset.Array, error) {
	switch to {
	case dtype.Float64:
		out := make(eventset.Float64s, len(a))
		for i, v := range a {
			if v == dtype.MissingString {
				out[i] = math.NaN()
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("%w %q at position %d as float64", ErrParse, v, i)
			}
			out[i] = f
		}
		return out, nil
	case dtype.Int64:
		out := make(eventset.Int64s, len(a))
		for i, v := range a {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w %q at position %d as int64", ErrParse, v, i)
			}
			out[i] = n
		}
		return out, nil
	default:
		out := make(eventset.Bools, len(a))
		for i, v := range a {
			if v == dtype.MissingString {
				continue
			}
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("%w %q at position %d as bool", ErrParse, v, i)
			}
			out[i] = b
		}
		return out, nil
	}
}

func fromBools(a eventset.Bools, to dtype.DType) eventset.Array {
	switch to {
	case dtype.Float64:
		out := make(eventset.Float64s, len(a))
		for i, v := range a {
			if v {
				out[i] = 1
			}
		}
		return out
	case dtype.Int64:
		out := make(eventset.Int64s, len(a))
		for i, v := range a {
			if v {
				out[i] = 1
			}
		}
		return out
	default:
		out := make(eventset.Strings, len(a))
		for i, v := range a {
			out[i] = strconv.FormatBool(v)
		}
		return out
	}
}

// formatFloat renders whole numbers with a trailing ".0".
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !math.IsInf(v, 0) && !strings.ContainsAny(s, ".eN") {
		s += ".0"
	}
	return s
}
