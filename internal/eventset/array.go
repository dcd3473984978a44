package eventset

import (
	"fmt"
	"math"
	"slices"

	"github.com/vk/eventflow/internal/dtype"
)

// Array is a typed column of feature values for one index key.
type Array interface {
	DType() dtype.DType
	Len() int
	// At returns the i-th value as its canonical Go type.
	At(i int) any
	// IsMissing reports whether the i-th value is the dtype's missing sentinel.
	IsMissing(i int) bool
	// Take returns a new array holding the values at the given positions.
	Take(idx []int) Array
	// Clone returns a copy that shares no memory with the receiver.
	Clone() Array
}

// Float64s is a float64 column; NaN marks a missing value.
type Float64s []float64

func (a Float64s) DType() dtype.DType { return dtype.Float64 }
func (a Float64s) Len() int { return len(a) }
func (a Float64s) At(i int) any { return a[i] }
func (a Float64s) IsMissing(i int) bool { return math.IsNaN(a[i]) }
func (a Float64s) Clone() Array { return slices.Clone(a) }
func (a Float64s) Take(idx []int) Array { return take(a, idx) }

// Int64s is an int64 column. It has no missing value.
type Int64s []int64

func (a Int64s) DType() dtype.DType { return dtype.Int64 }
func (a Int64s) Len() int { return len(a) }
func (a Int64s) At(i int) any { return a[i] }
func (a Int64s) IsMissing(int) bool { return false }
func (a Int64s) Clone() Array { return slices.Clone(a) }
func (a Int64s) Take(idx []int) Array { return take(a, idx) }

// Strings is a string column; the empty string marks a missing value.
type Strings []string

func (a Strings) DType() dtype.DType { return dtype.String }
func (a Strings) Len() int { return len(a) }
func (a Strings) At(i int) any { return a[i] }
func (a Strings) IsMissing(i int) bool { return a[i] == dtype.MissingString }
func (a Strings) Clone() Array { return slices.Clone(a) }
func (a Strings) Take(idx []int) Array { return take(a, idx) }

// Bools is a boolean column. It has no missing value.
type Bools []bool

func (a Bools) DType() dtype.DType { return dtype.Bool }
func (a Bools) Len() int { return len(a) }
func (a Bools) At(i int) any { return a[i] }
func (a Bools) IsMissing(int) bool { return false }
func (a Bools) Clone() Array { return slices.Clone(a) }
func (a Bools) Take(idx []int) Array { return take(a, idx) }

func take[S ~[]E, E any](s S, idx []int) S {
	out := make(S, len(idx))
	for i, j := range idx {
		out[i] = s[j]
	}
	return out
}

// NewArray allocates a zero-filled array of the given dtype and length.
func NewArray(d dtype.DType, n int) (Array, error) {
	switch d {
	case dtype.Float64:
		return make(Float64s, n), nil
	case dtype.Int64:
		return make(Int64s, n), nil
	case dtype.String:
		return make(Strings, n), nil
	case dtype.Bool:
		return make(Bools, n), nil
	default:
		return nil, fmt.Errorf("cannot allocate array of dtype %s", d)
	}
}

// ArrayOf builds an array from Go scalars. All values must normalize to the
// same dtype; nil is accepted as the missing value of float64 and string
// arrays.
func ArrayOf(d dtype.DType, values []any) (Array, error) {
	arr, err := NewArray(d, len(values))
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if v == nil {
			if !d.HasMissing() {
				return nil, fmt.Errorf("value %d: %s has no missing value", i, d)
			}
			if f, ok := arr.(Float64s); ok {
				f[i] = dtype.MissingFloat()
			}
			continue
		}
		norm, got, err := dtype.Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		if got == dtype.Int64 && d == dtype.Float64 {
			norm, got = float64(norm.(int64)), dtype.Float64
		}
		if got != d {
			return nil, fmt.Errorf("value %d: expected %s, got %s", i, d, got)
		}
		switch a := arr.(type) {
		case Float64s:
			a[i] = norm.(float64)
		case Int64s:
			a[i] = norm.(int64)
		case Strings:
			a[i] = norm.(string)
		case Bools:
			a[i] = norm.(bool)
		}
	}
	return arr, nil
}

// ArraysEqual reports whether two arrays have the same dtype and values.
// Missing float values compare equal to each other.
func ArraysEqual(a, b Array) bool {
	if a.DType() != b.DType() || a.Len() != b.Len() {
		return false
	}
	switch x := a.(type) {
	case Float64s:
		y := b.(Float64s)
		return slices.EqualFunc(x, y, func(p, q float64) bool {
			return p == q || (math.IsNaN(p) && math.IsNaN(q))
		})
	case Int64s:
		return slices.Equal(x, b.(Int64s))
	case Strings:
		return slices.Equal(x, b.(Strings))
	case Bools:
		return slices.Equal(x, b.(Bools))
	default:
		for i := 0; i < a.Len(); i++ {
			if a.At(i) != b.At(i) {
				return false
			}
		}
		return true
	}
}
