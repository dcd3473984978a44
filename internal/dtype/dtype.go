// Package dtype defines the fixed set of scalar value kinds a feature can hold,
// together with their missing-value sentinels and cty equivalents.
package dtype

import (
	"fmt"
	"math"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// DType is the value kind of a feature column.
type DType int

const (
	// Invalid is the zero value and never describes a real feature.
	Invalid DType = iota
	Int64
	Float64
	String
	Bool
)

var names = map[DType]string{
	Int64:   "int64",
	Float64: "float64",
	String:  "string",
	Bool:    "bool",
}

// String returns the canonical lowercase name of the dtype.
func (d DType) String() string {
	if n, ok := names[d]; ok {
		return n
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// IsNumeric reports whether arithmetic is defined on the dtype.
func (d DType) IsNumeric() bool {
	return d == Int64 || d == Float64
}

// IsIndexable reports whether the dtype can be used as an index feature.
func (d DType) IsIndexable() bool {
	return d == Int64 || d == String
}

// HasMissing reports whether the dtype has a missing-value sentinel.
func (d DType) HasMissing() bool {
	return d == Float64 || d == String
}

// Parse converts a dtype name (as written in pipeline files) into a DType.
// A few common aliases are accepted.
func Parse(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int64", "int", "integer":
		return Int64, nil
	case "float64", "float", "double", "number":
		return Float64, nil
	case "string", "str":
		return String, nil
	case "bool", "boolean":
		return Bool, nil
	default:
		return Invalid, fmt.Errorf("unknown dtype %q", s)
	}
}

// Of infers the dtype of a Go scalar.
func Of(v any) (DType, error) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return Int64, nil
	case float32, float64:
		return Float64, nil
	case string:
		return String, nil
	case bool:
		return Bool, nil
	default:
		return Invalid, fmt.Errorf("unsupported scalar type %T", v)
	}
}

// Normalize converts a Go scalar into the canonical Go type of its dtype
// (int64, float64, string or bool).
func Normalize(v any) (any, DType, error) {
	switch x := v.(type) {
	case int:
		return int64(x), Int64, nil
	case int8:
		return int64(x), Int64, nil
	case int16:
		return int64(x), Int64, nil
	case int32:
		return int64(x), Int64, nil
	case int64:
		return x, Int64, nil
	case uint8:
		return int64(x), Int64, nil
	case uint16:
		return int64(x), Int64, nil
	case uint32:
		return int64(x), Int64, nil
	case float32:
		return float64(x), Float64, nil
	case float64:
		return x, Float64, nil
	case string:
		return x, String, nil
	case bool:
		return x, Bool, nil
	default:
		return nil, Invalid, fmt.Errorf("unsupported scalar type %T", v)
	}
}

// MissingFloat is the missing-value sentinel of float64 features.
func MissingFloat() float64 { return math.NaN() }

// MissingString is the missing-value sentinel of string features.
const MissingString = ""

// CtyType returns the cty type used to carry values of the dtype in
// configuration files.
func (d DType) CtyType() cty.Type {
	switch d {
	case Int64, Float64:
		return cty.Number
	case String:
		return cty.String
	case Bool:
		return cty.Bool
	default:
		return cty.DynamicPseudoType
	}
}
