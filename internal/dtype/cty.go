package dtype

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// FromCty converts a known, non-null primitive cty value into a Go scalar of
// the requested dtype. Numbers are rejected when they do not fit the dtype
// exactly (e.g. 1.5 as int64).
func FromCty(val cty.Value, want DType) (any, error) {
	if val.IsNull() || !val.IsKnown() {
		return nil, fmt.Errorf("value must be known and not null")
	}
	converted, err := convert.Convert(val, want.CtyType())
	if err != nil {
		return nil, fmt.Errorf("cannot convert %s to %s: %w", val.Type().FriendlyName(), want, err)
	}
	switch want {
	case Int64:
		bf := converted.AsBigFloat()
		if !bf.IsInt() {
			return nil, fmt.Errorf("value %s is not an integer", bf.Text('g', -1))
		}
		i, acc := bf.Int64()
		if acc != big.Exact {
			return nil, fmt.Errorf("value %s overflows int64", bf.Text('g', -1))
		}
		return i, nil
	case Float64:
		var f float64
		if err := gocty.FromCtyValue(converted, &f); err != nil {
			return nil, err
		}
		return f, nil
	case String:
		return converted.AsString(), nil
	case Bool:
		return converted.True(), nil
	default:
		return nil, fmt.Errorf("unsupported dtype %s", want)
	}
}

// InferCty picks a dtype for a primitive cty value. Whole numbers become
// Int64 unless preferFloat is set.
func InferCty(val cty.Value, preferFloat bool) (DType, error) {
	if val.IsNull() || !val.IsKnown() {
		return Invalid, fmt.Errorf("value must be known and not null")
	}
	switch val.Type() {
	case cty.Number:
		if !preferFloat && val.AsBigFloat().IsInt() {
			return Int64, nil
		}
		return Float64, nil
	case cty.String:
		return String, nil
	case cty.Bool:
		return Bool, nil
	default:
		return Invalid, fmt.Errorf("unsupported value type %s", val.Type().FriendlyName())
	}
}

// ToCty converts a Go scalar into its cty representation.
func ToCty(v any) (cty.Value, error) {
	norm, d, err := Normalize(v)
	if err != nil {
		return cty.NilVal, err
	}
	return gocty.ToCtyValue(norm, d.CtyType())
}
