package eventset

import (
	"fmt"

	"github.com/vk/eventflow/internal/dtype"
)

// Flatten concatenates the events of every index key, in index key order,
// into row-aligned columns. Index features come first, followed by the node
// features. It is the inverse of FromArrays with WithIndex.
func (e *EventSet) Flatten() ([]float64, []Feature, error) {
	index := e.node.Sampling().Index()
	features := e.node.Features()
	n := e.NumEvents()

	timestamps := make([]float64, 0, n)
	indexValues := make([][]any, len(index))
	featureParts := make([][]Array, len(features))
	for _, d := range e.Index() {
		timestamps = append(timestamps, d.Timestamps...)
		for i, v := range d.Key {
			for range d.Len() {
				indexValues[i] = append(indexValues[i], v)
			}
		}
		for i, arr := range d.Features {
			featureParts[i] = append(featureParts[i], arr)
		}
	}

	out := make([]Feature, 0, len(index)+len(features))
	for i, f := range index {
		arr, err := ArrayOf(f.DType, indexValues[i])
		if err != nil {
			return nil, nil, fmt.Errorf("index %q: %w", f.Name, err)
		}
		out = append(out, Feature{Name: f.Name, Data: arr})
	}
	for i, f := range features {
		arr, err := Concat(f.DType, featureParts[i]...)
		if err != nil {
			return nil, nil, fmt.Errorf("feature %q: %w", f.Name, err)
		}
		out = append(out, Feature{Name: f.Name, Data: arr})
	}
	return timestamps, out, nil
}

// Concat joins arrays of dtype d end to end.
func Concat(d dtype.DType, parts ...Array) (Array, error) {
	switch d {
	case dtype.Float64:
		return concat[Float64s](parts)
	case dtype.Int64:
		return concat[Int64s](parts)
	case dtype.String:
		return concat[Strings](parts)
	case dtype.Bool:
		return concat[Bools](parts)
	default:
		return nil, fmt.Errorf("cannot concatenate arrays of dtype %s", d)
	}
}

func concat[S interface {
	~[]E
	Array
}, E any](parts []Array) (Array, error) {
	out := S{}
	for _, p := range parts {
		s, ok := p.(S)
		if !ok {
			return nil, fmt.Errorf("expected %T, got %T", out, p)
		}
		out = append(out, s...)
	}
	return out, nil
}
