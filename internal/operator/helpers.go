package operator

import (
	"fmt"

	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
)

// FeatureFunc computes the output array of feature i from its input array.
type FeatureFunc func(i int, in eventset.Array) (eventset.Array, error)

// MapFeatures builds an EventSet for out with the index keys and timestamps
// of in, computing every feature with fn. Timestamp slices are shared with
// the input.
func MapFeatures(in *eventset.EventSet, out *node.Node, fn FeatureFunc) (*eventset.EventSet, error) {
	res := eventset.New(out)
	for _, d := range in.Index() {
		od := &eventset.IndexData{
			Key:        d.Key,
			Timestamps: d.Timestamps,
			Features:   make([]eventset.Array, len(d.Features)),
		}
		for i, arr := range d.Features {
			mapped, err := fn(i, arr)
			if err != nil {
				return nil, fmt.Errorf("feature %q: %w", in.Node().Feature(i).Name, err)
			}
			od.Features[i] = mapped
		}
		if err := res.Set(od); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvariant, err)
		}
	}
	return res, nil
}

// InputSet returns a named input EventSet.
func InputSet(inputs map[string]*eventset.EventSet, name string) (*eventset.EventSet, error) {
	es, ok := inputs[name]
	if !ok || es == nil {
		return nil, fmt.Errorf("%w: missing input %q", ErrInvariant, name)
	}
	return es, nil
}
