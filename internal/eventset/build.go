package eventset

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/vk/eventflow/internal/node"
)

type buildOptions struct {
	index []string
	name  string
	unix  bool
	like  *EventSet
}

// Option configures FromArrays.
type Option func(*buildOptions)

// WithIndex names the features used as index. They must be int64 or string.
func WithIndex(names ...string) Option {
	return func(o *buildOptions) { o.index = append(o.index, names...) }
}

// WithName sets the display name of the created node.
func WithName(name string) Option {
	return func(o *buildOptions) { o.name = name }
}

// WithUnixTimestamps marks the timestamps as seconds since the unix epoch.
func WithUnixTimestamps() Option {
	return func(o *buildOptions) { o.unix = true }
}

// SameSamplingAs makes the new EventSet share the sampling of another one.
// Index keys and timestamps must match exactly.
func SameSamplingAs(other *EventSet) Option {
	return func(o *buildOptions) { o.like = other }
}

// UnixSeconds converts times into float unix timestamps.
func UnixSeconds(times []time.Time) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = float64(t.UnixNano()) / float64(time.Second)
	}
	return out
}

// FromArrays builds an EventSet from row-aligned columns. Rows are stably
// sorted by timestamp and grouped by the index features.
func FromArrays(timestamps []float64, features []Feature, opts ...Option) (*EventSet, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	n := len(timestamps)
	for i, ts := range timestamps {
		if math.IsNaN(ts) {
			return nil, fmt.Errorf("timestamp %d is NaN", i)
		}
	}

	var (
		index      []node.Feature
		indexData  []Array
		schema     []node.Feature
		columns    []Array
		indexNames = make(map[string]bool, len(o.index))
	)
	for _, name := range o.index {
		indexNames[name] = true
	}
	byName := make(map[string]Array, len(features))
	for _, f := range features {
		if f.Data == nil {
			return nil, fmt.Errorf("feature %q has no data", f.Name)
		}
		if f.Data.Len() != n {
			return nil, fmt.Errorf("feature %q has %d values for %d timestamps", f.Name, f.Data.Len(), n)
		}
		if _, dup := byName[f.Name]; dup {
			return nil, fmt.Errorf("duplicate feature name %q", f.Name)
		}
		byName[f.Name] = f.Data
		if !indexNames[f.Name] {
			schema = append(schema, node.Feature{Name: f.Name, DType: f.Data.DType()})
			columns = append(columns, f.Data)
		}
	}
	for _, name := range o.index {
		arr, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("index feature %q not found", name)
		}
		if !arr.DType().IsIndexable() {
			return nil, fmt.Errorf("index feature %q has dtype %s, expected int64 or string", name, arr.DType())
		}
		index = append(index, node.Feature{Name: name, DType: arr.DType()})
		indexData = append(indexData, arr)
	}
	if err := node.CheckFeatures(append(slices.Clone(index), schema...)); err != nil {
		return nil, err
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return timestamps[order[a]] < timestamps[order[b]] })

	groups := make(map[string][]int)
	keys := make(map[string][]any)
	for _, row := range order {
		key := make([]any, len(indexData))
		for i, arr := range indexData {
			key[i] = arr.At(row)
		}
		k, err := EncodeKey(key)
		if err != nil {
			return nil, err
		}
		if _, ok := keys[k]; !ok {
			keys[k] = key
		}
		groups[k] = append(groups[k], row)
	}

	var nd *node.Node
	if o.like != nil {
		if err := checkSameSampling(o.like, index, groups, keys, timestamps); err != nil {
			return nil, err
		}
		nd = node.New(schema, o.like.Node().Sampling(), nil)
	} else {
		nd = node.NewInput(schema, index, o.unix)
	}
	if o.name != "" {
		nd = nd.Named(o.name)
	}

	es := New(nd)
	for k, rows := range groups {
		d := &IndexData{Key: keys[k], Timestamps: make([]float64, len(rows))}
		for i, row := range rows {
			d.Timestamps[i] = timestamps[row]
		}
		if o.like != nil {
			if ref, ok := o.like.Get(d.Key); ok {
				d.Timestamps = ref.Timestamps
			}
		}
		for _, col := range columns {
			d.Features = append(d.Features, col.Take(rows))
		}
		if err := es.Set(d); err != nil {
			return nil, err
		}
	}
	return es, nil
}

func checkSameSampling(like *EventSet, index []node.Feature, groups map[string][]int, keys map[string][]any, timestamps []float64) error {
	if !slices.Equal(like.Node().Sampling().Index(), index) {
		return fmt.Errorf("index %v does not match the sampling index %v", index, like.Node().Sampling().Index())
	}
	if len(groups) != like.Len() {
		return fmt.Errorf("got %d index keys, the sampling has %d", len(groups), like.Len())
	}
	for k, rows := range groups {
		ref, ok := like.Get(keys[k])
		if !ok {
			return fmt.Errorf("index key %v is not in the sampling", keys[k])
		}
		if len(rows) != ref.Len() {
			return fmt.Errorf("index key %v has %d timestamps, the sampling has %d", keys[k], len(rows), ref.Len())
		}
		for i, row := range rows {
			if timestamps[row] != ref.Timestamps[i] {
				return fmt.Errorf("index key %v: timestamp %d differs from the sampling", keys[k], i)
			}
		}
	}
	return nil
}
