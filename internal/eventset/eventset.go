// Package eventset holds the concrete, in-memory realization of a node: per
// index key, a sorted timestamp array and one value array per feature.
package eventset

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/vk/eventflow/internal/node"
)

// Feature pairs a feature name with its values. It is the column form used
// when building EventSets from external data.
type Feature struct {
	Name string
	Data Array
}

// IndexData holds the events of one index key. Features are ordered like the
// owning node's features.
type IndexData struct {
	Key        []any
	Timestamps []float64
	Features   []Array
}

// Len returns the number of events.
func (d *IndexData) Len() int { return len(d.Timestamps) }

// Bindings associates input nodes with their concrete data. Keys are node
// identities; two schema-equal nodes are different keys.
type Bindings map[*node.Node]*EventSet

// EventSet is the concrete data of a node.
type EventSet struct {
	node *node.Node
	data map[string]*IndexData
}

// New creates an empty EventSet for the node.
func New(n *node.Node) *EventSet {
	if n == nil {
		panic("eventset: node must not be nil")
	}
	return &EventSet{node: n, data: make(map[string]*IndexData)}
}

// Node returns the schema the data realizes.
func (e *EventSet) Node() *node.Node { return e.node }

// Set stores the events of one index key, replacing any previous entry. The
// data is validated against the node schema.
func (e *EventSet) Set(d *IndexData) error {
	if err := e.check(d); err != nil {
		return fmt.Errorf("index %s: %w", FormatKey(d.Key, e.node.Sampling().Index()), err)
	}
	k, err := EncodeKey(d.Key)
	if err != nil {
		return err
	}
	e.data[k] = d
	return nil
}

func (e *EventSet) check(d *IndexData) error {
	if err := CheckKey(d.Key, e.node.Sampling().Index()); err != nil {
		return err
	}
	if len(d.Features) != e.node.NumFeatures() {
		return fmt.Errorf("got %d feature arrays, node has %d features", len(d.Features), e.node.NumFeatures())
	}
	for i, ts := range d.Timestamps {
		if math.IsNaN(ts) {
			return fmt.Errorf("timestamp %d is NaN", i)
		}
		if i > 0 && ts < d.Timestamps[i-1] {
			return fmt.Errorf("timestamps are not sorted at position %d", i)
		}
	}
	for i, arr := range d.Features {
		f := e.node.Feature(i)
		if arr == nil {
			return fmt.Errorf("feature %q has no data", f.Name)
		}
		if arr.DType() != f.DType {
			return fmt.Errorf("feature %q expects %s, got %s", f.Name, f.DType, arr.DType())
		}
		if arr.Len() != len(d.Timestamps) {
			return fmt.Errorf("feature %q has %d values for %d timestamps", f.Name, arr.Len(), len(d.Timestamps))
		}
	}
	return nil
}

// Get returns the events of an index key.
func (e *EventSet) Get(key []any) (*IndexData, bool) {
	k, err := EncodeKey(key)
	if err != nil {
		return nil, false
	}
	d, ok := e.data[k]
	return d, ok
}

// Len returns the number of index keys.
func (e *EventSet) Len() int { return len(e.data) }

// NumEvents returns the total number of events across index keys.
func (e *EventSet) NumEvents() int {
	n := 0
	for _, d := range e.data {
		n += d.Len()
	}
	return n
}

// Index returns the per-key data sorted by index key.
func (e *EventSet) Index() []*IndexData {
	out := make([]*IndexData, 0, len(e.data))
	for _, d := range e.data {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *IndexData) int { return CompareKeys(a.Key, b.Key) })
	return out
}

// Keys returns the index keys in sorted order.
func (e *EventSet) Keys() [][]any {
	idx := e.Index()
	out := make([][]any, len(idx))
	for i, d := range idx {
		out[i] = d.Key
	}
	return out
}

// Relabel returns an EventSet sharing the receiver's data under another node
// with the same schema.
func (e *EventSet) Relabel(n *node.Node) (*EventSet, error) {
	if !node.SameSchema(e.node, n) {
		return nil, fmt.Errorf("cannot relabel %s as %s: schemas differ", e.node, n)
	}
	return &EventSet{node: n, data: e.data}, nil
}

// Check validates every index key against the node schema.
func (e *EventSet) Check() error {
	for _, d := range e.Index() {
		if err := e.check(d); err != nil {
			return fmt.Errorf("index %s: %w", FormatKey(d.Key, e.node.Sampling().Index()), err)
		}
	}
	return nil
}

// Equal reports whether two EventSets hold the same schema and data. Node
// identity is ignored; missing float values compare equal.
func Equal(a, b *EventSet) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || !node.SameSchema(a.node, b.node) || len(a.data) != len(b.data) {
		return false
	}
	for k, da := range a.data {
		db, ok := b.data[k]
		if !ok || !slices.Equal(da.Timestamps, db.Timestamps) {
			return false
		}
		for i := range da.Features {
			if !ArraysEqual(da.Features[i], db.Features[i]) {
				return false
			}
		}
	}
	return true
}

// String renders the EventSet as a small table per index key.
func (e *EventSet) String() string {
	var sb strings.Builder
	names := e.node.FeatureNames()
	index := e.node.Sampling().Index()
	fmt.Fprintf(&sb, "indexes: %v\nfeatures: %v\nevents:\n", e.node.Sampling().IndexNames(), names)
	for _, d := range e.Index() {
		fmt.Fprintf(&sb, "    %s (%d events):\n", FormatKey(d.Key, index), d.Len())
		fmt.Fprintf(&sb, "        timestamps: %v\n", d.Timestamps)
		for i, arr := range d.Features {
			fmt.Fprintf(&sb, "        '%s': %v\n", names[i], arr)
		}
	}
	return sb.String()
}
