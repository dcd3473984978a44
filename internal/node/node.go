package node

import (
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
)

// lastID is the handle allocator shared by nodes, samplings and operators.
// Handles are never reused within a process.
var lastID atomic.Uint64

// NextID returns a fresh identity handle.
func NextID() uint64 {
	return lastID.Add(1)
}

// Node is the symbolic handle of an event stream: its ordered features, the
// sampling they are aligned to, and the operator that produced it (nil for
// inputs). A Node never changes after construction, and two Nodes are the
// same stream only if they are the same pointer.
type Node struct {
	// id is the creation handle used for naming and ordering.
	id uint64
	// name is an optional label used in logs and pipeline files.
	name     string
	features []Feature
	sampling *Sampling
	// creator is a non-owning back-reference for graph traversal.
	creator Operator
}

// New creates a node for the given schema. The features slice is copied.
func New(features []Feature, sampling *Sampling, creator Operator) *Node {
	if sampling == nil {
		panic("node: sampling must not be nil")
	}
	return &Node{
		id:       NextID(),
		features: slices.Clone(features),
		sampling: sampling,
		creator:  creator,
	}
}

// NewInput creates a source node with a fresh sampling over the given index.
func NewInput(features []Feature, index []Feature, isUnixTimestamp bool) *Node {
	return New(features, NewSampling(index, isUnixTimestamp, nil), nil)
}

// Named returns a copy of a source node carrying a display name. The copy is
// a distinct handle sharing the same sampling. Operator outputs cannot be
// renamed: their creator only produces the original handle.
func (n *Node) Named(name string) *Node {
	if n.creator != nil {
		panic(fmt.Sprintf("node: cannot rename %s, it is an output of %s[%d]", n, n.creator.Kind(), n.creator.ID()))
	}
	return &Node{
		id:       NextID(),
		name:     name,
		features: n.features,
		sampling: n.sampling,
	}
}

// ID returns the node's creation handle.
func (n *Node) ID() uint64 { return n.id }

// Name returns the display name, which may be empty.
func (n *Node) Name() string { return n.name }

// Features returns a copy of the node's features in order.
func (n *Node) Features() []Feature { return slices.Clone(n.features) }

// NumFeatures returns the number of features.
func (n *Node) NumFeatures() int { return len(n.features) }

// Feature returns the i-th feature.
func (n *Node) Feature(i int) Feature { return n.features[i] }

// FeatureNames returns the feature names in order.
func (n *Node) FeatureNames() []string {
	out := make([]string, len(n.features))
	for i, f := range n.features {
		out[i] = f.Name
	}
	return out
}

// Sampling returns the node's sampling.
func (n *Node) Sampling() *Sampling { return n.sampling }

// Creator returns the operator that produced the node, or nil for inputs.
func (n *Node) Creator() Operator { return n.creator }

// IsInput reports whether the node has no creator.
func (n *Node) IsInput() bool { return n.creator == nil }

// SameSchema reports whether two nodes have equal features and index
// schemas. Identity is ignored.
func SameSchema(a, b *Node) bool {
	return slices.Equal(a.features, b.features) && a.sampling.SameIndex(b.sampling)
}

// String renders the node for debugging.
func (n *Node) String() string {
	if n == nil {
		return "<nil node>"
	}
	var sb strings.Builder
	sb.WriteString("Node<")
	if n.name != "" {
		sb.WriteString(n.name)
		sb.WriteRune(' ')
	}
	fmt.Fprintf(&sb, "id:%d features:[", n.id)
	for i, f := range n.features {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.String())
	}
	fmt.Fprintf(&sb, "] sampling:%s>", n.sampling)
	return sb.String()
}
