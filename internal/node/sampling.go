package node

import (
	"fmt"
	"slices"
	"strings"
)

// Sampling is the index and timestamp domain a set of features is aligned
// to. Nodes that point at the same Sampling are guaranteed to share index
// keys and timestamps once materialized.
type Sampling struct {
	id              uint64
	index           []Feature
	isUnixTimestamp bool
	creator         Operator
}

// NewSampling creates a fresh sampling.
func NewSampling(index []Feature, isUnixTimestamp bool, creator Operator) *Sampling {
	return &Sampling{
		id:              NextID(),
		index:           slices.Clone(index),
		isUnixTimestamp: isUnixTimestamp,
		creator:         creator,
	}
}

// ID returns the sampling's creation handle.
func (s *Sampling) ID() uint64 { return s.id }

// Index returns a copy of the index features.
func (s *Sampling) Index() []Feature { return slices.Clone(s.index) }

// IndexNames returns the names of the index features.
func (s *Sampling) IndexNames() []string {
	out := make([]string, len(s.index))
	for i, f := range s.index {
		out[i] = f.Name
	}
	return out
}

// IsUnixTimestamp reports whether timestamps are seconds since the unix epoch.
func (s *Sampling) IsUnixTimestamp() bool { return s.isUnixTimestamp }

// Creator returns the operator that introduced the sampling, if any.
func (s *Sampling) Creator() Operator { return s.creator }

// SameIndex reports whether two samplings have equal index schemas.
func (s *Sampling) SameIndex(o *Sampling) bool {
	return slices.Equal(s.index, o.index)
}

// CheckSameIndex returns a descriptive error when the index schemas differ.
func (s *Sampling) CheckSameIndex(o *Sampling, label string) error {
	if s.SameIndex(o) {
		return nil
	}
	return fmt.Errorf("%s must have the same index: %v != %v", label, s.index, o.index)
}

// String renders the sampling for debugging.
func (s *Sampling) String() string {
	if s == nil {
		return "<nil>"
	}
	names := make([]string, len(s.index))
	for i, f := range s.index {
		names[i] = f.String()
	}
	return fmt.Sprintf("Sampling<id:%d index:[%s] unix:%t>", s.id, strings.Join(names, ", "), s.isUnixTimestamp)
}
