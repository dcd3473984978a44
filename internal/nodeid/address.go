package nodeid

import (
	"fmt"
	"slices"
	"strings"
)

// New builds an address from a root name and further segments.
func New(root string, segments ...PathSegment) *Address {
	return &Address{Path: append([]PathSegment{NewPathSegment(root)}, segments...)}
}

// ForOperator addresses an operator instance, e.g. `operator.add_scalar[12]`.
func ForOperator(kind string, id uint64) *Address {
	return New(RootOperator, NewPathSegmentWithIndex(kind, int(id)))
}

// ForBlock addresses a named pipeline block, e.g. `step.daily_sales`.
func ForBlock(root, name string) *Address {
	return New(root, NewPathSegment(name))
}

// Root returns the name of the first segment.
func (a *Address) Root() string {
	if a == nil || len(a.Path) == 0 {
		return ""
	}
	return a.Path[0].Name
}

// Last returns the final segment.
func (a *Address) Last() PathSegment {
	if a == nil || len(a.Path) == 0 {
		return NewPathSegment("")
	}
	return a.Path[len(a.Path)-1]
}

// String serializes the Address into its canonical path string representation.
func (a *Address) String() string {
	if a == nil {
		return ""
	}

	var sb strings.Builder
	for i, segment := range a.Path {
		if i > 0 {
			sb.WriteRune('.')
		}
		sb.WriteString(segment.Name)
		if segment.HasIndex() {
			sb.WriteString(fmt.Sprintf("[%d]", segment.Index))
		}
	}

	return sb.String()
}

// Equal checks for equality between two Address pointers.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return slices.Equal(a.Path, other.Path)
}
