package config

import (
	"strings"

	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Supported data formats.
const (
	FormatCSV   = "csv"
	FormatArrow = "arrow"
	FormatPNG   = "png"
	FormatSVG   = "svg"
)

// Model is the unified, format-agnostic representation of a pipeline: the
// data it reads, the operators it applies and the results it writes.
type Model struct {
	Inputs  []*Input
	Steps   []*Step
	Outputs []*Output
}

// Input is the format-agnostic representation of an `input` block.
type Input struct {
	Name   string
	Format string
	Path   string
	// Timestamp names the timestamp column. Empty means the format default.
	Timestamp      string
	Index          []string
	Features       map[string]dtype.DType
	UnixTimestamps bool
}

// Step is the format-agnostic representation of a `step` block: one
// operator application.
type Step struct {
	Kind      string
	Name      string
	Inputs    map[string]Reference
	Arguments map[string]cty.Value
}

// Output is the format-agnostic representation of an `output` block.
type Output struct {
	Name   string
	From   Reference
	Format string
	Path   string
	Title  string
}

// Reference points at the data produced by an input or a step. Output selects
// one output of a step with several; it is empty otherwise.
type Reference struct {
	Root   string
	Name   string
	Output string
}

// Address returns the block the reference points at.
func (r Reference) Address() string {
	return nodeid.ForBlock(r.Root, r.Name).String()
}

func (r Reference) String() string {
	parts := []string{r.Root, r.Name}
	if r.Output != "" {
		parts = append(parts, r.Output)
	}
	return strings.Join(parts, ".")
}
