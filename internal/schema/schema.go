// Package schema holds the gohcl decoding targets of a pipeline file.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// Input represents an `input` block: a named data source loaded from disk.
type Input struct {
	Name           string         `hcl:"name,label"`
	Format         string         `hcl:"format,optional"`
	Path           string         `hcl:"path"`
	Timestamp      string         `hcl:"timestamp,optional"`
	Index          []string       `hcl:"index,optional"`
	UnixTimestamps bool           `hcl:"unix_timestamps,optional"`
	Features       hcl.Expression `hcl:"features,optional"`
}

// StepArgs represents the content of the 'arguments' block within a step.
type StepArgs struct {
	Body hcl.Body `hcl:",remain"`
}

// Step represents a `step` block: one application of a registered operator
// kind to the data of inputs or other steps.
type Step struct {
	Kind      string         `hcl:"kind,label"`
	Name      string         `hcl:"name,label"`
	Inputs    hcl.Expression `hcl:"inputs,optional"`
	Arguments *StepArgs      `hcl:"arguments,block"`
}

// Output represents an `output` block: where and how a result is written.
type Output struct {
	Name   string         `hcl:"name,label"`
	From   hcl.Expression `hcl:"from"`
	Format string         `hcl:"format,optional"`
	Path   string         `hcl:"path"`
	Title  string         `hcl:"title,optional"`
}

// File represents the top-level structure of a pipeline file. Unknown
// blocks and attributes are rejected by the decoder.
type File struct {
	Inputs  []*Input  `hcl:"input,block"`
	Steps   []*Step   `hcl:"step,block"`
	Outputs []*Output `hcl:"output,block"`
}
