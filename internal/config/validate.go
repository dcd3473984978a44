package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/vk/eventflow/internal/nodeid"
)

// ErrInvalidModel is wrapped by every error Validate returns.
var ErrInvalidModel = errors.New("invalid pipeline")

var (
	inputFormats  = []string{FormatCSV, FormatArrow}
	outputFormats = []string{FormatCSV, FormatArrow, FormatPNG, FormatSVG}
)

// Validate checks names, formats and references. Cycles between steps are
// detected when the pipeline is planned.
func (m *Model) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidModel, fmt.Sprintf(format, args...)))
	}

	inputs := make(map[string]*Input, len(m.Inputs))
	for _, in := range m.Inputs {
		if _, dup := inputs[in.Name]; dup {
			fail("duplicate input %q", in.Name)
		}
		inputs[in.Name] = in
		if !slices.Contains(inputFormats, in.Format) {
			fail("input %q: unsupported format %q (supported: %v)", in.Name, in.Format, inputFormats)
		}
		if in.Path == "" {
			fail("input %q: missing path", in.Name)
		}
	}

	steps := make(map[string]*Step, len(m.Steps))
	for _, s := range m.Steps {
		if _, dup := steps[s.Name]; dup {
			fail("duplicate step %q", s.Name)
		}
		steps[s.Name] = s
	}

	check := func(owner string, ref Reference) {
		switch ref.Root {
		case nodeid.RootInput:
			if _, ok := inputs[ref.Name]; !ok {
				fail("%s: reference to undeclared input %q", owner, ref.Name)
			}
			if ref.Output != "" {
				fail("%s: input %q has no output %q", owner, ref.Name, ref.Output)
			}
		case nodeid.RootStep:
			if _, ok := steps[ref.Name]; !ok {
				fail("%s: reference to undeclared step %q", owner, ref.Name)
			}
		default:
			fail("%s: invalid reference %q, expected input.<name> or step.<name>", owner, ref)
		}
	}
	for _, s := range m.Steps {
		for _, name := range slices.Sorted(maps.Keys(s.Inputs)) {
			check(fmt.Sprintf("step %q, input %q", s.Name, name), s.Inputs[name])
		}
	}

	outputs := make(map[string]bool, len(m.Outputs))
	for _, out := range m.Outputs {
		if outputs[out.Name] {
			fail("duplicate output %q", out.Name)
		}
		outputs[out.Name] = true
		check(fmt.Sprintf("output %q", out.Name), out.From)
		if !slices.Contains(outputFormats, out.Format) {
			fail("output %q: unsupported format %q (supported: %v)", out.Name, out.Format, outputFormats)
		}
		if out.Path == "" {
			fail("output %q: missing path", out.Name)
		}
	}
	return errors.Join(errs...)
}
