package hcl

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/eventflow/internal/config"
	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/vk/eventflow/internal/nodeid"
	"github.com/vk/eventflow/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// translateInput converts the HCL-specific input schema into the agnostic model.
func (l *Loader) translateInput(ctx context.Context, s *schema.Input) (*config.Input, error) {
	in := &config.Input{
		Name:           s.Name,
		Format:         s.Format,
		Path:           s.Path,
		Timestamp:      s.Timestamp,
		Index:          s.Index,
		UnixTimestamps: s.UnixTimestamps,
	}
	if in.Format == "" {
		in.Format = formatFromPath(s.Path)
	}
	if isExprDefined(ctx, s.Features, "features") {
		features, err := featuresExprToDTypes(ctx, s.Features)
		if err != nil {
			return nil, fmt.Errorf("input '%s': %w", s.Name, err)
		}
		in.Features = features
	}
	return in, nil
}

// translateStep converts the HCL-specific step schema into the agnostic model.
func (l *Loader) translateStep(ctx context.Context, s *schema.Step) (*config.Step, error) {
	logger := ctxlog.FromContext(ctx).With("step_kind", s.Kind, "step_name", s.Name)
	logger.Debug("Translating HCL step to internal config model.")

	step := &config.Step{
		Kind:      s.Kind,
		Name:      s.Name,
		Inputs:    make(map[string]config.Reference),
		Arguments: make(map[string]cty.Value),
	}

	if isExprDefined(ctx, s.Inputs, "inputs") {
		pairs, diags := hcl.ExprMap(s.Inputs)
		if diags.HasErrors() {
			return nil, fmt.Errorf("step '%s': inputs must be an object of references: %w", s.Name, diags)
		}
		for _, pair := range pairs {
			name, err := keyName(pair.Key)
			if err != nil {
				return nil, fmt.Errorf("step '%s', inputs: %w", s.Name, err)
			}
			ref, err := parseReference(pair.Value)
			if err != nil {
				return nil, fmt.Errorf("step '%s', input '%s': %w", s.Name, name, err)
			}
			step.Inputs[name] = ref
		}
	}

	args, err := l.extractArguments(s.Arguments)
	if err != nil {
		return nil, fmt.Errorf("step '%s', arguments: %w", s.Name, err)
	}
	step.Arguments = args
	logger.Debug("Translated step.", "inputs", len(step.Inputs), "arguments", slices.Sorted(maps.Keys(args)))
	return step, nil
}

// translateOutput converts the HCL-specific output schema into the agnostic model.
func (l *Loader) translateOutput(_ context.Context, s *schema.Output) (*config.Output, error) {
	from, err := parseReference(s.From)
	if err != nil {
		return nil, fmt.Errorf("output '%s', from: %w", s.Name, err)
	}
	out := &config.Output{
		Name:   s.Name,
		From:   from,
		Format: s.Format,
		Path:   s.Path,
		Title:  s.Title,
	}
	if out.Format == "" {
		out.Format = formatFromPath(s.Path)
	}
	if out.Title == "" {
		out.Title = s.Name
	}
	return out, nil
}

// extractArguments evaluates every attribute of an arguments block.
func (l *Loader) extractArguments(block *schema.StepArgs) (map[string]cty.Value, error) {
	out := make(map[string]cty.Value)
	if block == nil || block.Body == nil {
		return out, nil
	}
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	evalCtx := l.evalContext()
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("argument '%s': %w", name, diags)
		}
		out[name] = val
	}
	return out, nil
}

// parseReference reads `input.<name>`, `step.<name>` or
// `step.<name>.<output>`.
func parseReference(expr hcl.Expression) (config.Reference, error) {
	trav, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return config.Reference{}, fmt.Errorf("expected a reference like input.<name> or step.<name>: %w", diags)
	}
	ref := config.Reference{Root: trav.RootName()}
	rest := trav[1:]
	if len(rest) == 0 || len(rest) > 2 || (ref.Root == nodeid.RootInput && len(rest) != 1) {
		return config.Reference{}, fmt.Errorf("invalid reference with %d segments, expected input.<name>, step.<name> or step.<name>.<output>", len(trav))
	}
	for i, t := range rest {
		attr, ok := t.(hcl.TraverseAttr)
		if !ok {
			return config.Reference{}, fmt.Errorf("reference segments must be attribute names")
		}
		if i == 0 {
			ref.Name = attr.Name
		} else {
			ref.Output = attr.Name
		}
	}
	return ref, nil
}

func keyName(expr hcl.Expression) (string, error) {
	if name := hcl.ExprAsKeyword(expr); name != "" {
		return name, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() || !val.Type().Equals(cty.String) || val.IsNull() {
		return "", fmt.Errorf("keys must be identifiers or literal strings")
	}
	return val.AsString(), nil
}
