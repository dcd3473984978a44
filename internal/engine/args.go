package engine

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/vk/eventflow/internal/compile"
	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// splitArgs sorts compiled call arguments into operator inputs and cty
// attributes.
func splitArgs(def *registry.Definition, args compile.Args) (map[string]*node.Node, map[string]cty.Value, error) {
	if len(args.Positional) > len(def.Inputs) {
		return nil, nil, fmt.Errorf("operator '%s' takes %d positional inputs, got %d", def.Kind, len(def.Inputs), len(args.Positional))
	}
	isInput := make(map[string]bool, len(def.Inputs)+len(def.OptionalInputs))
	for _, name := range append(slices.Clone(def.Inputs), def.OptionalInputs...) {
		isInput[name] = true
	}

	inputs := make(map[string]*node.Node)
	for i, name := range def.Inputs[:len(args.Positional)] {
		n, err := args.Node(i, name)
		if err != nil {
			return nil, nil, fmt.Errorf("operator '%s': %w", def.Kind, err)
		}
		inputs[name] = n
	}

	attrs := make(map[string]cty.Value)
	for _, name := range slices.Sorted(maps.Keys(args.Keyword)) {
		v := args.Keyword[name]
		if isInput[name] {
			if _, dup := inputs[name]; dup {
				return nil, nil, fmt.Errorf("operator '%s': input '%s' given twice", def.Kind, name)
			}
			if v == nil {
				continue
			}
			n, ok := v.(*node.Node)
			if !ok || n == nil {
				return nil, nil, fmt.Errorf("operator '%s': input '%s' must be a Node or an EventSet, got %T", def.Kind, name, v)
			}
			inputs[name] = n
			continue
		}
		val, err := ToCtyValue(v)
		if err != nil {
			return nil, nil, fmt.Errorf("operator '%s', attribute '%s': %w", def.Kind, name, err)
		}
		attrs[name] = val
	}
	return inputs, attrs, nil
}

// ToCtyValue converts a Go attribute value into its cty equivalent. Scalars
// keep their dtype, locations become their name and durations become
// seconds. Fixed zones without an IANA name become their offset in hours.
// Any other value goes through its implied cty type.
func ToCtyValue(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return x, nil
	case *time.Location:
		if _, err := time.LoadLocation(x.String()); err == nil {
			return cty.StringVal(x.String()), nil
		}
		_, offset := time.Unix(0, 0).In(x).Zone()
		return cty.NumberFloatVal(float64(offset) / 3600), nil
	case time.Duration:
		return cty.NumberFloatVal(x.Seconds()), nil
	case dtype.DType:
		return cty.StringVal(x.String()), nil
	case map[string]dtype.DType:
		m := make(map[string]cty.Value, len(x))
		for k, d := range x {
			m[k] = cty.StringVal(d.String())
		}
		if len(m) == 0 {
			return cty.MapValEmpty(cty.String), nil
		}
		return cty.MapVal(m), nil
	}
	if val, err := dtype.ToCty(v); err == nil {
		return val, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}
