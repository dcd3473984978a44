package registry

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// ValidateRegistry performs a strict parity check between operator
// definitions and implementations.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, kind := range r.Kinds() {
		def := r.definitions[kind]
		if def.Build == nil {
			errs = append(errs, fmt.Sprintf("operator '%s': definition has no build function", kind))
		}
		if _, ok := r.implementations[kind]; !ok {
			errs = append(errs, fmt.Sprintf("operator '%s': definition has no registered implementation", kind))
		}
		for name, spec := range def.Attributes {
			if spec.Type == cty.NilType {
				errs = append(errs, fmt.Sprintf("operator '%s', attribute '%s': no type declared", kind, name))
				continue
			}
			if spec.Type.Equals(cty.DynamicPseudoType) {
				logger.Debug("Operator attribute accepts any type; the builder checks it.", "operator", kind, "attribute", name)
			}
		}
	}
	for _, kind := range slices.Sorted(maps.Keys(r.implementations)) {
		if _, ok := r.definitions[kind]; !ok {
			errs = append(errs, fmt.Sprintf("operator '%s': implementation registered without a definition", kind))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}
