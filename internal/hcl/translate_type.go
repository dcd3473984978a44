// This file contains the logic for parsing HCL feature declarations (e.g.,
// `{ sales = float64, store = string }`) into dtypes.

package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/vk/eventflow/internal/dtype"
	"github.com/zclconf/go-cty/cty"
)

// featuresExprToDTypes converts an object of feature names to dtype keywords.
func featuresExprToDTypes(ctx context.Context, expr hcl.Expression) (map[string]dtype.DType, error) {
	logger := ctxlog.FromContext(ctx)

	objExpr, ok := expr.(*hclsyntax.ObjectConsExpr)
	if !ok {
		return nil, fmt.Errorf("features must be an object literal like { name = float64, ... }, got %T", expr)
	}

	out := make(map[string]dtype.DType, len(objExpr.Items))
	logger.Debug("Parsing feature declarations.", "count", len(objExpr.Items))
	for _, item := range objExpr.Items {
		key := objectKey(item.KeyExpr)
		if key == "" {
			return nil, fmt.Errorf("invalid key in features: keys must be simple identifiers or quoted strings, not complex expressions")
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("feature '%s' declared twice", key)
		}
		d, err := typeExprToDType(ctx, item.ValueExpr)
		if err != nil {
			return nil, fmt.Errorf("in feature '%s': %w", key, err)
		}
		out[key] = d
	}
	return out, nil
}

// objectKey returns the literal key of an object item, or "" when the key is
// computed.
func objectKey(expr hclsyntax.Expression) string {
	keyExpr, ok := expr.(*hclsyntax.ObjectConsKeyExpr)
	if !ok {
		return ""
	}
	switch kexpr := keyExpr.Wrapped.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(kexpr.Traversal) == 1 {
			return kexpr.Traversal.RootName()
		}
	case *hclsyntax.TemplateExpr:
		if len(kexpr.Parts) == 1 {
			if lit, isLit := kexpr.Parts[0].(*hclsyntax.LiteralValueExpr); isLit && lit.Val.Type().Equals(cty.String) {
				return lit.Val.AsString()
			}
		}
	}
	return ""
}

// typeExprToDType accepts a bare dtype keyword (`float64`) or a quoted one
// (`"float64"`).
func typeExprToDType(ctx context.Context, expr hcl.Expression) (dtype.DType, error) {
	switch v := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return dtype.Invalid, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
		}
		ctxlog.FromContext(ctx).Debug("Parsing dtype keyword.", "keyword", v.Traversal.RootName())
		return dtype.Parse(v.Traversal.RootName())

	case *hclsyntax.TemplateExpr:
		val, diags := v.Value(nil)
		if diags.HasErrors() || !val.Type().Equals(cty.String) {
			return dtype.Invalid, fmt.Errorf("type must be a keyword or a literal string")
		}
		return dtype.Parse(val.AsString())

	default:
		return dtype.Invalid, fmt.Errorf("unsupported expression for type definition: %T", v)
	}
}
