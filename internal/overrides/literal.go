package overrides

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// ParseLiteral parses src as a literal expression: numbers, double-quoted
// strings, true, false, null, tuples and objects of those, and negated
// numbers. References, function calls, interpolation and any other
// operator are rejected, so nothing is ever evaluated.
func ParseLiteral(src string) (cty.Value, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "literal", hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("parsing literal %q: %s", src, diags.Error())
	}
	if err := checkLiteral(expr); err != nil {
		return cty.NilVal, fmt.Errorf("parsing literal %q: %w", src, err)
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("evaluating literal %q: %s", src, diags.Error())
	}
	return val, nil
}

func checkLiteral(expr hclsyntax.Expression) error {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		return nil
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			if _, ok := part.(*hclsyntax.LiteralValueExpr); !ok {
				return fmt.Errorf("string interpolation is not allowed")
			}
		}
		return nil
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			if err := checkLiteral(item); err != nil {
				return err
			}
		}
		return nil
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			if err := checkKey(item.KeyExpr); err != nil {
				return err
			}
			if err := checkLiteral(item.ValueExpr); err != nil {
				return err
			}
		}
		return nil
	case *hclsyntax.UnaryOpExpr:
		if e.Op != hclsyntax.OpNegate {
			return fmt.Errorf("operator is not allowed")
		}
		if _, ok := e.Val.(*hclsyntax.LiteralValueExpr); !ok {
			return fmt.Errorf("negation applies only to numbers")
		}
		return nil
	case *hclsyntax.TemplateWrapExpr:
		return fmt.Errorf("string interpolation is not allowed")
	case *hclsyntax.ScopeTraversalExpr:
		return fmt.Errorf("references are not allowed (strings need double quotes)")
	case *hclsyntax.FunctionCallExpr:
		return fmt.Errorf("function calls are not allowed")
	default:
		return fmt.Errorf("expression of type %T is not allowed", expr)
	}
}

// checkKey accepts bare identifiers and literal keys.
func checkKey(expr hclsyntax.Expression) error {
	if k, ok := expr.(*hclsyntax.ObjectConsKeyExpr); ok {
		if !k.ForceNonLiteral && hcl.ExprAsKeyword(k.Wrapped) != "" {
			return nil
		}
		return checkLiteral(k.Wrapped)
	}
	return checkLiteral(expr)
}

// ToNative converts a literal value into plain Go values: string, bool,
// int for whole numbers, float64 otherwise, []any and map[string]any.
func ToNative(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return int(i), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			nv, err := ToNative(v)
			if err != nil {
				return nil, err
			}
			out = append(out, nv)
		}
		return out, nil
	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			nv, err := ToNative(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = nv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported literal type %s", ty.FriendlyName())
	}
}
