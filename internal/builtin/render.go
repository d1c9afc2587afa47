package builtin

import (
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// templateFuncs are the functions available inside templates.
var templateFuncs = map[string]function.Function{
	"upper":  stdlib.UpperFunc,
	"lower":  stdlib.LowerFunc,
	"join":   stdlib.JoinFunc,
	"length": stdlib.LengthFunc,
	"format": stdlib.FormatFunc,
}

// ParseTemplate parses src as an HCL template. name is used in diagnostics.
func ParseTemplate(name string, src []byte) (hcl.Expression, error) {
	expr, diags := hclsyntax.ParseTemplate(src, name, hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse template %s: %s", name, diags.Error())
	}
	return expr, nil
}

// Render evaluates a parsed template with vars.
func Render(expr hcl.Expression, vars map[string]cty.Value) ([]byte, error) {
	val, diags := expr.Value(&hcl.EvalContext{
		Variables: vars,
		Functions: templateFuncs,
	})
	if diags.HasErrors() {
		return nil, fmt.Errorf("render template: %s", diags.Error())
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return nil, fmt.Errorf("render template: result is %s, not a string", val.Type().FriendlyName())
	}
	if str.IsNull() || !str.IsKnown() {
		return nil, fmt.Errorf("render template: result is null")
	}
	return []byte(str.AsString()), nil
}

// toCty converts a decoded YAML value into a cty value.
//
// Lists become tuples and maps become objects, so heterogeneous front matter
// survives the conversion.
func toCty(v any) (cty.Value, error) {
	switch v := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(v), nil
	case bool:
		return cty.BoolVal(v), nil
	case int:
		return cty.NumberIntVal(int64(v)), nil
	case int64:
		return cty.NumberIntVal(v), nil
	case uint64:
		return cty.NumberUIntVal(v), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	case time.Time:
		return cty.StringVal(v.Format(time.DateOnly)), nil
	case []any:
		vals := make([]cty.Value, 0, len(v))
		for i, e := range v {
			cv, err := toCty(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("[%d]: %w", i, err)
			}
			vals = append(vals, cv)
		}
		return cty.TupleVal(vals), nil
	case map[string]any:
		attrs := make(map[string]cty.Value, len(v))
		for k, e := range v {
			cv, err := toCty(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("%s: %w", k, err)
			}
			attrs[k] = cv
		}
		return cty.ObjectVal(attrs), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported value of type %T", v)
	}
}

// metaVars converts front matter fields to template variables. Fields whose
// names are not valid HCL identifiers are skipped.
func metaVars(meta map[string]any) (map[string]cty.Value, error) {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]cty.Value, len(meta))
	for _, k := range keys {
		if !hclsyntax.ValidIdentifier(k) {
			continue
		}
		v, err := toCty(meta[k])
		if err != nil {
			return nil, fmt.Errorf("front matter %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
