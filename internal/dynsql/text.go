package dynsql

import (
	"strconv"
	"strings"

	"github.com/gogf/gf/text/gregex"
	"github.com/gogf/gf/util/gconv"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
	"github.com/ayiyaha-hyd/sqlmap/internal/ognl"
)

var paramPattern = `#\{([^}]+)\}`
var literalPattern = `\$\{([^}]+)\}`

// TextNode is literal SQL text carrying `#{...}` parameter placeholders
// and/or `${...}` raw string-substitution placeholders.
type TextNode struct {
	Text string
}

func (n *TextNode) Dynamic() bool {
	return gregex.IsMatchString(literalPattern, n.Text)
}

func (n *TextNode) Apply(ctx *Context, eval *ognl.Evaluator) error {
	rendered, err := gregex.ReplaceStringFunc(literalPattern, n.Text, func(match string) string {
		expr := match[2 : len(match)-1]
		// `${name:default}` falls back to the literal default when name
		// is unbound or evaluates to nil.
		def, hasDefault := "", false
		if i := strings.IndexByte(expr, ':'); i >= 0 {
			expr, def, hasDefault = expr[:i], expr[i+1:], true
		}
		v, evalErr := eval.Eval(expr, ctx.bindings)
		if evalErr != nil {
			return match
		}
		if v == nil && hasDefault {
			return def
		}
		return stringify(v)
	})
	if err != nil {
		return err
	}

	remaining := rendered
	for {
		loc := findParamPlaceholder(remaining)
		if loc == nil {
			ctx.appendSQL(remaining)
			return nil
		}
		before, expr, after := remaining[:loc[0]], remaining[loc[0]+2:loc[1]-1], remaining[loc[1]:]
		ctx.appendSQL(before)
		pm := parseParameterExpr(expr)
		ctx.bindParameter(pm)
		remaining = after
	}
}

func findParamPlaceholder(s string) []int {
	start := strings.Index(s, "#{")
	if start < 0 {
		return nil
	}
	end := strings.Index(s[start:], "}")
	if end < 0 {
		return nil
	}
	return []int{start, start + end + 1}
}

// parseParameterExpr splits "prop,jdbcType=VARCHAR,mode=INOUT" style
// `#{}` content into the property path plus its inline attribute
// overrides. Recognized keys are jdbcType, typeHandler, mode and
// numericScale (also accepted as scale); any other key, javaType
// included, is ignored.
func parseParameterExpr(expr string) *model.ParameterMapping {
	parts := strings.Split(expr, ",")
	pm := &model.ParameterMapping{Property: strings.TrimSpace(parts[0]), Expression: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, value := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		switch key {
		case "jdbcType":
			pm.JdbcType = value
		case "typeHandler":
			pm.TypeHandlerName = value
		case "mode":
			switch value {
			case "OUT":
				pm.Mode = model.ParamOut
			case "INOUT":
				pm.Mode = model.ParamInOut
			}
		case "scale", "numericScale":
			if n, err := strconv.Atoi(value); err == nil {
				pm.NumericScale = n
			}
		}
	}
	return pm
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return gconv.String(v)
}
