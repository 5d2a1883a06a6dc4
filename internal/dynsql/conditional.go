package dynsql

import "github.com/ayiyaha-hyd/sqlmap/internal/ognl"

// IfNode renders its body only when Test evaluates truthy.
type IfNode struct {
	Test string
	Body Node
}

func (n *IfNode) Apply(ctx *Context, eval *ognl.Evaluator) error {
	ok, err := eval.EvalBool(n.Test, ctx.bindings)
	if err != nil {
		return err
	}
	if ok {
		return n.Body.Apply(ctx, eval)
	}
	return nil
}

func (n *IfNode) Dynamic() bool { return true }

// ChooseNode picks the first matching WhenNode, or Otherwise if none match.
type ChooseNode struct {
	Whens     []*IfNode
	Otherwise Node
}

func (n *ChooseNode) Apply(ctx *Context, eval *ognl.Evaluator) error {
	for _, w := range n.Whens {
		ok, err := eval.EvalBool(w.Test, ctx.bindings)
		if err != nil {
			return err
		}
		if ok {
			return w.Body.Apply(ctx, eval)
		}
	}
	if n.Otherwise != nil {
		return n.Otherwise.Apply(ctx, eval)
	}
	return nil
}

func (n *ChooseNode) Dynamic() bool { return true }

// TrimNode renders its body and, when the result is non-empty, strips the
// first matching PrefixOverrides/SuffixOverrides token before adding Prefix
// and Suffix.
type TrimNode struct {
	Body            Node
	Prefix          string
	Suffix          string
	PrefixOverrides []string
	SuffixOverrides []string
}

func (n *TrimNode) Apply(ctx *Context, eval *ognl.Evaluator) error {
	inner := &Context{bindings: ctx.bindings, additional: ctx.additional, paramObject: ctx.paramObject}
	if err := n.Body.Apply(inner, eval); err != nil {
		return err
	}
	text := inner.sql.String()
	ctx.mappings = append(ctx.mappings, inner.mappings...)

	trimmed := trimWhitespace(text)
	if trimmed == "" {
		return nil
	}
	trimmed = trimOverride(trimmed, n.PrefixOverrides, true)
	trimmed = trimOverride(trimmed, n.SuffixOverrides, false)
	if trimmed == "" {
		return nil
	}
	if n.Prefix != "" {
		trimmed = n.Prefix + " " + trimmed
	}
	if n.Suffix != "" {
		trimmed = trimmed + " " + n.Suffix
	}
	ctx.appendSQL(trimmed)
	return nil
}

func (n *TrimNode) Dynamic() bool { return true }

// WhereNode is TrimNode specialized to strip a single leading AND/OR and
// prefix "WHERE" if any content remains.
func NewWhereNode(body Node) *TrimNode {
	return &TrimNode{
		Body:            body,
		Prefix:          "WHERE",
		PrefixOverrides: []string{"AND ", "OR ", "AND\n", "OR\n", "AND\t", "OR\t"},
	}
}

// SetNode is TrimNode specialized to strip a single trailing comma and
// prefix "SET".
func NewSetNode(body Node) *TrimNode {
	return &TrimNode{
		Body:            body,
		Prefix:          "SET",
		SuffixOverrides: []string{","},
	}
}

func trimWhitespace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// trimOverride removes the first matching token (case-insensitively) from
// the leading or trailing edge of s, if present.
func trimOverride(s string, overrides []string, leading bool) string {
	for _, ov := range overrides {
		if leading {
			if hasPrefixFold(s, ov) {
				rest := trimWhitespace(s[len(ov):])
				return rest
			}
		} else {
			if hasSuffixFold(s, ov) {
				rest := trimWhitespace(s[:len(s)-len(ov)])
				return rest
			}
		}
	}
	return s
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return equalFold(s[:len(prefix)], prefix)
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	return equalFold(s[len(s)-len(suffix):], suffix)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
