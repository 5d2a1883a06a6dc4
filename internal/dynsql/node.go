// Package dynsql compiles a mapper statement's inner XML into a node tree
// and renders it per invocation into a model.BoundSql (component H).
package dynsql

import (
	"strings"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
	"github.com/ayiyaha-hyd/sqlmap/internal/ognl"
)

// Context accumulates rendered SQL text and parameter mappings while a
// node tree is walked. Fragments are space-joined so adjacent nodes never
// fuse into one token.
type Context struct {
	sql         strings.Builder
	mappings    []*model.ParameterMapping
	bindings    ognl.Bindings
	additional  map[string]any
	paramObject any
}

func newContext(parameterObject any) *Context {
	bindings := ognl.Bindings{}
	if m, ok := parameterObject.(map[string]any); ok {
		for k, v := range m {
			bindings[k] = v
		}
	}
	bindings["_parameter"] = parameterObject
	return &Context{
		bindings:    bindings,
		additional:  map[string]any{},
		paramObject: parameterObject,
	}
}

func (c *Context) appendSQL(s string) {
	if s == "" {
		return
	}
	if c.sql.Len() > 0 {
		last := c.sql.String()[c.sql.Len()-1]
		if last != ' ' && s[0] != ' ' {
			c.sql.WriteByte(' ')
		}
	}
	c.sql.WriteString(s)
}

// bindParameter registers a `#{...}` placeholder and appends the `?`
// marker; callers such as foreach rewrite the recorded mappings afterwards
// from ctx.mappings.
func (c *Context) bindParameter(pm *model.ParameterMapping) {
	c.mappings = append(c.mappings, pm)
	c.sql.WriteString("?")
}

func (c *Context) setAdditional(name string, value any) {
	c.additional[name] = value
	c.bindings[name] = value
}

// Node is one element of a compiled statement body.
type Node interface {
	// Apply renders this node into ctx using the Evaluator for any
	// conditional expressions it carries.
	Apply(ctx *Context, eval *ognl.Evaluator) error
	// Dynamic reports whether this node (or any descendant) depends on
	// runtime parameter values, forcing per-call recompilation of the SQL
	// text.
	Dynamic() bool
}

// MixedNode is an ordered sequence of child nodes (the body of a
// statement, `<where>`, `<choose>` branch, etc).
type MixedNode struct {
	Children []Node
}

func (n *MixedNode) Apply(ctx *Context, eval *ognl.Evaluator) error {
	for _, c := range n.Children {
		if err := c.Apply(ctx, eval); err != nil {
			return err
		}
	}
	return nil
}

func (n *MixedNode) Dynamic() bool {
	for _, c := range n.Children {
		if c.Dynamic() {
			return true
		}
	}
	return false
}

// StaticTextNode is literal SQL text with no `${}`/`#{}` placeholders.
type StaticTextNode struct{ Text string }

func (n *StaticTextNode) Apply(ctx *Context, _ *ognl.Evaluator) error {
	ctx.appendSQL(n.Text)
	return nil
}
func (n *StaticTextNode) Dynamic() bool { return false }
