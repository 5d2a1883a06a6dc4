package dynsql

import "github.com/ayiyaha-hyd/sqlmap/internal/ognl"

// BindNode evaluates Value once and exposes it under Name to every sibling
// that follows it in document order.
type BindNode struct {
	Name  string
	Value string
}

func (n *BindNode) Apply(ctx *Context, eval *ognl.Evaluator) error {
	v, err := eval.Eval(n.Value, ctx.bindings)
	if err != nil {
		return err
	}
	ctx.bindings[n.Name] = v
	return nil
}

func (n *BindNode) Dynamic() bool { return true }
