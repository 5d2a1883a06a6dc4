package dynsql

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
	"github.com/ayiyaha-hyd/sqlmap/internal/ognl"
)

// ForeachNode iterates a collection-valued binding, rendering Body once per
// element with the item/index visible under synthetic parameter names
// of the form __frch_<item>_<n>.
type ForeachNode struct {
	Collection string
	Item       string
	Index      string
	Open       string
	Close      string
	Separator  string
	Body       Node
}

func (n *ForeachNode) Apply(ctx *Context, eval *ognl.Evaluator) error {
	coll, err := eval.Eval(n.Collection, ctx.bindings)
	if err != nil {
		return err
	}
	items, keys := flattenCollection(coll)
	if len(items) == 0 {
		return nil
	}

	if n.Open != "" {
		ctx.appendSQL(n.Open)
	}
	for i, item := range items {
		if i > 0 && n.Separator != "" {
			ctx.appendSQL(n.Separator)
		}
		frame := &frameBindings{parent: ctx.bindings, overrides: map[string]any{}}
		if n.Item != "" {
			frame.overrides[n.Item] = item
		}
		if n.Index != "" {
			frame.overrides[n.Index] = keys[i]
		}
		inner := &Context{bindings: frame.merged(), additional: ctx.additional, paramObject: ctx.paramObject}
		if err := n.Body.Apply(inner, eval); err != nil {
			return err
		}
		renamed, mappings := rewriteForeachMappings(inner, n.Item, n.Index, i)
		ctx.appendSQL(renamed)
		ctx.mappings = append(ctx.mappings, mappings...)
		if n.Item != "" {
			ctx.setAdditional(fmt.Sprintf("__frch_%s_%d", n.Item, i), item)
		}
		if n.Index != "" {
			ctx.setAdditional(fmt.Sprintf("__frch_%s_%d", n.Index, i), keys[i])
		}
	}
	if n.Close != "" {
		ctx.appendSQL(n.Close)
	}
	return nil
}

func (n *ForeachNode) Dynamic() bool { return true }

// rewriteForeachMappings renames every ParameterMapping referencing the
// iteration's item or index variable to its synthetic `__frch_<name>_<n>`
// additional parameter, so the outer BoundSql can bind each iteration's
// value independently even though the original property path is shared
// across iterations. Mappings referencing unrelated properties pass
// through untouched.
func rewriteForeachMappings(inner *Context, item, index string, n int) (string, []*model.ParameterMapping) {
	sql := inner.sql.String()
	out := make([]*model.ParameterMapping, len(inner.mappings))
	for i, pm := range inner.mappings {
		renamed := renameMapping(pm, item, n)
		if renamed == pm {
			renamed = renameMapping(pm, index, n)
		}
		out[i] = renamed
	}
	return sql, out
}

// renameMapping rewrites pm's property when it is `name` itself or a path
// rooted at it (`name.field`, `name[0]`); any other property is returned
// unchanged.
func renameMapping(pm *model.ParameterMapping, name string, n int) *model.ParameterMapping {
	if name == "" {
		return pm
	}
	synthetic := fmt.Sprintf("__frch_%s_%d", name, n)
	switch {
	case pm.Property == name:
		copied := *pm
		copied.Expression = pm.Property
		copied.Property = synthetic
		return &copied
	case strings.HasPrefix(pm.Property, name+".") || strings.HasPrefix(pm.Property, name+"["):
		copied := *pm
		copied.Expression = pm.Property
		copied.Property = synthetic + pm.Property[len(name):]
		return &copied
	}
	return pm
}

type frameBindings struct {
	parent    ognl.Bindings
	overrides map[string]any
}

func (f *frameBindings) merged() ognl.Bindings {
	out := ognl.Bindings{}
	for k, v := range f.parent {
		out[k] = v
	}
	for k, v := range f.overrides {
		out[k] = v
	}
	return out
}

// flattenCollection normalizes a slice/array/map into a parallel (values,
// keys) pair: keys are integer indices for slices/arrays, the map's own key
// values (not converted) for maps.
func flattenCollection(coll any) ([]any, []any) {
	if coll == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(coll)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		keys := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
			keys[i] = i
		}
		return items, keys
	case reflect.Map:
		items := make([]any, 0, rv.Len())
		keys := make([]any, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			keys = append(keys, iter.Key().Interface())
			items = append(items, iter.Value().Interface())
		}
		return items, keys
	default:
		return []any{coll}, []any{0}
	}
}
