package reflection

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/gogf/gf/errors/gerror"
)

// Navigator resolves dotted/indexed property paths ("a.b", "list[3]",
// "m[key]") against arbitrary Go values: maps, slices/arrays, and structs
// (via the MetaCache). It backs both the expression evaluator and
// the dynamic-SQL parameter/result binding.
type Navigator struct {
	meta *MetaCache
}

func NewNavigator(meta *MetaCache) *Navigator {
	return &Navigator{meta: meta}
}

// segment is one parsed path component: a name, optionally followed by an
// index ("[3]" or "[key]").
type segment struct {
	name      string
	index     string
	hasIndex  bool
}

func splitPath(path string) []segment {
	parts := strings.Split(path, ".")
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		if i := strings.IndexByte(p, '['); i >= 0 && strings.HasSuffix(p, "]") {
			segs = append(segs, segment{name: p[:i], index: p[i+1 : len(p)-1], hasIndex: true})
		} else {
			segs = append(segs, segment{name: p})
		}
	}
	return segs
}

// Get resolves path against root, returning (value, found).
func (n *Navigator) Get(root any, path string) (any, bool) {
	cur := root
	for _, seg := range splitPath(path) {
		var ok bool
		if seg.name != "" {
			cur, ok = n.getNamed(cur, seg.name)
			if !ok {
				return nil, false
			}
		}
		if seg.hasIndex {
			cur, ok = n.getIndexed(cur, seg.index)
			if !ok {
				return nil, false
			}
		}
	}
	return cur, true
}

func (n *Navigator) getNamed(cur any, name string) (any, bool) {
	if cur == nil {
		return nil, false
	}
	if m, ok := cur.(map[string]any); ok {
		v, ok := m[name]
		return v, ok
	}
	v := reflect.ValueOf(cur)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		mv := v.MapIndex(reflect.ValueOf(name))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Struct:
		meta, err := n.meta.For(v.Type())
		if err != nil {
			return nil, false
		}
		prop, ok := meta.GetProperty(name)
		if !ok {
			return nil, false
		}
		if prop.Ambiguous {
			return nil, false
		}
		fv := v.FieldByIndex(prop.Index)
		return fv.Interface(), true
	default:
		return nil, false
	}
}

// getIndexed resolves a "[idx]" segment: numeric index into a slice/array,
// non-numeric key into a map.
func (n *Navigator) getIndexed(cur any, idx string) (any, bool) {
	if cur == nil {
		return nil, false
	}
	v := reflect.ValueOf(cur)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if i, err := strconv.Atoi(idx); err == nil {
		switch v.Kind() {
		case reflect.Slice, reflect.Array:
			if i < 0 || i >= v.Len() {
				return nil, false
			}
			return v.Index(i).Interface(), true
		}
	}
	if v.Kind() == reflect.Map {
		key := reflect.ValueOf(idx)
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := v.MapIndex(key.Convert(v.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	}
	return nil, false
}

// Set writes value into root at path. Only struct-field and map-key targets
// are supported (the shapes result mapping and <bind> actually produce).
func (n *Navigator) Set(root any, path string, value any) error {
	segs := splitPath(path)
	if len(segs) == 0 {
		return gerror.Newf("reflection: empty property path")
	}
	// Navigate to the parent of the last segment.
	cur := root
	for _, seg := range segs[:len(segs)-1] {
		var ok bool
		if seg.name != "" {
			cur, ok = n.getNamed(cur, seg.name)
			if !ok {
				return gerror.Newf("reflection: property path %q not found before final segment", path)
			}
		}
		if seg.hasIndex {
			cur, ok = n.getIndexed(cur, seg.index)
			if !ok {
				return gerror.Newf("reflection: index %q not found in path %q", seg.index, path)
			}
		}
	}
	last := segs[len(segs)-1]
	if last.hasIndex {
		return gerror.Newf("reflection: indexed set not supported for path %q", path)
	}
	if m, ok := cur.(map[string]any); ok {
		m[last.name] = value
		return nil
	}
	v := reflect.ValueOf(cur)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return gerror.Newf("reflection: nil pointer while setting %q", path)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return gerror.Newf("reflection: cannot set property %q on non-struct %s", last.name, v.Kind())
	}
	meta, err := n.meta.For(v.Type())
	if err != nil {
		return err
	}
	prop, ok := meta.GetProperty(last.name)
	if !ok {
		return gerror.Newf("reflection: no such property %q on %s", last.name, v.Type())
	}
	if prop.Ambiguous {
		return gerror.Newf("reflection: ambiguous setter for property %q on %s", last.name, v.Type())
	}
	fv := v.FieldByIndex(prop.Index)
	if !fv.CanSet() {
		return gerror.Newf("reflection: property %q on %s is not settable", last.name, v.Type())
	}
	setValue(fv, value)
	return nil
}

func setValue(fv reflect.Value, value any) {
	if value == nil {
		return
	}
	vv := reflect.ValueOf(value)
	if vv.Type().AssignableTo(fv.Type()) {
		fv.Set(vv)
		return
	}
	if vv.Kind() == reflect.Ptr && !vv.IsNil() && vv.Type().Elem().AssignableTo(fv.Type()) {
		fv.Set(vv.Elem())
		return
	}
	if fv.Kind() == reflect.Ptr && vv.Type().AssignableTo(fv.Type().Elem()) {
		p := reflect.New(fv.Type().Elem())
		p.Elem().Set(vv)
		fv.Set(p)
		return
	}
	if vv.Type().ConvertibleTo(fv.Type()) {
		fv.Set(vv.Convert(fv.Type()))
	}
}
