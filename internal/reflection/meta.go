// Package reflection provides the per-type metadata cache, the
// bidirectional type handler registry, and the case-insensitive
// alias registry. All three are read-only after configuration and
// are safe for concurrent readers.
package reflection

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gogf/gf/errors/gerror"
)

// Property describes one readable/writable property of a struct type: its
// Go field index path, effective type, and whether its name is ambiguous.
type Property struct {
	Name       string
	Type       reflect.Type
	Index      []int // reflect.Value.FieldByIndex path
	Ambiguous  bool   // two incomparable candidates were found for this name
}

// TypeMeta is the derived descriptor for one concrete struct type: the
// type itself and the set of properties keyed by lower-cased name for
// case-insensitive lookup.
type TypeMeta struct {
	Type           reflect.Type
	properties     map[string]*Property // keyed lower-case
	orderedNames   []string
}

// GetProperty returns the property for a (possibly mixed-case) name.
func (m *TypeMeta) GetProperty(name string) (*Property, bool) {
	p, ok := m.properties[strings.ToLower(name)]
	return p, ok
}

// PropertyNames returns all property names in declaration order.
func (m *TypeMeta) PropertyNames() []string {
	out := make([]string, len(m.orderedNames))
	copy(out, m.orderedNames)
	return out
}

// excludedNames: "class"/"serialVersionUID" equivalents
// and any field starting with "$" are never exposed as properties. In Go
// terms that is unexported fields (never reachable via reflection anyway)
// plus a couple of reserved bookkeeping names.
var excludedNames = map[string]bool{
	"class":             true,
	"serialversionuid":  true,
}

// MetaCache derives and memoises TypeMeta per concrete struct type.
type MetaCache struct {
	mu    sync.RWMutex
	types map[reflect.Type]*TypeMeta
}

func NewMetaCache() *MetaCache {
	return &MetaCache{types: make(map[reflect.Type]*TypeMeta)}
}

// For returns (deriving and caching on first use) the TypeMeta for t. t
// must be a struct type or a pointer to one; pointers are dereferenced.
func (c *MetaCache) For(t reflect.Type) (*TypeMeta, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, gerror.Newf("reflection: %s is not a struct type", t)
	}

	c.mu.RLock()
	if meta, ok := c.types[t]; ok {
		c.mu.RUnlock()
		return meta, nil
	}
	c.mu.RUnlock()

	meta := derive(t)

	c.mu.Lock()
	c.types[t] = meta
	c.mu.Unlock()
	return meta, nil
}

// derive walks t's fields (including promoted/embedded ones) and builds the
// property table. Conflict resolution favors the most-derived match (the
// shallowest embedding depth wins over deeper ones, matching "subclass
// overrides parent"); a genuine tie is recorded as ambiguous and only
// fails if actually invoked.
func derive(t reflect.Type) *TypeMeta {
	meta := &TypeMeta{Type: t, properties: make(map[string]*Property)}
	depth := make(map[string]int)

	var walk func(rt reflect.Type, index []int, d int)
	walk = func(rt reflect.Type, index []int, d int) {
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if f.PkgPath != "" && !f.Anonymous {
				continue // unexported, non-embedded
			}
			idx := append(append([]int{}, index...), i)
			if f.Anonymous {
				ft := f.Type
				for ft.Kind() == reflect.Ptr {
					ft = ft.Elem()
				}
				if ft.Kind() == reflect.Struct {
					walk(ft, idx, d+1)
					continue
				}
			}
			name := strings.ToLower(f.Name)
			if excludedNames[name] || strings.HasPrefix(f.Name, "$") {
				continue
			}
			if existingDepth, ok := depth[name]; ok {
				if d > existingDepth {
					continue // shallower (more derived) already recorded wins
				}
				if d == existingDepth {
					meta.properties[name].Ambiguous = true
					continue
				}
				// d < existingDepth: this one is more derived, overrides.
			}
			_, seen := depth[name]
			meta.properties[name] = &Property{Name: f.Name, Type: f.Type, Index: idx}
			depth[name] = d
			if !seen {
				meta.orderedNames = append(meta.orderedNames, f.Name)
			}
		}
	}
	walk(t, nil, 0)
	return meta
}
