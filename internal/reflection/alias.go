package reflection

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gogf/gf/errors/gerror"
)

// AliasRegistry is a case-folded string -> type table used to resolve the
// short type names that appear in XML configuration.
type AliasRegistry struct {
	mu      sync.RWMutex
	aliases map[string]reflect.Type
}

// NewAliasRegistry returns a registry pre-populated with the fixed
// bootstrap aliases: primitives, boxed scalars, common date/time and
// container types, and a couple of database-specific names.
func NewAliasRegistry() *AliasRegistry {
	r := &AliasRegistry{aliases: make(map[string]reflect.Type)}
	for name, t := range bootstrapAliases() {
		r.aliases[strings.ToLower(name)] = t
	}
	return r
}

func bootstrapAliases() map[string]reflect.Type {
	return map[string]reflect.Type{
		"string":  reflect.TypeOf(""),
		"byte":    reflect.TypeOf(byte(0)),
		"int":     reflect.TypeOf(int(0)),
		"int32":   reflect.TypeOf(int32(0)),
		"integer": reflect.TypeOf(int(0)),
		"long":    reflect.TypeOf(int64(0)),
		"int64":   reflect.TypeOf(int64(0)),
		"short":   reflect.TypeOf(int16(0)),
		"float":   reflect.TypeOf(float32(0)),
		"double":  reflect.TypeOf(float64(0)),
		"boolean": reflect.TypeOf(false),
		"bool":    reflect.TypeOf(false),
		"bytes":   reflect.TypeOf([]byte(nil)),
		"date":    reflect.TypeOf(time.Time{}),
		"time":    reflect.TypeOf(time.Time{}),
		"datetime": reflect.TypeOf(time.Time{}),
		"map":     reflect.TypeOf(map[string]any(nil)),
		"list":    reflect.TypeOf([]any(nil)),
		"object":  reflect.TypeOf((*any)(nil)).Elem(),
		// database-specific
		"resultset": reflect.TypeOf((*any)(nil)).Elem(),
		"db_vendor": reflect.TypeOf(""),
	}
}

// Register binds alias (case-insensitively) to t. Re-registering the same
// alias with a different target is an error; re-registering with the same
// target is a no-op.
func (r *AliasRegistry) Register(alias string, t reflect.Type) error {
	key := strings.ToLower(alias)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.aliases[key]; ok && existing != t {
		return gerror.Newf("alias registry: %q already mapped to %s, cannot remap to %s", alias, existing, t)
	}
	r.aliases[key] = t
	return nil
}

// Resolve returns the type bound to alias, case-insensitively.
func (r *AliasRegistry) Resolve(alias string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.aliases[strings.ToLower(alias)]
	return t, ok
}
