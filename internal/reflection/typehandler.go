package reflection

import (
	"database/sql/driver"
	"reflect"
	"sync"

	"github.com/gogf/gf/util/gconv"
)

// TypeHandler is a bidirectional converter between a language-side type and
// a database-side SQL type.
type TypeHandler interface {
	// SetParameter produces the driver value to bind for one placeholder,
	// given the declared jdbcType (may be "").
	SetParameter(value any, jdbcType string) (driver.Value, error)
	// GetResult converts a raw column value (as returned by database/sql)
	// into the language-side value.
	GetResult(raw any) (any, error)
}

// handlerSlot groups the handlers registered for one Go type, keyed by
// jdbcType; "" is the wildcard/null-jdbcType entry.
type handlerSlot struct {
	byJdbcType map[string]TypeHandler
}

// Registry resolves a TypeHandler given (javaType, sqlType) per the
// algorithm below. Registration is typically configuration-time;
// resolution is memoised, including a sentinel for repeat misses.
type Registry struct {
	mu       sync.RWMutex
	byType   map[reflect.Type]*handlerSlot
	resolved map[resolveKey]TypeHandler // memoised answers, nil entry = sentinel miss
	enumHandlerFactory func(enumType reflect.Type) TypeHandler
}

type resolveKey struct {
	t   reflect.Type
	jdbc string
}

func NewRegistry() *Registry {
	return &Registry{
		byType:   make(map[reflect.Type]*handlerSlot),
		resolved: make(map[resolveKey]TypeHandler),
	}
}

// SetEnumHandlerFactory installs the fallback used when an enum-like type
// (a defined integer/string type) has no registered handler: the factory
// builds one on first miss and the lookup retries.
func (r *Registry) SetEnumHandlerFactory(f func(enumType reflect.Type) TypeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enumHandlerFactory = f
}

// Register binds handler to javaType for the given jdbcType ("" = wildcard
// applicable to any sqlType absent a more specific entry).
func (r *Registry) Register(javaType reflect.Type, jdbcType string, handler TypeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.byType[javaType]
	if !ok {
		slot = &handlerSlot{byJdbcType: make(map[string]TypeHandler)}
		r.byType[javaType] = slot
	}
	slot.byJdbcType[jdbcType] = handler
	r.resolved = make(map[resolveKey]TypeHandler) // invalidate memoisation
}

// RegisterForTypes is the declarative "applies to javaTypes X,Y / sqlTypes
// A,B" declarative registration, populating the full cross
// product.
func (r *Registry) RegisterForTypes(handler TypeHandler, javaTypes []reflect.Type, jdbcTypes []string) {
	if len(jdbcTypes) == 0 {
		jdbcTypes = []string{""}
	}
	for _, jt := range javaTypes {
		for _, st := range jdbcTypes {
			r.Register(jt, st, handler)
		}
	}
}

// Get resolves a handler for (javaType, jdbcType):
//  1. look up by javaType (an exact reflect.Type match); if absent and it's
//     an enum-like type, register+retry the default enum handler. No other
//     type (interface, underlying kind or embedded type) is consulted.
//  2. within the slot, prefer exact jdbcType, else "", else the sole
//     handler if there is exactly one, else none.
func (r *Registry) Get(javaType reflect.Type, jdbcType string) TypeHandler {
	key := resolveKey{javaType, jdbcType}

	r.mu.RLock()
	if h, ok := r.resolved[key]; ok {
		r.mu.RUnlock()
		return h
	}
	r.mu.RUnlock()

	h := r.resolve(javaType, jdbcType)

	r.mu.Lock()
	r.resolved[key] = h // nil is a valid sentinel: repeat misses short-circuit
	r.mu.Unlock()
	return h
}

func (r *Registry) resolve(javaType reflect.Type, jdbcType string) TypeHandler {
	r.mu.RLock()
	slot, ok := r.byType[javaType]
	r.mu.RUnlock()

	if !ok && isEnumLike(javaType) && r.enumHandlerFactory != nil {
		r.Register(javaType, "", r.enumHandlerFactory(javaType))
		r.mu.RLock()
		slot, ok = r.byType[javaType]
		r.mu.RUnlock()
	}
	if !ok {
		return nil
	}
	if jdbcType != "" {
		if h, ok := slot.byJdbcType[jdbcType]; ok {
			return h
		}
	}
	if h, ok := slot.byJdbcType[""]; ok {
		return h
	}
	if len(slot.byJdbcType) == 1 {
		for _, h := range slot.byJdbcType {
			return h
		}
	}
	return nil
}

// isEnumLike reports whether t is a named integer/string type distinct from
// the predeclared ones (Go's nearest equivalent of a Java enum constant
// type), which is what the enum fallback targets.
func isEnumLike(t reflect.Type) bool {
	if t == nil || t.PkgPath() == "" {
		return false
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.String:
		return true
	default:
		return false
	}
}

// --- a small set of built-in handlers, enough to exercise the registry. ---

// StringHandler passes strings through unchanged.
type StringHandler struct{}

func (StringHandler) SetParameter(value any, _ string) (driver.Value, error) {
	return gconv.String(value), nil
}
func (StringHandler) GetResult(raw any) (any, error) { return gconv.String(raw), nil }

// Int64Handler converts numeric-ish values to int64.
type Int64Handler struct{}

func (Int64Handler) SetParameter(value any, _ string) (driver.Value, error) {
	return gconv.Int64(value), nil
}
func (Int64Handler) GetResult(raw any) (any, error) { return gconv.Int64(raw), nil }

// Float64Handler converts numeric-ish values to float64.
type Float64Handler struct{}

func (Float64Handler) SetParameter(value any, _ string) (driver.Value, error) {
	return gconv.Float64(value), nil
}
func (Float64Handler) GetResult(raw any) (any, error) { return gconv.Float64(raw), nil }

// BoolHandler converts between Go bool and SQL's 0/1 or true/false forms.
type BoolHandler struct{}

func (BoolHandler) SetParameter(value any, _ string) (driver.Value, error) {
	return gconv.Bool(value), nil
}
func (BoolHandler) GetResult(raw any) (any, error) { return gconv.Bool(raw), nil }

// BytesHandler passes []byte through unchanged.
type BytesHandler struct{}

func (BytesHandler) SetParameter(value any, _ string) (driver.Value, error) {
	return gconv.Bytes(value), nil
}
func (BytesHandler) GetResult(raw any) (any, error) { return gconv.Bytes(raw), nil }

// RegisterDefaults wires the built-in handlers for the scalar types every
// mapped statement is likely to bind.
func RegisterDefaults(r *Registry) {
	r.RegisterForTypes(StringHandler{}, []reflect.Type{reflect.TypeOf("")}, nil)
	r.RegisterForTypes(Int64Handler{}, []reflect.Type{reflect.TypeOf(int64(0)), reflect.TypeOf(int(0)), reflect.TypeOf(int32(0))}, nil)
	r.RegisterForTypes(Float64Handler{}, []reflect.Type{reflect.TypeOf(float64(0)), reflect.TypeOf(float32(0))}, nil)
	r.RegisterForTypes(BoolHandler{}, []reflect.Type{reflect.TypeOf(false)}, nil)
	r.RegisterForTypes(BytesHandler{}, []reflect.Type{reflect.TypeOf([]byte(nil))}, nil)
}
