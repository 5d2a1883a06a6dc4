package mapping

import (
	"reflect"
	"sync"

	"github.com/gogf/gf/errors/gerror"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
)

// MapperMethod is one mapper field's resolved dispatch plan: which
// statement it calls and how to translate Go arguments into that
// statement's parameter object.
type MapperMethod struct {
	Command   SqlCommand
	Signature *MethodSignature
}

// Registry builds and caches MapperMethod plans per (mapper type, field
// name), so repeated binds of the same mapper type skip re-deriving the
// signature.
type Registry struct {
	mu    sync.RWMutex
	cache map[reflect.Type]map[string]*MapperMethod
}

func NewRegistry() *Registry {
	return &Registry{cache: make(map[reflect.Type]map[string]*MapperMethod)}
}

func (r *Registry) methodFor(mapperType reflect.Type, field reflect.StructField, statementID string, resolveStatement func(id string) (*model.MappedStatement, bool)) (*MapperMethod, error) {
	r.mu.RLock()
	if byField, ok := r.cache[mapperType]; ok {
		if mm, ok := byField[field.Name]; ok {
			r.mu.RUnlock()
			return mm, nil
		}
	}
	r.mu.RUnlock()

	ms, found := resolveStatement(statementID)
	if !found {
		return nil, gerror.Newf("mapping: no statement bound to %s.%s (id %s)", mapperType, field.Name, statementID)
	}

	mm := &MapperMethod{
		Command:   sqlCommandFor(ms),
		Signature: AnalyzeFuncType(field.Type),
	}

	r.mu.Lock()
	if r.cache[mapperType] == nil {
		r.cache[mapperType] = map[string]*MapperMethod{}
	}
	r.cache[mapperType][field.Name] = mm
	r.mu.Unlock()
	return mm, nil
}

// StatementIDFromTag reads a field's `sqlmap:"namespace.id"` struct tag,
// falling back to the enclosing struct's package-qualified name plus the
// field name when absent.
func StatementIDFromTag(mapperType reflect.Type, field reflect.StructField) string {
	if id, ok := field.Tag.Lookup("sqlmap"); ok && id != "" {
		return id
	}
	return mapperType.PkgPath() + "." + mapperType.Name() + "." + field.Name
}

// Bind populates every exported func-typed field of the struct pointed to
// by dst with a dispatcher that calls sess for the statement named by that
// field's `sqlmap` tag (or its qualified name by default). This is the
// function-field variant of "mapper binding": Go cannot
// synthesize a new type satisfying an arbitrary interface at runtime
// without code generation, so the bound field is the function itself
// rather than a method on a proxy implementing a user interface — the
// caller declares a mapper struct of func fields instead of an interface.
func Bind(dst any, registry *Registry, sess Session, resolveStatement func(id string) (*model.MappedStatement, bool)) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return gerror.Newf("mapping: Bind requires a pointer to a struct, got %T", dst)
	}
	elem := rv.Elem()
	mapperType := elem.Type()

	for i := 0; i < mapperType.NumField(); i++ {
		field := mapperType.Field(i)
		if !field.IsExported() || field.Type.Kind() != reflect.Func {
			continue
		}
		statementID := StatementIDFromTag(mapperType, field)
		mm, err := registry.methodFor(mapperType, field, statementID, resolveStatement)
		if err != nil {
			return err
		}
		dispatcher := newDispatcher(sess, mm)
		fn := reflect.MakeFunc(field.Type, dispatcher)
		elem.Field(i).Set(fn)
	}
	return nil
}

func newDispatcher(sess Session, mm *MapperMethod) func([]reflect.Value) []reflect.Value {
	return func(args []reflect.Value) []reflect.Value {
		ctx, bounds, parameter := mm.Signature.BindArgs(args)

		var result any
		var err error
		switch mm.Command.Kind {
		case model.StatementSelect:
			if mm.Signature.ReturnsMany {
				result, err = sess.SelectList(ctx, mm.Command.Name, parameter, bounds)
			} else {
				result, err = sess.SelectOne(ctx, mm.Command.Name, parameter)
			}
		case model.StatementInsert:
			result, err = sess.Insert(ctx, mm.Command.Name, parameter)
		case model.StatementUpdate:
			result, err = sess.Update(ctx, mm.Command.Name, parameter)
		case model.StatementDelete:
			result, err = sess.Delete(ctx, mm.Command.Name, parameter)
		default:
			err = gerror.Newf("mapping: unsupported statement kind for %s", mm.Command.Name)
		}
		return mm.Signature.BuildResults(result, err)
	}
}
