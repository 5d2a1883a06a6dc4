package mapping

import (
	"context"
	"reflect"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
)

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
var rowBoundsType = reflect.TypeOf(model.RowBounds{})
var errType = reflect.TypeOf((*error)(nil)).Elem()

// MethodSignature classifies one mapper field's Go func type: its
// parameters and its return shape, computed once per field and cached
// alongside the MapperMethod it belongs to.
type MethodSignature struct {
	funcType reflect.Type

	ContextIndex   int // -1 if the func takes no context.Context
	RowBoundsIndex int // -1 if the func takes no model.RowBounds

	ReturnsMany bool
	ReturnsMap  bool
	ReturnsVoid bool
	ElemType    reflect.Type // slice/map element type when ReturnsMany/ReturnsMap

	ResultIndex int // index of the non-error return value, -1 if none
	ErrorIndex  int // index of the error return value, -1 if none
}

// AnalyzeFuncType inspects a mapper struct field's func type. Multiple
// non-context, non-RowBounds arguments are bound under synthetic names
// "param1", "param2", ... (mirroring ParamNameResolver's fallback when no
// explicit parameter-name annotation is available, since Go has none).
func AnalyzeFuncType(ft reflect.Type) *MethodSignature {
	sig := &MethodSignature{funcType: ft, ContextIndex: -1, RowBoundsIndex: -1, ResultIndex: -1, ErrorIndex: -1}

	for i := 0; i < ft.NumIn(); i++ {
		in := ft.In(i)
		switch in {
		case ctxType:
			sig.ContextIndex = i
		case rowBoundsType:
			sig.RowBoundsIndex = i
		}
	}

	switch ft.NumOut() {
	case 0:
		sig.ReturnsVoid = true
	default:
		for i := 0; i < ft.NumOut(); i++ {
			if ft.Out(i) == errType {
				sig.ErrorIndex = i
				continue
			}
			sig.ResultIndex = i
			switch ft.Out(i).Kind() {
			case reflect.Slice:
				sig.ReturnsMany = true
				sig.ElemType = ft.Out(i).Elem()
			case reflect.Map:
				sig.ReturnsMap = true
				sig.ElemType = ft.Out(i).Elem()
			}
		}
	}
	return sig
}

func syntheticParamName(n int) string {
	const digits = "0123456789"
	if n < 10 {
		return "param" + string(digits[n])
	}
	buf := []byte{}
	for n > 0 {
		buf = append([]byte{digits[n%10]}, buf...)
		n /= 10
	}
	return "param" + string(buf)
}

// BindArgs maps a call's actual argument values onto a single parameter
// object per MyBatis' own convention: one non-special argument binds
// directly as the statement's sole parameter object; two or more bind as a
// map keyed "param1".."paramN".
func (s *MethodSignature) BindArgs(args []reflect.Value) (ctx context.Context, bounds model.RowBounds, parameter any) {
	bounds = model.NoRowBounds
	var values []any
	for i, v := range args {
		switch i {
		case s.ContextIndex:
			if c, ok := v.Interface().(context.Context); ok {
				ctx = c
			}
		case s.RowBoundsIndex:
			if b, ok := v.Interface().(model.RowBounds); ok {
				bounds = b
			}
		default:
			values = append(values, v.Interface())
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	switch len(values) {
	case 0:
		return ctx, bounds, nil
	case 1:
		return ctx, bounds, values[0]
	default:
		m := make(map[string]any, len(values))
		for i, v := range values {
			m[syntheticParamName(i+1)] = v
		}
		return ctx, bounds, m
	}
}

// BuildResults converts a dispatch's (result, err) pair into the []reflect.Value
// shape the bound func field must return, zero-valuing a void result slot
// and nil-ing the error slot on success.
func (s *MethodSignature) BuildResults(result any, err error) []reflect.Value {
	out := make([]reflect.Value, s.funcType.NumOut())
	for i := range out {
		out[i] = reflect.Zero(s.funcType.Out(i))
	}
	if s.ErrorIndex >= 0 {
		if err != nil {
			out[s.ErrorIndex] = reflect.ValueOf(err)
		} else {
			out[s.ErrorIndex] = reflect.Zero(errType)
		}
	}
	if err != nil || s.ResultIndex < 0 || result == nil {
		return out
	}
	out[s.ResultIndex] = coerce(result, s.funcType.Out(s.ResultIndex))
	return out
}

// coerce adapts a dynamically-typed dispatch result (any, []any, int64) onto
// the func field's declared return type, covering the shapes
// session.SelectOne/SelectList/Insert/Update/Delete actually produce.
func coerce(result any, want reflect.Type) reflect.Value {
	rv := reflect.ValueOf(result)
	if rv.Type().AssignableTo(want) {
		return rv
	}
	if want.Kind() == reflect.Ptr && rv.Kind() != reflect.Ptr {
		if rv.Type().AssignableTo(want.Elem()) {
			ptr := reflect.New(want.Elem())
			ptr.Elem().Set(rv)
			return ptr
		}
	}
	if want.Kind() == reflect.Slice && rv.Kind() == reflect.Slice {
		out := reflect.MakeSlice(want, rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i)
			if elem.Kind() == reflect.Interface {
				elem = elem.Elem()
			}
			out.Index(i).Set(coerce(elem.Interface(), want.Elem()))
		}
		return out
	}
	if rv.Type().ConvertibleTo(want) {
		return rv.Convert(want)
	}
	return reflect.Zero(want)
}
