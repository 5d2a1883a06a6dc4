package model

import "reflect"

// ParameterMode is the direction of a callable-statement parameter.
type ParameterMode int

const (
	ParamIn ParameterMode = iota
	ParamOut
	ParamInOut
)

// ParameterMapping is one placeholder's metadata: its property path plus
// enough type information to resolve a TypeHandler.
type ParameterMapping struct {
	Property    string
	Expression  string // for foreach-rewritten synthetic parameters
	JavaType    reflect.Type
	JdbcType    string
	Mode        ParameterMode
	NumericScale int
	TypeHandlerName string
}

// ParameterMap is a named, reusable group of ParameterMappings bound to a
// parameter object's type (the `<parameterMap>` element).
type ParameterMap struct {
	ID                string
	Type              reflect.Type
	ParameterMappings []*ParameterMapping
}

// BoundSql is the outcome of rendering a SqlSource for one invocation: final
// SQL text with `?` placeholders, the ordered parameter mappings, the
// original parameter object, and any additional (foreach-emitted) bindings.
type BoundSql struct {
	SQL                  string
	ParameterMappings    []*ParameterMapping
	ParameterObject      any
	AdditionalParameters map[string]any
}

// RowBounds restricts a query's result window (offset/limit applied
// client-side after the full result set is read).
type RowBounds struct {
	Offset int
	Limit  int
}

// NoRowBounds is the default, unrestricted bounds value.
var NoRowBounds = RowBounds{Offset: 0, Limit: -1}
