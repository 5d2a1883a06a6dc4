package executor

import (
	"database/sql"
	"reflect"
	"strings"

	"github.com/gogf/gf/errors/gerror"
	"github.com/gogf/gf/util/gconv"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
	"github.com/ayiyaha-hyd/sqlmap/internal/reflection"
)

// TypeHandlerResolver resolves a column's raw driver value to a Go value,
// given optional javaType/jdbcType hints (normally
// internal/reflection.Registry.Get(...).GetResult).
type TypeHandlerResolver func(javaType reflect.Type, jdbcType string, raw any) (any, error)

// NestedSelectRunner executes a nested association/collection's select
// statement for one parent row's foreign column values, returning the
// already-mapped result (one value for an association, a slice for a
// collection). Supplied by the session facade to avoid executor depending
// on statement dispatch.
type NestedSelectRunner func(selectID string, foreignValues map[string]any) (any, error)

// Mapper turns a *sql.Rows cursor into Go values per a ResultMap, handling
// auto-mapping, discriminators, and nested associations/collections,
// folding consecutive rows that share an id key into one parent.
type Mapper struct {
	byID     map[string]*model.ResultMap
	resolve  TypeHandlerResolver
	nav      *reflection.Navigator
	autoMode model.AutoMappingBehavior
	factory  reflection.ObjectFactory
}

func NewMapper(byID map[string]*model.ResultMap, resolve TypeHandlerResolver, nav *reflection.Navigator, autoMode model.AutoMappingBehavior) *Mapper {
	return &Mapper{byID: byID, resolve: resolve, nav: nav, autoMode: autoMode, factory: reflection.DefaultObjectFactory{}}
}

// WithObjectFactory swaps the instance constructor used for mapped rows.
func (m *Mapper) WithObjectFactory(f reflection.ObjectFactory) *Mapper {
	if f != nil {
		m.factory = f
	}
	return m
}

// MapRows maps every row in rows into a new instance of resultMap.Type
// (or its discriminated variant), returning them in cursor order.
//
// Rows whose ResultMap has nested collections are accumulated with a
// streaming id-change flush: consecutive rows sharing the same id-mapping
// values are folded into one parent with an appended collection entry;
// a change in the id value flushes the previous parent and starts a new
// one. This trades full eager-join grouping (which needs to buffer the
// entire result set) for a single linear pass, so a statement with nested
// collections must keep its driving query ordered by its id columns.
//
// Instances are held as pointers while the cursor is consumed, so the
// same-id continuation case can mutate the parent in place; the final
// pass dereferences them back to values.
func (m *Mapper) MapRows(rows *sql.Rows, resultMap *model.ResultMap, nested NestedSelectRunner) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []any
	var currentKey string
	var current any

	for rows.Next() {
		raw, err := scanRow(rows, columns)
		if err != nil {
			return nil, err
		}

		target := model.Resolve(m.byID, resultMap, func(column string) (string, bool) {
			v, ok := raw[column]
			if !ok {
				return "", false
			}
			return gconv.String(v), true
		})

		idKey := idKeyOf(target, raw)
		if target.HasNestedResultMaps && idKey != "" && idKey == currentKey {
			if err := m.applyCollections(current, target, raw, nested); err != nil {
				return nil, err
			}
			continue
		}

		instance, err := m.mapOneRow(target, raw, columns, nested)
		if err != nil {
			return nil, err
		}
		out = append(out, instance)
		current = instance
		currentKey = idKey
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, v := range out {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && !rv.IsNil() {
			out[i] = rv.Elem().Interface()
		}
	}
	return out, nil
}

func scanRow(rows *sql.Rows, columns []string) (map[string]any, error) {
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	raw := make(map[string]any, len(columns))
	for i, col := range columns {
		raw[col] = values[i]
	}
	return raw, nil
}

func idKeyOf(rm *model.ResultMap, raw map[string]any) string {
	if len(rm.IDMappings) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, m := range rm.IDMappings {
		sb.WriteString(gconv.String(raw[m.Column]))
		sb.WriteByte('\x1f')
	}
	return sb.String()
}

func (m *Mapper) mapOneRow(rm *model.ResultMap, raw map[string]any, columns []string, nested NestedSelectRunner) (any, error) {
	if rm.Type == nil {
		return raw, nil
	}
	instance := m.factory.Create(rm.Type)

	mapped := rm.MappedColumns()
	for _, rmEntry := range rm.Mappings {
		if rmEntry.NestedResultMapID != "" || rmEntry.NestedSelectID != "" {
			if err := m.applyAssociationOrCollection(instance, rm, rmEntry, raw, nested); err != nil {
				return nil, err
			}
			continue
		}
		colVal, ok := raw[rmEntry.Column]
		if !ok {
			continue
		}
		value, err := m.resolve(rmEntry.JavaType, rmEntry.JdbcType, colVal)
		if err != nil {
			return nil, err
		}
		if err := m.nav.Set(instance, rmEntry.Property, value); err != nil {
			return nil, err
		}
	}

	if m.autoMode != model.AutoMappingNone {
		for col, colVal := range raw {
			if mapped[col] {
				continue
			}
			if err := m.nav.Set(instance, autoMapColumnName(col), colVal); err != nil && m.autoMode == model.AutoMappingFull {
				return nil, gerror.Wrap(err, "executor: auto-map column "+col)
			}
		}
	}

	return instance, nil
}

// autoMapColumnName converts snake_case to CamelCase for auto-mapping
// (the mapUnderscoreToCamelCase setting applied at the property-name
// level since navigation works on Go field names).
func autoMapColumnName(column string) string {
	parts := strings.Split(column, "_")
	var sb strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(p[:1]))
		sb.WriteString(p[1:])
	}
	return sb.String()
}

func (m *Mapper) applyAssociationOrCollection(instance any, rm *model.ResultMap, mapping *model.ResultMapping, raw map[string]any, nested NestedSelectRunner) error {
	if mapping.NestedSelectID != "" {
		if nested == nil {
			return gerror.Newf("executor: nested select %s requires a NestedSelectRunner", mapping.NestedSelectID)
		}
		foreign := map[string]any{mapping.Column: raw[mapping.Column]}
		value, err := nested(mapping.NestedSelectID, foreign)
		if err != nil {
			return err
		}
		return m.nav.Set(instance, mapping.Property, value)
	}

	nestedMap, ok := m.byID[mapping.NestedResultMapID]
	if !ok {
		return gerror.Newf("executor: nested resultMap %s not found", mapping.NestedResultMapID)
	}
	child, err := m.mapOneRow(nestedMap, prefixedColumns(raw, mapping.ColumnPrefix), nil, nested)
	if err != nil {
		return err
	}
	if mapping.IsCollection {
		return m.appendCollection(instance, mapping.Property, child)
	}
	return m.nav.Set(instance, mapping.Property, child)
}

// applyCollections extends an already-mapped parent's collection fields
// with the current row's nested entries, for the streaming accumulator's
// same-id continuation case.
func (m *Mapper) applyCollections(parent any, rm *model.ResultMap, raw map[string]any, nested NestedSelectRunner) error {
	for _, mapping := range rm.Mappings {
		if mapping.NestedResultMapID == "" || !mapping.IsCollection {
			continue
		}
		nestedMap, ok := m.byID[mapping.NestedResultMapID]
		if !ok {
			continue
		}
		child, err := m.mapOneRow(nestedMap, prefixedColumns(raw, mapping.ColumnPrefix), nil, nested)
		if err != nil {
			return err
		}
		if err := m.appendCollection(parent, mapping.Property, child); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mapper) appendCollection(instance any, property string, child any) error {
	cv := reflect.ValueOf(child)
	if cv.Kind() == reflect.Ptr && !cv.IsNil() {
		cv = cv.Elem()
	}
	current, _ := m.nav.Get(instance, property)
	slice := reflect.ValueOf(current)
	if !slice.IsValid() || slice.Kind() != reflect.Slice {
		slice = reflect.MakeSlice(reflect.SliceOf(cv.Type()), 0, 1)
	}
	elemType := slice.Type().Elem()
	if cv.Type() != elemType {
		if !cv.Type().ConvertibleTo(elemType) {
			return gerror.Newf("executor: cannot append %s to collection %s of %s", cv.Type(), property, elemType)
		}
		cv = cv.Convert(elemType)
	}
	slice = reflect.Append(slice, cv)
	return m.nav.Set(instance, property, slice.Interface())
}

func prefixedColumns(raw map[string]any, prefix string) map[string]any {
	if prefix == "" {
		return raw
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}
