package model

import "reflect"

// ResultFlag marks special handling for one ResultMapping.
type ResultFlag int

const (
	FlagNone ResultFlag = iota
	FlagID
	FlagConstructorArg
)

// ResultMapping binds one column to one property of the target type,
// or describes a nested association/collection.
type ResultMapping struct {
	Property    string
	Column      string
	JavaType    reflect.Type
	JdbcType    string
	TypeHandlerName string
	Flags       []ResultFlag

	// Nested association/collection.
	NestedResultMapID string
	NestedSelectID    string // nested select statement id, for lazy/eager join
	IsCollection      bool   // <collection> appends per row; <association> sets once
	ColumnPrefix      string
	NotNullColumns    []string
	ForeignColumn     string // column(s) used to key the nested select's params
}

func (m *ResultMapping) HasFlag(f ResultFlag) bool {
	for _, x := range m.Flags {
		if x == f {
			return true
		}
	}
	return false
}

// Discriminator picks among alternative ResultMaps for one row based on a
// column's value.
type Discriminator struct {
	Column   string
	JdbcType string
	JavaType reflect.Type
	// CaseMap maps the column's rendered value to a ResultMap id.
	CaseMap map[string]string
}

// ResultMap binds columns of a query result to properties of a target Go
// type. Built once at configuration time; read-only thereafter.
type ResultMap struct {
	ID        string
	Type      reflect.Type
	Mappings  []*ResultMapping

	IDMappings          []*ResultMapping
	ConstructorMappings []*ResultMapping

	Discriminator *Discriminator

	HasNestedResultMaps bool
	HasNestedQueries    bool

	// AutoMapping overrides the configuration-level autoMappingBehavior for
	// this result map specifically; nil means "inherit".
	AutoMapping *AutoMappingBehavior
}

// AutoMappingBehavior controls automatic column-to-property mapping for
// columns not explicitly listed in a ResultMap.
type AutoMappingBehavior int

const (
	AutoMappingNone AutoMappingBehavior = iota
	AutoMappingPartial
	AutoMappingFull
)

// MappedColumns returns the set of column names this result map explicitly
// addresses (used to decide which remaining columns are auto-mapped).
func (rm *ResultMap) MappedColumns() map[string]bool {
	set := make(map[string]bool, len(rm.Mappings))
	for _, m := range rm.Mappings {
		if m.Column != "" {
			set[m.Column] = true
		}
	}
	return set
}

// Resolve picks the concrete ResultMap for a row given the discriminator's
// column value, following the chain of discriminators (a discriminated
// result map may itself discriminate further).
func Resolve(byID map[string]*ResultMap, start *ResultMap, columnValue func(column string) (string, bool)) *ResultMap {
	current := start
	seen := map[string]bool{}
	for current != nil && current.Discriminator != nil && !seen[current.ID] {
		seen[current.ID] = true
		val, ok := columnValue(current.Discriminator.Column)
		if !ok {
			break
		}
		nextID, ok := current.Discriminator.CaseMap[val]
		if !ok {
			break
		}
		next, ok := byID[nextID]
		if !ok || next == current {
			break
		}
		current = next
	}
	return current
}
