// Package model holds the immutable-at-runtime data shapes produced by
// configuration assembly and consulted by the dynamic SQL engine, the
// executor, and mapper binding: MappedStatement, ResultMap, ParameterMapping
// and friends.
package model

import "time"

// StatementKind is the SQL command category of a MappedStatement.
type StatementKind int

const (
	StatementUnknown StatementKind = iota
	StatementSelect
	StatementInsert
	StatementUpdate
	StatementDelete
	StatementFlush
)

func (k StatementKind) String() string {
	switch k {
	case StatementSelect:
		return "SELECT"
	case StatementInsert:
		return "INSERT"
	case StatementUpdate:
		return "UPDATE"
	case StatementDelete:
		return "DELETE"
	case StatementFlush:
		return "FLUSH"
	default:
		return "UNKNOWN"
	}
}

// StatementStyle controls how the rendered SQL is submitted to the driver.
type StatementStyle int

const (
	StylePlain StatementStyle = iota
	StylePrepared
	StyleCallable
)

// KeyGeneratorKind selects how generated primary keys are recovered.
type KeyGeneratorKind int

const (
	KeyGeneratorNone KeyGeneratorKind = iota
	KeyGeneratorDriver
	KeyGeneratorSelectKey
)

// SqlSource produces a BoundSql for a given parameter object; satisfied by
// both the raw (static) source and the dynamic-SQL compiled source.
type SqlSource interface {
	GetBoundSql(parameterObject any, databaseID string) (*BoundSql, error)
	// Dynamic reports whether this source must be re-evaluated per call.
	Dynamic() bool
}

// MappedStatement is the executable contract of one SQL operation. Created
// once during configuration assembly and never mutated thereafter.
type MappedStatement struct {
	ID             string
	Namespace      string
	Kind           StatementKind
	SqlSource      SqlSource
	Style          StatementStyle
	FetchSize      int
	Timeout        time.Duration
	ResultOrdered  bool
	FlushOnExecute bool
	UseCache       bool

	ParameterMap *ParameterMap
	ResultMaps   []*ResultMap

	KeyGenerator   KeyGeneratorKind
	KeyProperties  []string
	KeyColumns     []string
	SelectKeyStmt  *MappedStatement // statement to run for KeyGeneratorSelectKey
	SelectKeyBefore bool

	DatabaseID string
}

// LocalID is the unqualified statement id (after the last namespace dot).
func (ms *MappedStatement) LocalID() string {
	for i := len(ms.ID) - 1; i >= 0; i-- {
		if ms.ID[i] == '.' {
			return ms.ID[i+1:]
		}
	}
	return ms.ID
}
