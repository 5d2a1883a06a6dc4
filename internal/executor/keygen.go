package executor

import (
	"context"
	"database/sql"

	"github.com/gogf/gf/errors/gerror"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
	"github.com/ayiyaha-hyd/sqlmap/internal/reflection"
)

// KeyAssigner writes a generated key back onto the parameter object after
// an insert, per the statement's KeyGeneratorKind.
type KeyAssigner struct {
	nav *reflection.Navigator
}

func NewKeyAssigner(nav *reflection.Navigator) *KeyAssigner { return &KeyAssigner{nav: nav} }

// AssignDriverGenerated reads the driver-reported last-insert-id and writes
// it onto ms.KeyProperties[0] of parameterObject (single-column case; the
// common path for MySQL/SQLite auto-increment columns).
func (k *KeyAssigner) AssignDriverGenerated(ms *model.MappedStatement, result sql.Result, parameterObject any) error {
	if len(ms.KeyProperties) == 0 {
		return nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return gerror.Wrap(err, "executor: read generated key")
	}
	return k.nav.Set(parameterObject, ms.KeyProperties[0], id)
}

// RunSelectKey executes the statement's `<selectKey>` sibling — already
// resolved as ms.SelectKeyStmt — via runSelect, and writes each returned
// column onto the matching KeyProperties entry. runSelect is supplied by
// the session facade, since only it knows how to dispatch a nested
// MappedStatement end-to-end (render → execute → map one row).
func (k *KeyAssigner) RunSelectKey(ctx context.Context, ms *model.MappedStatement, parameterObject any, runSelect func(context.Context, *model.MappedStatement, any) (map[string]any, error)) error {
	if ms.SelectKeyStmt == nil {
		return nil
	}
	row, err := runSelect(ctx, ms.SelectKeyStmt, parameterObject)
	if err != nil {
		return gerror.Wrap(err, "executor: run selectKey")
	}
	for i, prop := range ms.KeyProperties {
		var column string
		if i < len(ms.KeyColumns) {
			column = ms.KeyColumns[i]
		} else if len(ms.KeyColumns) == 1 {
			column = ms.KeyColumns[0]
		}
		value, ok := row[column]
		if !ok && len(row) == 1 {
			for _, v := range row {
				value = v
			}
			ok = true
		}
		if !ok {
			continue
		}
		if err := k.nav.Set(parameterObject, prop, value); err != nil {
			return err
		}
	}
	return nil
}
