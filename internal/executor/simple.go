package executor

import (
	"context"
	"database/sql"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
	"github.com/ayiyaha-hyd/sqlmap/internal/pool"
)

// Simple prepares and closes a statement handle for every call — the
// default, least stateful executor style.
type Simple struct {
	debug bool
}

func NewSimple(debug bool) *Simple { return &Simple{debug: debug} }

func (e *Simple) Query(ctx context.Context, conn *pool.PooledConnection, ms *model.MappedStatement, sqlText string, args []any) (*sql.Rows, error) {
	ctx, span := traceStatement(ctx, ms, sqlText, e.debug)
	rows, err := conn.Raw().QueryContext(ctx, sqlText, args...)
	finishTrace(span, err)
	return rows, err
}

func (e *Simple) Update(ctx context.Context, conn *pool.PooledConnection, ms *model.MappedStatement, sqlText string, args []any) (sql.Result, error) {
	ctx, span := traceStatement(ctx, ms, sqlText, e.debug)
	res, err := conn.Raw().ExecContext(ctx, sqlText, args...)
	finishTrace(span, err)
	return res, err
}

func (e *Simple) Close() error { return nil }
