package executor

import (
	"context"
	"database/sql"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
	"github.com/ayiyaha-hyd/sqlmap/internal/pool"
)

// batchedCall is one queued update, held until FlushStatements is called or
// the batch is torn down.
type batchedCall struct {
	conn    *pool.PooledConnection
	ms      *model.MappedStatement
	sqlText string
	args    []any
}

// Batch defers every Update call's driver submission until FlushStatements
// runs them in enqueue order, returning one sql.Result per call. Query
// calls bypass the queue entirely (a select forces an implicit flush first,
// matching MyBatis' own BatchExecutor.doQuery).
type Batch struct {
	debug   bool
	inner   *Simple
	pending []batchedCall
}

func NewBatch(debug bool) *Batch {
	return &Batch{debug: debug, inner: NewSimple(debug)}
}

func (e *Batch) Update(ctx context.Context, conn *pool.PooledConnection, ms *model.MappedStatement, sqlText string, args []any) (sql.Result, error) {
	e.pending = append(e.pending, batchedCall{conn: conn, ms: ms, sqlText: sqlText, args: args})
	return driverResultPlaceholder{}, nil
}

func (e *Batch) Query(ctx context.Context, conn *pool.PooledConnection, ms *model.MappedStatement, sqlText string, args []any) (*sql.Rows, error) {
	if _, err := e.FlushStatements(ctx); err != nil {
		return nil, err
	}
	return e.inner.Query(ctx, conn, ms, sqlText, args)
}

// FlushStatements submits every queued update in enqueue order and returns
// their results in the same order.
func (e *Batch) FlushStatements(ctx context.Context) ([]sql.Result, error) {
	results := make([]sql.Result, 0, len(e.pending))
	for _, call := range e.pending {
		res, err := e.inner.Update(ctx, call.conn, call.ms, call.sqlText, call.args)
		if err != nil {
			e.pending = nil
			return results, err
		}
		results = append(results, res)
	}
	e.pending = nil
	return results, nil
}

func (e *Batch) Close() error {
	e.pending = nil
	return e.inner.Close()
}

// driverResultPlaceholder stands in for sql.Result until FlushStatements
// runs; a caller that inspects a Batch-queued update's result before
// flushing gets zero values rather than a panic.
type driverResultPlaceholder struct{}

func (driverResultPlaceholder) LastInsertId() (int64, error) { return 0, nil }
func (driverResultPlaceholder) RowsAffected() (int64, error) { return 0, nil }
