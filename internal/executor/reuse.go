package executor

import (
	"context"
	"database/sql"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
	"github.com/ayiyaha-hyd/sqlmap/internal/pool"
)

const (
	stmtIdleExpiry    = 30 * time.Minute
	stmtSweepInterval = 5 * time.Minute
)

// Reuse caches one *sql.Stmt per distinct rendered SQL text, avoiding a
// prepare round-trip on repeated identical statements. A handle expires
// stmtIdleExpiry after it was prepared (a cache hit does not extend that)
// and is then swept and closed, so a long-lived session does not pin
// every statement it ever prepared.
type Reuse struct {
	debug bool

	mu    sync.Mutex
	stmts *gocache.Cache
}

func NewReuse(debug bool) *Reuse {
	c := gocache.New(stmtIdleExpiry, stmtSweepInterval)
	c.OnEvicted(func(_ string, v interface{}) {
		if stmt, ok := v.(*sql.Stmt); ok {
			_ = stmt.Close()
		}
	})
	return &Reuse{debug: debug, stmts: c}
}

func (e *Reuse) prepare(ctx context.Context, conn *pool.PooledConnection, sqlText string) (*sql.Stmt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.stmts.Get(sqlText); ok {
		return v.(*sql.Stmt), nil
	}
	stmt, err := conn.Raw().PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	e.stmts.SetDefault(sqlText, stmt)
	return stmt, nil
}

func (e *Reuse) Query(ctx context.Context, conn *pool.PooledConnection, ms *model.MappedStatement, sqlText string, args []any) (*sql.Rows, error) {
	ctx, span := traceStatement(ctx, ms, sqlText, e.debug)
	stmt, err := e.prepare(ctx, conn, sqlText)
	if err != nil {
		finishTrace(span, err)
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	finishTrace(span, err)
	return rows, err
}

func (e *Reuse) Update(ctx context.Context, conn *pool.PooledConnection, ms *model.MappedStatement, sqlText string, args []any) (sql.Result, error) {
	ctx, span := traceStatement(ctx, ms, sqlText, e.debug)
	stmt, err := e.prepare(ctx, conn, sqlText)
	if err != nil {
		finishTrace(span, err)
		return nil, err
	}
	res, err := stmt.ExecContext(ctx, args...)
	finishTrace(span, err)
	return res, err
}

func (e *Reuse) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	// Delete fires the eviction handler, which closes each handle.
	for sqlText := range e.stmts.Items() {
		e.stmts.Delete(sqlText)
	}
	return nil
}
