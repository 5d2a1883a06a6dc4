// Package executor drives statement execution: the interceptor chain, the
// three executor styles, cache consultation, key generation, and result
// mapping (component K).
package executor

import (
	"context"
	"database/sql"

	"github.com/gogf/gf/os/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
	"github.com/ayiyaha-hyd/sqlmap/internal/pool"
)

var logger = glog.New()
var tracer = otel.Tracer("github.com/ayiyaha-hyd/sqlmap/internal/executor")

// Executor submits a MappedStatement's rendered SQL and already-resolved
// driver-value args against a connection, returning either the raw row set
// (query) or the affected-row count (update), before any result mapping is
// applied. Resolving a BoundSql's ParameterMappings into driver values
// (type-handler lookup + navigation into the parameter object) is the
// session facade's job, one layer up — executor only ever sees a flat
// []any, to avoid importing the type-handler registry here.
type Executor interface {
	Query(ctx context.Context, conn *pool.PooledConnection, ms *model.MappedStatement, sqlText string, args []any) (*sql.Rows, error)
	Update(ctx context.Context, conn *pool.PooledConnection, ms *model.MappedStatement, sqlText string, args []any) (sql.Result, error)
	Close() error
}

// Interceptor wraps one execution step. Around returns
// the (possibly substituted) result of calling next.
type Interceptor interface {
	Around(ctx context.Context, invocation *Invocation, next func() (any, error)) (any, error)
}

// Invocation is the call an Interceptor is wrapping: enough context to
// inspect or rewrite the statement/args, not to change the dispatch target.
type Invocation struct {
	Method    string // "query" or "update"
	Statement *model.MappedStatement
	Bound     *model.BoundSql
}

// Chain composes interceptors in registration order: the first-registered
// interceptor's Around is the outermost call.
type Chain struct {
	interceptors []Interceptor
}

func NewChain() *Chain { return &Chain{} }

func (c *Chain) Use(i Interceptor) { c.interceptors = append(c.interceptors, i) }

func (c *Chain) Invoke(ctx context.Context, inv *Invocation, terminal func() (any, error)) (any, error) {
	// Wrap back-to-front so the first-registered interceptor's closure is
	// built last and therefore runs outermost.
	next := terminal
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		captured, interceptor := next, c.interceptors[i]
		next = func() (any, error) {
			return interceptor.Around(ctx, inv, captured)
		}
	}
	return next()
}

// traceStatement opens a span carrying the statement id and rendered SQL
// for every dispatch, and logs the SQL when debug logging is enabled.
func traceStatement(ctx context.Context, ms *model.MappedStatement, sql string, debug bool) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "sqlmap."+ms.Kind.String(),
		trace.WithAttributes(
			attribute.String("sqlmap.statement_id", ms.ID),
			attribute.String("sqlmap.sql", sql),
		),
	)
	if debug {
		logger.Ctx(ctx).Debug(ms.ID, sql)
	}
	return ctx, span
}

func finishTrace(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
