package sqlmap

import (
	"context"
	"database/sql"
	"reflect"
	"strings"
	"sync"

	"github.com/gogf/gf/errors/gerror"

	"github.com/ayiyaha-hyd/sqlmap/internal/cache"
	"github.com/ayiyaha-hyd/sqlmap/internal/errctx"
	"github.com/ayiyaha-hyd/sqlmap/internal/executor"
	"github.com/ayiyaha-hyd/sqlmap/internal/model"
	"github.com/ayiyaha-hyd/sqlmap/internal/pool"
	"github.com/ayiyaha-hyd/sqlmap/mapping"
)

// cachedPut is one deferred second-level-cache write awaiting commit.
type cachedPut struct {
	key   *cache.Key
	value any
}

// SqlSession is one unit-of-work bound to an Environment: it dispatches
// select/insert/update/delete against a MappedStatement, keeps a
// first-level cache of every query it has run (cleared on any mutation,
// commit, rollback, or close), buffers second-level cache writes/flushes
// until Commit, and discards them on Rollback. Sessions are
// single-threaded; open one per goroutine.
type SqlSession struct {
	cfg *Configuration
	env *Environment
	tx  pool.Transaction
	exec executor.Executor
	keyAssigner *executor.KeyAssigner

	mu           sync.Mutex
	localCache   map[string][]any // first-level: every query, regardless of useCache
	pendingPuts  map[string]map[string]cachedPut
	pendingFlush map[string]bool
	closed       bool
}

// OpenSession begins a unit-of-work against the named environment ("" for
// the configured default). autoCommit selects the connection-managed vs
// externally-managed transaction flavor.
func (c *Configuration) OpenSession(envID string, autoCommit bool) (*SqlSession, error) {
	env, ok := c.Environment(envID)
	if !ok {
		return nil, gerror.Newf("sqlmap: unknown environment %q", envID)
	}

	var exec executor.Executor
	switch c.settings.DefaultExecutorType {
	case "reuse":
		exec = executor.NewReuse(false)
	case "batch":
		exec = executor.NewBatch(false)
	default:
		exec = executor.NewSimple(false)
	}

	return &SqlSession{
		cfg:          c,
		env:          env,
		tx:           env.NewTransaction(autoCommit),
		exec:         exec,
		keyAssigner:  executor.NewKeyAssigner(c.nav),
		localCache:   map[string][]any{},
		pendingPuts:  map[string]map[string]cachedPut{},
		pendingFlush: map[string]bool{},
	}, nil
}

func (s *SqlSession) statement(id string) (*model.MappedStatement, error) {
	ms, ok := s.cfg.GetMappedStatement(id)
	if !ok {
		return nil, gerror.Newf("sqlmap: no statement registered for %q", id)
	}
	return ms, nil
}

func (s *SqlSession) resolveArgs(bound *model.BoundSql) []any {
	args := make([]any, 0, len(bound.ParameterMappings))
	for _, pm := range bound.ParameterMappings {
		value, ok := bound.AdditionalParameters[pm.Property]
		if !ok {
			// A foreach-rewritten path like __frch_item_0.field roots at an
			// additional parameter and navigates the remainder.
			if i := strings.IndexByte(pm.Property, '.'); i > 0 {
				if root, rootOk := bound.AdditionalParameters[pm.Property[:i]]; rootOk {
					value, ok = s.cfg.nav.Get(root, pm.Property[i+1:])
				}
			}
		}
		if !ok {
			value, _ = s.cfg.nav.Get(bound.ParameterObject, pm.Property)
		}
		if handler := s.cfg.typeHandlers.Get(pm.JavaType, pm.JdbcType); handler != nil {
			if driverValue, err := handler.SetParameter(value, pm.JdbcType); err == nil {
				args = append(args, driverValue)
				continue
			}
		}
		args = append(args, value)
	}
	return args
}

// SelectOne runs a select statement expected to produce at most one row.
func (s *SqlSession) SelectOne(ctx context.Context, statementID string, parameter any) (any, error) {
	rows, err := s.selectRows(ctx, statementID, parameter, model.RowBounds{Offset: 0, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// SelectList runs a select statement, applying RowBounds' app-level
// offset/limit over the fully materialized result set.
func (s *SqlSession) SelectList(ctx context.Context, statementID string, parameter any, bounds model.RowBounds) ([]any, error) {
	return s.selectRows(ctx, statementID, parameter, bounds)
}

func (s *SqlSession) selectRows(ctx context.Context, statementID string, parameter any, bounds model.RowBounds) ([]any, error) {
	ec := errctx.New(statementID)
	defer ec.Push("executing a query")()

	ms, err := s.statement(statementID)
	if err != nil {
		return nil, ec.Wrap(err)
	}
	bound, err := ms.SqlSource.GetBoundSql(parameter, s.env.DatabaseID)
	if err != nil {
		return nil, ec.Wrap(err)
	}
	ec.StoreSQL(bound.SQL)
	args := s.resolveArgs(bound)

	// Second-level (namespace-shared, useCache-gated) first, then the
	// session's own first-level cache.
	cacheKey := executor.BuildCacheKey(ms, bounds, bound.SQL, args, s.env.DatabaseID)
	if ms.UseCache {
		if cached, ok := s.cacheGet(ms.Namespace, cacheKey); ok {
			return cached.([]any), nil
		}
	}
	if cached, ok := s.localCacheGet(cacheKey); ok {
		return cached, nil
	}

	inv := &executor.Invocation{Method: "query", Statement: ms, Bound: bound}
	result, err := s.cfg.interceptors.Invoke(ctx, inv, func() (any, error) {
		conn, err := s.tx.GetConnection(ctx)
		if err != nil {
			return nil, err
		}
		return s.exec.Query(ctx, conn, ms, bound.SQL, args)
	})
	if err != nil {
		return nil, ec.Wrap(err)
	}
	rows := result.(*sql.Rows)
	defer rows.Close()

	resultMap := s.resultMapFor(ms)

	var mapped []any
	if resultMap == nil {
		// No <resultMap>/resultType declared: fall back to one
		// map[string]any per row, MyBatis' own untyped-query behavior.
		mapped, err = scanUntypedRows(rows)
	} else {
		byID := s.cfg.byResultMapID()
		mapper := executor.NewMapper(byID, s.resolveColumn, s.cfg.nav, s.autoMappingFor(resultMap)).
			WithObjectFactory(s.cfg.objectFactory)
		nested := func(selectID string, foreignValues map[string]any) (any, error) {
			return s.SelectOne(ctx, selectID, foreignValues)
		}
		mapped, err = mapper.MapRows(rows, resultMap, nested)
		// A statement declaring several result maps consumes one driver
		// result set per map; the return value is then one []any element
		// per result set, in declaration order.
		if err == nil && len(ms.ResultMaps) > 1 {
			all := []any{any(mapped)}
			for i := 1; i < len(ms.ResultMaps) && rows.NextResultSet(); i++ {
				next, nextErr := mapper.MapRows(rows, ms.ResultMaps[i], nested)
				if nextErr != nil {
					err = nextErr
					break
				}
				all = append(all, any(next))
			}
			if err == nil {
				mapped = all
			}
		}
	}
	if err != nil {
		return nil, ec.Wrap(err)
	}
	mapped = applyRowBounds(mapped, bounds)

	s.localCachePut(cacheKey, mapped)
	if ms.UseCache {
		s.cachePut(ms.Namespace, cacheKey, mapped)
	}
	return mapped, nil
}

func (s *SqlSession) localCacheGet(key *cache.Key) ([]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.localCache[key.String()]
	return rows, ok
}

func (s *SqlSession) localCachePut(key *cache.Key, rows []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localCache[key.String()] = rows
}

func (s *SqlSession) resolveColumn(javaType reflect.Type, jdbcType string, raw any) (any, error) {
	if handler := s.cfg.typeHandlers.Get(javaType, jdbcType); handler != nil {
		return handler.GetResult(raw)
	}
	return raw, nil
}

func scanUntypedRows(rows *sql.Rows) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func applyRowBounds(rows []any, bounds model.RowBounds) []any {
	if bounds.Offset <= 0 && bounds.Limit < 0 {
		return rows
	}
	start := bounds.Offset
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if bounds.Limit >= 0 && start+bounds.Limit < end {
		end = start + bounds.Limit
	}
	return rows[start:end]
}

func (s *SqlSession) resultMapFor(ms *model.MappedStatement) *model.ResultMap {
	if len(ms.ResultMaps) == 0 {
		return nil
	}
	return ms.ResultMaps[0]
}

func (s *SqlSession) autoMappingFor(rm *model.ResultMap) model.AutoMappingBehavior {
	if rm != nil && rm.AutoMapping != nil {
		return *rm.AutoMapping
	}
	return s.cfg.settings.AutoMappingBehavior
}

// Insert runs an insert statement, assigning generated keys back onto
// parameter per the statement's configured KeyGenerator.
func (s *SqlSession) Insert(ctx context.Context, statementID string, parameter any) (int64, error) {
	result, err := s.execute(ctx, statementID, parameter)
	if err != nil {
		return 0, err
	}
	ms, _ := s.statement(statementID)
	if ms.KeyGenerator == model.KeyGeneratorDriver {
		if err := s.keyAssigner.AssignDriverGenerated(ms, result, parameter); err != nil {
			logger.Warningf("sqlmap: assign generated key for %s: %v", statementID, err)
		}
	} else if ms.KeyGenerator == model.KeyGeneratorSelectKey && ms.SelectKeyStmt != nil {
		runSelect := func(ctx context.Context, selectMs *model.MappedStatement, param any) (map[string]any, error) {
			row, err := s.SelectOne(ctx, selectMs.ID, param)
			if err != nil || row == nil {
				return nil, err
			}
			if m, ok := row.(map[string]any); ok {
				return m, nil
			}
			return nil, nil
		}
		if err := s.keyAssigner.RunSelectKey(ctx, ms, parameter, runSelect); err != nil {
			logger.Warningf("sqlmap: selectKey for %s: %v", statementID, err)
		}
	}
	return result.RowsAffected()
}

// Update runs an update statement, returning the affected row count.
func (s *SqlSession) Update(ctx context.Context, statementID string, parameter any) (int64, error) {
	result, err := s.execute(ctx, statementID, parameter)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Delete runs a delete statement, returning the affected row count.
func (s *SqlSession) Delete(ctx context.Context, statementID string, parameter any) (int64, error) {
	result, err := s.execute(ctx, statementID, parameter)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SqlSession) execute(ctx context.Context, statementID string, parameter any) (sql.Result, error) {
	ec := errctx.New(statementID)
	defer ec.Push("executing an update")()

	ms, err := s.statement(statementID)
	if err != nil {
		return nil, ec.Wrap(err)
	}
	bound, err := ms.SqlSource.GetBoundSql(parameter, s.env.DatabaseID)
	if err != nil {
		return nil, ec.Wrap(err)
	}
	ec.StoreSQL(bound.SQL)
	args := s.resolveArgs(bound)

	inv := &executor.Invocation{Method: "update", Statement: ms, Bound: bound}
	result, err := s.cfg.interceptors.Invoke(ctx, inv, func() (any, error) {
		conn, err := s.tx.GetConnection(ctx)
		if err != nil {
			return nil, err
		}
		return s.exec.Update(ctx, conn, ms, bound.SQL, args)
	})
	if err != nil {
		return nil, ec.Wrap(err)
	}
	s.mu.Lock()
	// Any mutation invalidates the session's first-level cache and its
	// buffered second-level writes.
	s.localCache = map[string][]any{}
	s.pendingPuts = map[string]map[string]cachedPut{}
	if ms.FlushOnExecute {
		s.pendingFlush[ms.Namespace] = true
	}
	s.mu.Unlock()
	return result.(sql.Result), nil
}

// GetMapper binds every exported func-typed field of dst to this session,
// dispatching through mapping.Bind (component L).
func (s *SqlSession) GetMapper(dst any) error {
	return mapping.Bind(dst, s.cfg.mapperRegistry(), s, s.cfg.GetMappedStatement)
}

// Commit flushes any deferred second-level cache writes/invalidations and
// commits the underlying transaction.
func (s *SqlSession) Commit() error {
	s.mu.Lock()
	flush := s.pendingFlush
	puts := s.pendingPuts
	s.localCache = map[string][]any{}
	s.pendingFlush = map[string]bool{}
	s.pendingPuts = map[string]map[string]cachedPut{}
	s.mu.Unlock()

	for namespace := range flush {
		if c, ok := s.cfg.cacheFor(namespace); ok {
			c.Clear()
		}
	}
	for namespace, entries := range puts {
		if flush[namespace] {
			continue
		}
		c, ok := s.cfg.cacheFor(namespace)
		if !ok {
			continue
		}
		for _, e := range entries {
			c.Put(e.key, e.value)
		}
	}
	return s.tx.Commit()
}

// Rollback discards any deferred second-level cache writes/invalidations
// and rolls back the underlying transaction.
func (s *SqlSession) Rollback() error {
	s.mu.Lock()
	s.localCache = map[string][]any{}
	s.pendingFlush = map[string]bool{}
	s.pendingPuts = map[string]map[string]cachedPut{}
	s.mu.Unlock()
	return s.tx.Rollback()
}

// Close releases the session's connection back to the pool. Safe to call
// after Commit/Rollback or instead of either (an unflushed session closes
// as an implicit rollback of its cache buffer, matching Commit/Rollback's
// own discard semantics).
func (s *SqlSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.localCache = map[string][]any{}
	s.mu.Unlock()

	_ = s.exec.Close()
	return s.tx.Close()
}

func (s *SqlSession) cacheGet(namespace string, key *cache.Key) (any, bool) {
	s.mu.Lock()
	if byKey, ok := s.pendingPuts[namespace]; ok {
		if e, ok := byKey[key.String()]; ok {
			s.mu.Unlock()
			return e.value, true
		}
	}
	s.mu.Unlock()

	c, ok := s.cfg.cacheFor(namespace)
	if !ok {
		return nil, false
	}
	return c.Get(key)
}

func (s *SqlSession) cachePut(namespace string, key *cache.Key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKey, ok := s.pendingPuts[namespace]
	if !ok {
		byKey = map[string]cachedPut{}
		s.pendingPuts[namespace] = byKey
	}
	byKey[key.String()] = cachedPut{key: key, value: value}
}

func (c *Configuration) cacheFor(namespace string) (cache.Cache, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.caches[namespace]
	return ch, ok
}

func (c *Configuration) byResultMapID() map[string]*model.ResultMap {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resultMaps
}

var sharedMapperRegistry = mapping.NewRegistry()

func (c *Configuration) mapperRegistry() *mapping.Registry {
	return sharedMapperRegistry
}
