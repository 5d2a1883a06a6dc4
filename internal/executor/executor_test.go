package executor

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
	"github.com/ayiyaha-hyd/sqlmap/internal/reflection"
)

func TestBuildCacheKeyEquality(t *testing.T) {
	ms := &model.MappedStatement{ID: "shop.UserMapper.selectById"}
	bounds := model.NoRowBounds

	k1 := BuildCacheKey(ms, bounds, "select * from user where id = ?", []any{int64(42)}, "mysql")
	k2 := BuildCacheKey(ms, bounds, "select * from user where id = ?", []any{int64(42)}, "mysql")
	assert.True(t, k1.Equals(k2))
}

func TestBuildCacheKeyDiffersOnAnyComponent(t *testing.T) {
	ms := &model.MappedStatement{ID: "shop.UserMapper.selectById"}
	base := BuildCacheKey(ms, model.NoRowBounds, "select 1", []any{int64(1)}, "")

	otherArgs := BuildCacheKey(ms, model.NoRowBounds, "select 1", []any{int64(2)}, "")
	assert.False(t, base.Equals(otherArgs))

	otherBounds := BuildCacheKey(ms, model.RowBounds{Offset: 10, Limit: 5}, "select 1", []any{int64(1)}, "")
	assert.False(t, base.Equals(otherBounds))

	otherSQL := BuildCacheKey(ms, model.NoRowBounds, "select 2", []any{int64(1)}, "")
	assert.False(t, base.Equals(otherSQL))

	withDB := BuildCacheKey(ms, model.NoRowBounds, "select 1", []any{int64(1)}, "postgresql")
	assert.False(t, base.Equals(withDB))
}

// recordingInterceptor appends its tag around the downstream call so the
// nesting order is observable.
type recordingInterceptor struct {
	tag   string
	trace *[]string
}

func (r recordingInterceptor) Around(ctx context.Context, inv *Invocation, next func() (any, error)) (any, error) {
	*r.trace = append(*r.trace, "enter:"+r.tag)
	out, err := next()
	*r.trace = append(*r.trace, "exit:"+r.tag)
	return out, err
}

func TestChainRunsFirstRegisteredOutermost(t *testing.T) {
	var trace []string
	c := NewChain()
	c.Use(recordingInterceptor{tag: "first", trace: &trace})
	c.Use(recordingInterceptor{tag: "second", trace: &trace})

	out, err := c.Invoke(context.Background(), &Invocation{Method: "query"}, func() (any, error) {
		trace = append(trace, "terminal")
		return "rows", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "rows", out)
	assert.Equal(t, []string{"enter:first", "enter:second", "terminal", "exit:second", "exit:first"}, trace)
}

func TestChainInterceptorMaySubstituteResult(t *testing.T) {
	c := NewChain()
	c.Use(recordingInterceptor{tag: "pass", trace: &[]string{}})
	c.Use(substitutingInterceptor{})

	out, err := c.Invoke(context.Background(), &Invocation{}, func() (any, error) { return "original", nil })
	require.NoError(t, err)
	assert.Equal(t, "replaced", out)
}

type substitutingInterceptor struct{}

func (substitutingInterceptor) Around(ctx context.Context, inv *Invocation, next func() (any, error)) (any, error) {
	if _, err := next(); err != nil {
		return nil, err
	}
	return "replaced", nil
}

// --- result mapping ---

type testUser struct {
	ID    int64
	Name  string
	Email string
}

type testOrder struct {
	ID    int64
	Total float64
}

type testUserWithOrders struct {
	ID     int64
	Name   string
	Orders []testOrder
}

func queryRows(t *testing.T, cols []string, data [][]driverValueRow) *sql.Rows {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := sqlmock.NewRows(cols)
	for _, row := range data {
		vals := make([]driver.Value, len(row))
		for i, v := range row {
			vals[i] = v
		}
		mr.AddRow(vals...)
	}
	mock.ExpectQuery("select").WillReturnRows(mr)

	rows, err := db.Query("select 1")
	require.NoError(t, err)
	return rows
}

type driverValueRow = any

func passthroughResolver(javaType reflect.Type, jdbcType string, raw any) (any, error) {
	return raw, nil
}

func newTestMapper(byID map[string]*model.ResultMap, auto model.AutoMappingBehavior) *Mapper {
	return NewMapper(byID, passthroughResolver, reflection.NewNavigator(reflection.NewMetaCache()), auto)
}

func TestMapRowsExplicitMappings(t *testing.T) {
	rm := &model.ResultMap{
		ID:   "userMap",
		Type: reflect.TypeOf(testUser{}),
		Mappings: []*model.ResultMapping{
			{Property: "ID", Column: "user_id"},
			{Property: "Name", Column: "user_name"},
		},
	}
	m := newTestMapper(map[string]*model.ResultMap{"userMap": rm}, model.AutoMappingNone)

	rows := queryRows(t, []string{"user_id", "user_name"}, [][]driverValueRow{
		{int64(1), "ada"},
		{int64(2), "bob"},
	})
	out, err := m.MapRows(rows, rm, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)

	u := out[0].(testUser)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "ada", u.Name)
	assert.Empty(t, u.Email)
}

func TestMapRowsAutoMapsSnakeCaseColumns(t *testing.T) {
	rm := &model.ResultMap{ID: "userMap", Type: reflect.TypeOf(testUser{})}
	m := newTestMapper(map[string]*model.ResultMap{"userMap": rm}, model.AutoMappingPartial)

	rows := queryRows(t, []string{"id", "name", "email"}, [][]driverValueRow{
		{int64(7), "sue", "sue@example.com"},
	})
	out, err := m.MapRows(rows, rm, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)

	u := out[0].(testUser)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "sue", u.Name)
	assert.Equal(t, "sue@example.com", u.Email)
}

func TestMapRowsWithoutTargetTypeYieldsRawMaps(t *testing.T) {
	rm := &model.ResultMap{ID: "untyped"}
	m := newTestMapper(map[string]*model.ResultMap{"untyped": rm}, model.AutoMappingPartial)

	rows := queryRows(t, []string{"a", "b"}, [][]driverValueRow{{int64(1), "x"}})
	out, err := m.MapRows(rows, rm, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)

	row := out[0].(map[string]any)
	assert.Equal(t, int64(1), row["a"])
	assert.Equal(t, "x", row["b"])
}

func TestMapRowsDiscriminatorPicksVariantMap(t *testing.T) {
	plain := &model.ResultMap{
		ID:   "plain",
		Type: reflect.TypeOf(testUser{}),
		Mappings: []*model.ResultMapping{
			{Property: "ID", Column: "id"},
		},
		Discriminator: &model.Discriminator{
			Column:  "kind",
			CaseMap: map[string]string{"full": "full"},
		},
	}
	full := &model.ResultMap{
		ID:   "full",
		Type: reflect.TypeOf(testUser{}),
		Mappings: []*model.ResultMapping{
			{Property: "ID", Column: "id"},
			{Property: "Name", Column: "name"},
		},
	}
	byID := map[string]*model.ResultMap{"plain": plain, "full": full}
	m := newTestMapper(byID, model.AutoMappingNone)

	rows := queryRows(t, []string{"id", "name", "kind"}, [][]driverValueRow{
		{int64(1), "ada", "full"},
		{int64(2), "bob", "basic"},
	})
	out, err := m.MapRows(rows, plain, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)

	first := out[0].(testUser)
	assert.Equal(t, "ada", first.Name) // routed through the "full" variant

	second := out[1].(testUser)
	assert.Empty(t, second.Name) // no case matched: stayed on "plain"
}

func TestMapRowsFoldsConsecutiveRowsIntoNestedCollection(t *testing.T) {
	orderMap := &model.ResultMap{
		ID:   "orderMap",
		Type: reflect.TypeOf(testOrder{}),
		Mappings: []*model.ResultMapping{
			{Property: "ID", Column: "id"},
			{Property: "Total", Column: "total"},
		},
	}
	idMapping := &model.ResultMapping{Property: "ID", Column: "user_id", Flags: []model.ResultFlag{model.FlagID}}
	userMap := &model.ResultMap{
		ID:   "userMap",
		Type: reflect.TypeOf(testUserWithOrders{}),
		Mappings: []*model.ResultMapping{
			idMapping,
			{Property: "Name", Column: "user_name"},
			{Property: "Orders", NestedResultMapID: "orderMap", IsCollection: true, ColumnPrefix: "order_"},
		},
		IDMappings:          []*model.ResultMapping{idMapping},
		HasNestedResultMaps: true,
	}
	byID := map[string]*model.ResultMap{"userMap": userMap, "orderMap": orderMap}
	m := newTestMapper(byID, model.AutoMappingNone)

	rows := queryRows(t, []string{"user_id", "user_name", "order_id", "order_total"}, [][]driverValueRow{
		{int64(1), "ada", int64(100), 9.5},
		{int64(1), "ada", int64(101), 3.25},
		{int64(2), "bob", int64(102), 7.0},
	})
	out, err := m.MapRows(rows, userMap, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)

	ada := out[0].(testUserWithOrders)
	assert.Equal(t, "ada", ada.Name)
	require.Len(t, ada.Orders, 2)
	assert.Equal(t, int64(100), ada.Orders[0].ID)
	assert.Equal(t, int64(101), ada.Orders[1].ID)

	bob := out[1].(testUserWithOrders)
	require.Len(t, bob.Orders, 1)
	assert.Equal(t, 7.0, bob.Orders[0].Total)
}

func TestMapRowsNestedSelectDelegatesToRunner(t *testing.T) {
	rm := &model.ResultMap{
		ID:   "userMap",
		Type: reflect.TypeOf(testUserWithOrders{}),
		Mappings: []*model.ResultMapping{
			{Property: "ID", Column: "id"},
			{Property: "Orders", Column: "id", NestedSelectID: "shop.OrderMapper.byUser"},
		},
	}
	m := newTestMapper(map[string]*model.ResultMap{"userMap": rm}, model.AutoMappingNone)

	var askedID string
	runner := func(selectID string, foreign map[string]any) (any, error) {
		askedID = selectID
		return []testOrder{{ID: 9, Total: 1.5}}, nil
	}

	rows := queryRows(t, []string{"id"}, [][]driverValueRow{{int64(3)}})
	out, err := m.MapRows(rows, rm, runner)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, "shop.OrderMapper.byUser", askedID)
	u := out[0].(testUserWithOrders)
	require.Len(t, u.Orders, 1)
	assert.Equal(t, int64(9), u.Orders[0].ID)
}

// --- key generation ---

type insertedUser struct {
	ID   int64
	Name string
}

func TestAssignDriverGeneratedKey(t *testing.T) {
	nav := reflection.NewNavigator(reflection.NewMetaCache())
	k := NewKeyAssigner(nav)
	ms := &model.MappedStatement{KeyGenerator: model.KeyGeneratorDriver, KeyProperties: []string{"ID"}}

	u := &insertedUser{Name: "ada"}
	require.NoError(t, k.AssignDriverGenerated(ms, sqlmock.NewResult(77, 1), u))
	assert.Equal(t, int64(77), u.ID)
}

func TestRunSelectKeyWritesColumnsOntoParameter(t *testing.T) {
	nav := reflection.NewNavigator(reflection.NewMetaCache())
	k := NewKeyAssigner(nav)
	sk := &model.MappedStatement{ID: "ns.insert!selectKey"}
	ms := &model.MappedStatement{
		KeyGenerator:  model.KeyGeneratorSelectKey,
		KeyProperties: []string{"ID"},
		KeyColumns:    []string{"next_id"},
		SelectKeyStmt: sk,
	}

	u := &insertedUser{}
	runSelect := func(ctx context.Context, stmt *model.MappedStatement, param any) (map[string]any, error) {
		assert.Same(t, sk, stmt)
		return map[string]any{"next_id": int64(500)}, nil
	}
	require.NoError(t, k.RunSelectKey(context.Background(), ms, u, runSelect))
	assert.Equal(t, int64(500), u.ID)
}
