package mapping

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
)

type testUser struct {
	ID   int64
	Name string
}

func TestAnalyzeFuncTypeDetectsSpecialParams(t *testing.T) {
	ft := reflect.TypeOf(func(ctx context.Context, id int64, b model.RowBounds) ([]testUser, error) { return nil, nil })
	sig := AnalyzeFuncType(ft)

	assert.Equal(t, 0, sig.ContextIndex)
	assert.Equal(t, 2, sig.RowBoundsIndex)
	assert.True(t, sig.ReturnsMany)
	assert.Equal(t, reflect.TypeOf(testUser{}), sig.ElemType)
	assert.Equal(t, 0, sig.ResultIndex)
	assert.Equal(t, 1, sig.ErrorIndex)
}

func TestAnalyzeFuncTypeVoidAndSingle(t *testing.T) {
	void := AnalyzeFuncType(reflect.TypeOf(func() {}))
	assert.True(t, void.ReturnsVoid)

	single := AnalyzeFuncType(reflect.TypeOf(func(int64) (testUser, error) { return testUser{}, nil }))
	assert.False(t, single.ReturnsMany)
	assert.Equal(t, -1, single.ContextIndex)
}

func TestBindArgsSingleParameterBindsDirectly(t *testing.T) {
	ft := reflect.TypeOf(func(ctx context.Context, id int64) (testUser, error) { return testUser{}, nil })
	sig := AnalyzeFuncType(ft)

	ctx, bounds, param := sig.BindArgs([]reflect.Value{
		reflect.ValueOf(context.Background()),
		reflect.ValueOf(int64(42)),
	})
	assert.NotNil(t, ctx)
	assert.Equal(t, model.NoRowBounds, bounds)
	assert.Equal(t, int64(42), param)
}

func TestBindArgsMultipleParametersGetSyntheticNames(t *testing.T) {
	ft := reflect.TypeOf(func(name string, age int) ([]testUser, error) { return nil, nil })
	sig := AnalyzeFuncType(ft)

	ctx, _, param := sig.BindArgs([]reflect.Value{
		reflect.ValueOf("ada"),
		reflect.ValueOf(36),
	})
	assert.NotNil(t, ctx)
	m, ok := param.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ada", m["param1"])
	assert.Equal(t, 36, m["param2"])
}

func TestBindArgsExtractsRowBounds(t *testing.T) {
	ft := reflect.TypeOf(func(name string, b model.RowBounds) ([]testUser, error) { return nil, nil })
	sig := AnalyzeFuncType(ft)

	_, bounds, param := sig.BindArgs([]reflect.Value{
		reflect.ValueOf("ada"),
		reflect.ValueOf(model.RowBounds{Offset: 5, Limit: 10}),
	})
	assert.Equal(t, model.RowBounds{Offset: 5, Limit: 10}, bounds)
	assert.Equal(t, "ada", param)
}

func TestBuildResultsCoercesSliceOfAny(t *testing.T) {
	ft := reflect.TypeOf(func() ([]testUser, error) { return nil, nil })
	sig := AnalyzeFuncType(ft)

	out := sig.BuildResults([]any{testUser{ID: 1}, testUser{ID: 2}}, nil)
	require.Len(t, out, 2)
	users := out[0].Interface().([]testUser)
	require.Len(t, users, 2)
	assert.Equal(t, int64(2), users[1].ID)
	assert.True(t, out[1].IsNil())
}

func TestBuildResultsPointerWrap(t *testing.T) {
	ft := reflect.TypeOf(func() (*testUser, error) { return nil, nil })
	sig := AnalyzeFuncType(ft)

	out := sig.BuildResults(testUser{ID: 3}, nil)
	u := out[0].Interface().(*testUser)
	require.NotNil(t, u)
	assert.Equal(t, int64(3), u.ID)
}

func TestBuildResultsPropagatesError(t *testing.T) {
	ft := reflect.TypeOf(func() (testUser, error) { return testUser{}, nil })
	sig := AnalyzeFuncType(ft)

	out := sig.BuildResults(nil, assert.AnError)
	assert.Equal(t, testUser{}, out[0].Interface())
	assert.Equal(t, assert.AnError, out[1].Interface())
}

// fakeSession records dispatches and plays back canned results.
type fakeSession struct {
	lastStatement string
	lastParameter any
	selectOneOut  any
	selectListOut []any
	affected      int64
}

func (f *fakeSession) SelectOne(ctx context.Context, id string, p any) (any, error) {
	f.lastStatement, f.lastParameter = id, p
	return f.selectOneOut, nil
}

func (f *fakeSession) SelectList(ctx context.Context, id string, p any, b model.RowBounds) ([]any, error) {
	f.lastStatement, f.lastParameter = id, p
	return f.selectListOut, nil
}

func (f *fakeSession) Insert(ctx context.Context, id string, p any) (int64, error) {
	f.lastStatement, f.lastParameter = id, p
	return f.affected, nil
}

func (f *fakeSession) Update(ctx context.Context, id string, p any) (int64, error) {
	f.lastStatement, f.lastParameter = id, p
	return f.affected, nil
}

func (f *fakeSession) Delete(ctx context.Context, id string, p any) (int64, error) {
	f.lastStatement, f.lastParameter = id, p
	return f.affected, nil
}

type userMapper struct {
	SelectByID func(ctx context.Context, id int64) (testUser, error)   `sqlmap:"shop.UserMapper.selectById"`
	SelectAll  func(ctx context.Context) ([]testUser, error)           `sqlmap:"shop.UserMapper.selectAll"`
	InsertUser func(ctx context.Context, u *testUser) (int64, error)   `sqlmap:"shop.UserMapper.insertUser"`
	DeleteByID func(ctx context.Context, id int64) (int64, error)      `sqlmap:"shop.UserMapper.deleteById"`
}

func testStatements() func(id string) (*model.MappedStatement, bool) {
	byID := map[string]*model.MappedStatement{
		"shop.UserMapper.selectById": {ID: "shop.UserMapper.selectById", Kind: model.StatementSelect},
		"shop.UserMapper.selectAll":  {ID: "shop.UserMapper.selectAll", Kind: model.StatementSelect},
		"shop.UserMapper.insertUser": {ID: "shop.UserMapper.insertUser", Kind: model.StatementInsert},
		"shop.UserMapper.deleteById": {ID: "shop.UserMapper.deleteById", Kind: model.StatementDelete},
	}
	return func(id string) (*model.MappedStatement, bool) {
		ms, ok := byID[id]
		return ms, ok
	}
}

func TestBindDispatchesTaggedFields(t *testing.T) {
	sess := &fakeSession{
		selectOneOut:  testUser{ID: 42, Name: "ada"},
		selectListOut: []any{testUser{ID: 1}, testUser{ID: 2}},
		affected:      1,
	}
	var m userMapper
	require.NoError(t, Bind(&m, NewRegistry(), sess, testStatements()))

	u, err := m.SelectByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Name)
	assert.Equal(t, "shop.UserMapper.selectById", sess.lastStatement)
	assert.Equal(t, int64(42), sess.lastParameter)

	all, err := m.SelectAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n, err := m.InsertUser(context.Background(), &testUser{Name: "bob"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "shop.UserMapper.insertUser", sess.lastStatement)

	n, err = m.DeleteByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBindFailsForUnmappedStatement(t *testing.T) {
	type badMapper struct {
		Nope func(ctx context.Context) (testUser, error) `sqlmap:"shop.UserMapper.missing"`
	}
	var m badMapper
	err := Bind(&m, NewRegistry(), &fakeSession{}, testStatements())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestBindRequiresStructPointer(t *testing.T) {
	var m userMapper
	assert.Error(t, Bind(m, NewRegistry(), &fakeSession{}, testStatements()))
}

func TestStatementIDFallsBackToQualifiedName(t *testing.T) {
	type plainMapper struct {
		Find func() (testUser, error)
	}
	mt := reflect.TypeOf(plainMapper{})
	f, _ := mt.FieldByName("Find")
	id := StatementIDFromTag(mt, f)
	assert.Contains(t, id, "plainMapper.Find")
}
