package reflection

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasResolutionIsCaseInsensitive(t *testing.T) {
	r := NewAliasRegistry()

	a, ok1 := r.Resolve("STRING")
	b, ok2 := r.Resolve("String")
	c, ok3 := r.Resolve("string")
	require.True(t, ok1 && ok2 && ok3)
	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
	assert.Equal(t, reflect.TypeOf(""), a)
}

func TestAliasReregistrationWithDifferentTargetFails(t *testing.T) {
	r := NewAliasRegistry()
	type user struct{}

	require.NoError(t, r.Register("user", reflect.TypeOf(user{})))
	// Same target again is a no-op.
	require.NoError(t, r.Register("USER", reflect.TypeOf(user{})))
	// Different target is an error.
	assert.Error(t, r.Register("user", reflect.TypeOf("")))
}

func TestTypeHandlerSelectionIsStable(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	h1 := r.Get(reflect.TypeOf(""), "")
	h2 := r.Get(reflect.TypeOf(""), "")
	require.NotNil(t, h1)
	assert.Equal(t, h1, h2)
}

func TestTypeHandlerPrefersExactJdbcType(t *testing.T) {
	r := NewRegistry()
	exact, wildcard := Int64Handler{}, StringHandler{}
	r.Register(reflect.TypeOf(""), "CLOB", exact)
	r.Register(reflect.TypeOf(""), "", wildcard)

	assert.Equal(t, TypeHandler(exact), r.Get(reflect.TypeOf(""), "CLOB"))
	assert.Equal(t, TypeHandler(wildcard), r.Get(reflect.TypeOf(""), "VARCHAR"))
	assert.Equal(t, TypeHandler(wildcard), r.Get(reflect.TypeOf(""), ""))
}

func TestTypeHandlerSoleEntryServesAnyJdbcType(t *testing.T) {
	r := NewRegistry()
	only := BoolHandler{}
	r.Register(reflect.TypeOf(false), "BIT", only)

	assert.Equal(t, TypeHandler(only), r.Get(reflect.TypeOf(false), "BOOLEAN"))
}

func TestTypeHandlerMissIsMemoised(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get(reflect.TypeOf(0.0), ""))
	// Second miss takes the sentinel path; still nil, no panic.
	assert.Nil(t, r.Get(reflect.TypeOf(0.0), ""))
}

type color string

func TestEnumFallbackRegistersDefaultHandler(t *testing.T) {
	r := NewRegistry()
	r.SetEnumHandlerFactory(func(reflect.Type) TypeHandler { return StringHandler{} })

	h := r.Get(reflect.TypeOf(color("")), "")
	require.NotNil(t, h)
	// Second lookup returns the now-registered handler.
	assert.Equal(t, h, r.Get(reflect.TypeOf(color("")), ""))
}

type base struct {
	ID   int64
	Name string
}

type derived struct {
	base
	Name string // shadows base.Name
	Age  int
}

func TestMetaPrefersMostDerivedProperty(t *testing.T) {
	c := NewMetaCache()
	meta, err := c.For(reflect.TypeOf(derived{}))
	require.NoError(t, err)

	p, ok := meta.GetProperty("name")
	require.True(t, ok)
	assert.False(t, p.Ambiguous)
	assert.Equal(t, []int{1}, p.Index) // the outer Name field, not base's

	p, ok = meta.GetProperty("ID")
	require.True(t, ok)
	assert.Equal(t, []int{0, 0}, p.Index) // promoted from the embedded base
}

type left struct{ Label string }
type right struct{ Label string }
type conflicted struct {
	left
	right
}

func TestMetaRecordsSiblingConflictAsAmbiguous(t *testing.T) {
	c := NewMetaCache()
	meta, err := c.For(reflect.TypeOf(conflicted{}))
	require.NoError(t, err)

	p, ok := meta.GetProperty("label")
	require.True(t, ok)
	assert.True(t, p.Ambiguous)
}

func TestMetaLookupIsCaseInsensitiveAndCached(t *testing.T) {
	c := NewMetaCache()
	m1, err := c.For(reflect.TypeOf(base{}))
	require.NoError(t, err)
	m2, err := c.For(reflect.TypeOf(&base{}))
	require.NoError(t, err)
	assert.Same(t, m1, m2)

	_, ok := m1.GetProperty("NAME")
	assert.True(t, ok)
}

func TestMetaRejectsNonStruct(t *testing.T) {
	c := NewMetaCache()
	_, err := c.For(reflect.TypeOf(42))
	assert.Error(t, err)
}

type address struct {
	City string
}

type person struct {
	Name    string
	Age     int
	Addr    address
	Tags    []string
	Extra   map[string]any
}

func newNav() *Navigator { return NewNavigator(NewMetaCache()) }

func TestNavigatorGetStructAndNestedPaths(t *testing.T) {
	n := newNav()
	p := person{Name: "bob", Age: 40, Addr: address{City: "oslo"}, Tags: []string{"a", "b"}, Extra: map[string]any{"k": 1}}

	v, ok := n.Get(p, "Name")
	require.True(t, ok)
	assert.Equal(t, "bob", v)

	v, ok = n.Get(&p, "Addr.City")
	require.True(t, ok)
	assert.Equal(t, "oslo", v)

	v, ok = n.Get(p, "Tags[1]")
	require.True(t, ok)
	assert.Equal(t, "b", v)

	v, ok = n.Get(p, "Extra[k]")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = n.Get(p, "Tags[9]")
	assert.False(t, ok)

	_, ok = n.Get(p, "nope")
	assert.False(t, ok)
}

func TestNavigatorGetMapRoot(t *testing.T) {
	n := newNav()
	root := map[string]any{"user": map[string]any{"name": "sue"}}

	v, ok := n.Get(root, "user.name")
	require.True(t, ok)
	assert.Equal(t, "sue", v)
}

func TestNavigatorSetStructField(t *testing.T) {
	n := newNav()
	p := &person{}

	require.NoError(t, n.Set(p, "Name", "ada"))
	require.NoError(t, n.Set(p, "Age", int64(36))) // convertible, not assignable
	assert.Equal(t, "ada", p.Name)
	assert.Equal(t, 36, p.Age)
}

func TestNavigatorSetNestedAndMapTargets(t *testing.T) {
	n := newNav()
	p := &person{Extra: map[string]any{}}

	require.NoError(t, n.Set(p.Extra, "k", "v"))
	assert.Equal(t, "v", p.Extra["k"])

	err := n.Set(p, "Addr.City", "rome")
	require.Error(t, err) // Addr is reached by value, not addressable through Get
}

func TestNavigatorSetErrors(t *testing.T) {
	n := newNav()
	p := &person{}

	assert.Error(t, n.Set(p, "missing", 1))
	assert.Error(t, n.Set(p, "", 1))
	assert.Error(t, n.Set(42, "x", 1))
}
