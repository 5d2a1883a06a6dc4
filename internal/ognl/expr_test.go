package ognl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapNavigator resolves simple dotted paths against nested map[string]any
// values, standing in for the full reflection navigator.
type mapNavigator struct{}

func (mapNavigator) Get(root any, path string) (any, bool) {
	cur := root
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '.' {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = m[path[start:i]]
			if !ok {
				return nil, false
			}
			start = i + 1
		}
	}
	return cur, true
}

func newEval() *Evaluator { return NewEvaluator(mapNavigator{}) }

func TestTruthinessOfNullZeroAndEmptyString(t *testing.T) {
	e := newEval()
	for expr, want := range map[string]bool{
		"missing":  false,
		"zero":     false,
		"empty":    false,
		"one":      true,
		"name":     true,
		"flag":     true,
	} {
		got, err := e.EvalBool(expr, Bindings{
			"zero": 0, "empty": "", "one": 1, "name": "bob", "flag": true,
		})
		require.NoError(t, err, expr)
		assert.Equal(t, want, got, expr)
	}
}

func TestEqualityAndRelationalOperators(t *testing.T) {
	e := newEval()
	b := Bindings{"age": 10, "name": "bob"}

	for expr, want := range map[string]bool{
		"age == 10":     true,
		"age != 10":     false,
		"age > 5":       true,
		"age >= 10":     true,
		"age < 10":      false,
		"age <= 9":      false,
		"name == 'bob'": true,
		"name != 'sue'": true,
		"age != null":   true,
		"gone == null":  true,
	} {
		got, err := e.EvalBool(expr, b)
		require.NoError(t, err, expr)
		assert.Equal(t, want, got, expr)
	}
}

func TestBooleanConnectivesAndGrouping(t *testing.T) {
	e := newEval()
	b := Bindings{"a": 1, "b": 0}

	for expr, want := range map[string]bool{
		"a and b":          false,
		"a or b":           true,
		"a && b":           false,
		"a || b":           true,
		"not b":            true,
		"not a":            false,
		"(a or b) and a":   true,
		"not (a and b)":    true,
	} {
		got, err := e.EvalBool(expr, b)
		require.NoError(t, err, expr)
		assert.Equal(t, want, got, expr)
	}
}

func TestPropertyPathNavigation(t *testing.T) {
	e := newEval()
	b := Bindings{"user": map[string]any{"address": map[string]any{"city": "berlin"}}}

	v, err := e.Eval("user.address.city", b)
	require.NoError(t, err)
	assert.Equal(t, "berlin", v)
}

func TestLookupFallsBackToParameterBinding(t *testing.T) {
	e := newEval()
	b := Bindings{"_parameter": map[string]any{"age": 42}}

	got, err := e.EvalBool("age == 42", b)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestLiteralsAndKeywords(t *testing.T) {
	e := newEval()

	v, err := e.Eval("3.5", Bindings{})
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)

	v, err = e.Eval("'hello'", Bindings{})
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	got, err := e.EvalBool("true", Bindings{})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = e.EvalBool("false or null", Bindings{})
	require.NoError(t, err)
	assert.False(t, got)
}

func TestTrailingInputIsRejected(t *testing.T) {
	e := newEval()
	_, err := e.Eval("a b", Bindings{"a": 1, "b": 2})
	assert.Error(t, err)
}
