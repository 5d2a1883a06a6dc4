package errctx

import (
	"testing"

	"github.com/gogf/gf/errors/gerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapRendersBreadcrumb(t *testing.T) {
	c := New("mappers/user.xml")
	pop := c.Push("executing a query")
	c.StoreObjectID("user.selectById")
	c.StoreSQL("select * from user where id = ?")

	err := c.Wrap(assert.AnError)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "### error context ###")
	assert.Contains(t, err.Error(), "resource: mappers/user.xml")
	assert.Contains(t, err.Error(), "activity: executing a query")
	assert.Contains(t, err.Error(), "object id: user.selectById")
	assert.Contains(t, err.Error(), "sql: select * from user where id = ?")
	pop()
}

func TestWrapPreservesCause(t *testing.T) {
	c := New("r")
	err := c.Wrap(assert.AnError)
	require.Error(t, err)
	assert.Equal(t, assert.AnError, gerror.Cause(err))
}

func TestWrapNilIsNil(t *testing.T) {
	c := New("r")
	assert.NoError(t, c.Wrap(nil))
}

func TestPushPopScopesFrames(t *testing.T) {
	c := New("r")
	popOuter := c.Push("outer")
	popInner := c.Push("inner")
	popInner()

	err := c.Wrap(assert.AnError)
	assert.Contains(t, err.Error(), "activity: outer")
	assert.NotContains(t, err.Error(), "activity: inner")
	popOuter()

	err = c.Wrap(assert.AnError)
	assert.NotContains(t, err.Error(), "activity: outer")
}

func TestStoreWithoutPushOpensImplicitFrame(t *testing.T) {
	c := New("r")
	c.StoreSQL("select 1")
	err := c.Wrap(assert.AnError)
	assert.Contains(t, err.Error(), "sql: select 1")
}
