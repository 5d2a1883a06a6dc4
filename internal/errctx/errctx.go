// Package errctx builds the explicit diagnostic breadcrumb a statement
// dispatch accumulates as it proceeds (component M): unlike a thread-local
// or global ErrorContext, one instance is threaded explicitly through a
// single call and discarded with it, so concurrent statement executions
// never share or corrupt each other's context.
package errctx

import (
	"strings"

	"github.com/gogf/gf/errors/gerror"
)

// Context accumulates a sequence of named "activity/resource" breadcrumbs
// for one statement dispatch. Push (and the pop function it returns) give
// nested operations their own frame without losing the caller's.
type Context struct {
	resource string
	frames   []frame
}

type frame struct {
	activity string
	objectID string
	sql      string
}

// New starts a breadcrumb for one resource (e.g. a mapper XML file path or
// statement id).
func New(resource string) *Context {
	return &Context{resource: resource}
}

// Push records that activity is now underway, returning a function that
// pops it back off — intended for `defer ctx.Push(...)()` at each layer of
// statement dispatch.
func (c *Context) Push(activity string) func() {
	c.frames = append(c.frames, frame{activity: activity})
	idx := len(c.frames) - 1
	return func() {
		if idx < len(c.frames) {
			c.frames = c.frames[:idx]
		}
	}
}

// StoreObjectID attaches the row/parameter identifier under diagnosis to
// the current (innermost) frame.
func (c *Context) StoreObjectID(id string) {
	if len(c.frames) == 0 {
		c.Push("")
	}
	c.frames[len(c.frames)-1].objectID = id
}

// StoreSQL attaches the rendered SQL under diagnosis to the current frame.
func (c *Context) StoreSQL(sql string) {
	if len(c.frames) == 0 {
		c.Push("")
	}
	c.frames[len(c.frames)-1].sql = sql
}

// Wrap renders the accumulated breadcrumb as a multi-line diagnostic and
// wraps cause with it via gerror, preserving the original error in the
// cause chain.
func (c *Context) Wrap(cause error) error {
	if cause == nil {
		return nil
	}
	return gerror.Wrap(cause, c.render())
}

func (c *Context) render() string {
	var sb strings.Builder
	sb.WriteString("### error context ###\n")
	sb.WriteString("resource: ")
	sb.WriteString(c.resource)
	sb.WriteByte('\n')
	for _, f := range c.frames {
		if f.activity != "" {
			sb.WriteString("activity: ")
			sb.WriteString(f.activity)
			sb.WriteByte('\n')
		}
		if f.objectID != "" {
			sb.WriteString("object id: ")
			sb.WriteString(f.objectID)
			sb.WriteByte('\n')
		}
		if f.sql != "" {
			sb.WriteString("sql: ")
			sb.WriteString(f.sql)
			sb.WriteByte('\n')
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
