// Package mapping implements mapper binding (component L): a reflect-based
// dispatcher that turns a call to a field of a user-declared mapper struct
// into a (statementId, args) dispatch against a session.
package mapping

import (
	"context"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
)

// Session is the minimal surface a mapper proxy needs from whatever owns
// statement dispatch. Declared locally (rather than importing the root
// sqlmap package) so mapping has no dependency on sqlmap, avoiding a
// sqlmap→mapping→sqlmap import cycle — sqlmap's *Session type satisfies
// this structurally.
type Session interface {
	SelectOne(ctx context.Context, statementID string, parameter any) (any, error)
	SelectList(ctx context.Context, statementID string, parameter any, bounds model.RowBounds) ([]any, error)
	Insert(ctx context.Context, statementID string, parameter any) (int64, error)
	Update(ctx context.Context, statementID string, parameter any) (int64, error)
	Delete(ctx context.Context, statementID string, parameter any) (int64, error)
}
