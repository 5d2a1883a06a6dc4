package pool

import (
	"context"
	"database/sql"

	"github.com/gogf/gf/errors/gerror"
)

// IsolationLevel mirrors the handful of isolation levels an <environment>
// may configure.
type IsolationLevel = sql.IsolationLevel

// Transaction is the scoped connection lifecycle contract:
// lazily acquire a connection and close only when told (never implicitly
// on an error path). ManagedTransaction begins its transaction at a
// configured isolation level; ExternalTransaction takes no isolation level
// and begins no transaction.
type Transaction interface {
	GetConnection(ctx context.Context) (*PooledConnection, error)
	Commit() error
	Rollback() error
	Close() error
}

// ManagedTransaction delegates commit/rollback to the real connection and
// returns it to the pool on Close — the "connection-managed" variant.
type ManagedTransaction struct {
	pool       *Pool
	isolation  IsolationLevel
	autoCommit bool

	conn *PooledConnection
	tx   *sql.Tx
}

func NewManagedTransaction(p *Pool, isolation IsolationLevel, autoCommit bool) *ManagedTransaction {
	return &ManagedTransaction{pool: p, isolation: isolation, autoCommit: autoCommit}
}

func (t *ManagedTransaction) GetConnection(ctx context.Context) (*PooledConnection, error) {
	if t.conn != nil {
		return t.conn, nil
	}
	conn, err := t.pool.Checkout(ctx)
	if err != nil {
		return nil, err
	}
	t.conn = conn
	if !t.autoCommit {
		tx, err := conn.Raw().BeginTx(ctx, &sql.TxOptions{Isolation: t.isolation})
		if err != nil {
			return nil, gerror.Wrap(err, "transaction: begin")
		}
		t.tx = tx
	}
	return conn, nil
}

func (t *ManagedTransaction) Commit() error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Commit()
	t.tx = nil
	return gerror.Wrap(err, "transaction: commit")
}

func (t *ManagedTransaction) Rollback() error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Rollback()
	t.tx = nil
	return gerror.Wrap(err, "transaction: rollback")
}

func (t *ManagedTransaction) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// ExternalTransaction is the "externally-managed" variant: commit/rollback
// are no-ops because a surrounding container (e.g. an app-server-managed
// JTA transaction) decides the outcome; Close still returns the connection.
type ExternalTransaction struct {
	pool *Pool
	conn *PooledConnection
}

func NewExternalTransaction(p *Pool) *ExternalTransaction {
	return &ExternalTransaction{pool: p}
}

func (t *ExternalTransaction) GetConnection(ctx context.Context) (*PooledConnection, error) {
	if t.conn != nil {
		return t.conn, nil
	}
	conn, err := t.pool.Checkout(ctx)
	if err != nil {
		return nil, err
	}
	t.conn = conn
	return conn, nil
}

func (t *ExternalTransaction) Commit() error   { return nil }
func (t *ExternalTransaction) Rollback() error { return nil }

func (t *ExternalTransaction) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
