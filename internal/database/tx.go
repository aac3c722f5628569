package database

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
)

type idbContextKey struct{}

// WithIDB stores a bun.IDB (usually an open transaction) in the context so
// repositories participating in a unit of work pick it up transparently.
func WithIDB(ctx context.Context, idb bun.IDB) context.Context {
	return context.WithValue(ctx, idbContextKey{}, idb)
}

// IDBFromContext returns the bun.IDB from the context, or the fallback
// when no transaction is in flight.
func IDBFromContext(ctx context.Context, fallback bun.IDB) bun.IDB {
	if idb, ok := ctx.Value(idbContextKey{}).(bun.IDB); ok {
		return idb
	}
	return fallback
}

// Transactor runs a function inside a database transaction. The
// transaction travels in the context, so every repository call made from
// fn joins it.
type Transactor struct {
	db *bun.DB
}

func NewTransactor(db *bun.DB) *Transactor {
	return &Transactor{db: db}
}

// RunInTx executes fn atomically: either every store mutation made inside
// fn commits, or none does.
func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(WithIDB(ctx, tx))
	})
}
