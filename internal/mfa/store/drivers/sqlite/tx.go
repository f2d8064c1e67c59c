package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store/drivers/sqlite/gen"
)

type txStore struct {
	tx *sql.Tx
	q  *gen.Queries
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{
		tx: tx,
		q:  gen.New(tx),
	}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // outer DB stays open

// Ping is a no-op; the connection is already held by the transaction.
func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) MFASettings() store.MFASettings { return &mfaSettingsRepo{q: t.q} }

func (t *txStore) EmailOTPCodes() store.EmailOTPCodes {
	return &emailOTPCodesRepo{q: t.q, atomically: t.withQueries}
}

// withQueries runs fn inside the already open transaction.
func (t *txStore) withQueries(_ context.Context, fn func(q *gen.Queries) error) error {
	return fn(t.q)
}

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx
