package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/domain"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store/drivers/sqlite/gen"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	q   *gen.Queries
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// A single writer keeps the conditional updates serialised and lets
	// ":memory:" databases survive across pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		q:   gen.New(db),
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) MFASettings() store.MFASettings { return &mfaSettingsRepo{q: s.q} }

func (s *Store) EmailOTPCodes() store.EmailOTPCodes {
	return &emailOTPCodesRepo{q: s.q, atomically: s.withQueries}
}

// withQueries runs fn against a transaction-scoped Queries.
func (s *Store) withQueries(ctx context.Context, fn func(q *gen.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(s.q.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapNullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		val := ns.String
		return &val
	}
	return nil
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time
		return &val
	}
	return nil
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// encodeDigests serialises a digest list as a JSON array. A nil slice
// encodes as "[]" so stored values compare equal to the column default.
func encodeDigests(digests []string) (string, error) {
	if digests == nil {
		digests = []string{}
	}
	raw, err := json.Marshal(digests)
	if err != nil {
		return "", fmt.Errorf("encode backup codes: %w", err)
	}
	return string(raw), nil
}

func decodeDigests(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var digests []string
	if err := json.Unmarshal([]byte(raw), &digests); err != nil {
		return nil, fmt.Errorf("decode backup codes: %w", err)
	}
	if digests == nil {
		digests = []string{}
	}
	return digests, nil
}

func mapMFASettings(row gen.MfaSetting) (domain.MFASettings, error) {
	digests, err := decodeDigests(row.BackupCodesHashed)
	if err != nil {
		return domain.MFASettings{}, err
	}

	var mfaType *domain.MFAType
	if row.MfaType.Valid {
		t := domain.MFAType(row.MfaType.String)
		mfaType = &t
	}

	return domain.MFASettings{
		UserID:                 row.UserID,
		MFAEnabled:             row.MfaEnabled,
		MFAType:                mfaType,
		TOTPSecretEncrypted:    mapNullStringPtr(row.TotpSecretEncrypted),
		TOTPVerifiedAt:         mapNullTimePtr(row.TotpVerifiedAt),
		BackupCodesHashed:      digests,
		BackupCodesGeneratedAt: mapNullTimePtr(row.BackupCodesGeneratedAt),
		BackupCodesUsedCount:   int(row.BackupCodesUsedCount),
		FailedAttempts:         int(row.FailedAttempts),
		LockedUntil:            mapNullTimePtr(row.LockedUntil),
		CreatedAt:              row.CreatedAt,
		UpdatedAt:              row.UpdatedAt,
	}, nil
}

func mapEmailOTPCode(row gen.EmailOtpCode) domain.EmailOTPCode {
	return domain.EmailOTPCode{
		ID:        row.ID,
		UserID:    row.UserID,
		CodeHash:  row.CodeHash,
		ExpiresAt: row.ExpiresAt,
		Used:      row.Used,
		CreatedAt: row.CreatedAt,
	}
}
