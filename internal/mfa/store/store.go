package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/domain"
)

var (
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a conditional write lost a race with
	// another writer.
	ErrConflict = errors.New("store: conflicting update")
)

// Store is the root data access interface. Drivers expose sub-repositories so
// transactions stay explicit and nested transactions are impossible.
type Store interface {
	MFASettings() MFASettings
	EmailOTPCodes() EmailOTPCodes

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns nil
	// and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type MFASettings interface {
	// GetMFASettings returns the settings row for a user or ErrNotFound.
	GetMFASettings(ctx context.Context, userID string) (domain.MFASettings, error)

	// UpsertPendingTOTP stores a new encrypted secret and resets the row to
	// the not-yet-confirmed state (mfa_enabled=0, mfa_type NULL). It returns
	// ErrConflict and leaves the row untouched when MFA is already enabled.
	UpsertPendingTOTP(ctx context.Context, userID string, secretEncrypted string, now time.Time) error

	// EnableTOTP confirms setup: enables MFA, stores backup code digests and
	// resets the lockout counter. The write only applies while MFA is off and
	// the stored secret still equals secretEncrypted; otherwise ErrConflict.
	EnableTOTP(ctx context.Context, userID, secretEncrypted string, backupCodesHashed []string, now time.Time) error

	// DisableMFA clears the secret and backup codes but keeps the row.
	DisableMFA(ctx context.Context, userID string, now time.Time) error

	// ReplaceBackupCodes swaps in a fresh set of digests and resets the used
	// counter.
	ReplaceBackupCodes(ctx context.Context, userID string, backupCodesHashed []string, now time.Time) error

	// ConsumeBackupCode writes remaining only if the stored list still equals
	// expected, and bumps the used counter. Returns ErrConflict otherwise.
	ConsumeBackupCode(ctx context.Context, userID string, expected, remaining []string, now time.Time) error

	// RecordFailedAttempt atomically increments failed_attempts (creating the
	// row if needed) and sets locked_until to lockUntil once the new count
	// reaches threshold, clearing it otherwise.
	RecordFailedAttempt(ctx context.Context, userID string, threshold int, lockUntil, now time.Time) (domain.LockoutState, error)

	// ResetFailedAttempts sets failed_attempts=0 and clears locked_until.
	ResetFailedAttempts(ctx context.Context, userID string, now time.Time) error
}

type EmailOTPCodes interface {
	// ReplaceEmailOTPCode deletes every unused code for the user and inserts
	// code, as one atomic step.
	ReplaceEmailOTPCode(ctx context.Context, code domain.EmailOTPCode) error

	// GetActiveEmailOTPCode returns the newest unused, unexpired code for the
	// user or ErrNotFound.
	GetActiveEmailOTPCode(ctx context.Context, userID string, now time.Time) (domain.EmailOTPCode, error)

	// MarkEmailOTPCodeUsed flips used=1 if the code is still unused. It
	// returns false when another request redeemed it first.
	MarkEmailOTPCodeUsed(ctx context.Context, userID, id string) (bool, error)

	// DeleteExpiredEmailOTPCodes removes used and expired rows (housekeeping).
	DeleteExpiredEmailOTPCodes(ctx context.Context, now time.Time) error
}
