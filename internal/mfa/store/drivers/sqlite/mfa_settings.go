package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/domain"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store/drivers/sqlite/gen"
)

type mfaSettingsRepo struct {
	q *gen.Queries
}

func (r *mfaSettingsRepo) GetMFASettings(ctx context.Context, userID string) (domain.MFASettings, error) {
	row, err := r.q.GetMFASettings(ctx, userID)
	if err != nil {
		return domain.MFASettings{}, mapNotFound(err)
	}
	return mapMFASettings(row)
}

func (r *mfaSettingsRepo) UpsertPendingTOTP(ctx context.Context, userID string, secretEncrypted string, now time.Time) error {
	n, err := r.q.UpsertPendingTOTP(ctx, gen.UpsertPendingTOTPParams{
		UserID:              userID,
		TotpSecretEncrypted: mapStringNull(secretEncrypted),
		Now:                 now.UTC(),
	})
	if err != nil {
		return err
	}
	// The DO UPDATE is skipped for an enabled row.
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *mfaSettingsRepo) EnableTOTP(ctx context.Context, userID, secretEncrypted string, backupCodesHashed []string, now time.Time) error {
	encoded, err := encodeDigests(backupCodesHashed)
	if err != nil {
		return err
	}

	n, err := r.q.EnableTOTP(ctx, gen.EnableTOTPParams{
		TotpVerifiedAt:      now.UTC(),
		BackupCodesHashed:   encoded,
		UserID:              userID,
		TotpSecretEncrypted: mapStringNull(secretEncrypted),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *mfaSettingsRepo) DisableMFA(ctx context.Context, userID string, now time.Time) error {
	n, err := r.q.DisableMFA(ctx, gen.DisableMFAParams{
		UpdatedAt: now.UTC(),
		UserID:    userID,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *mfaSettingsRepo) ReplaceBackupCodes(ctx context.Context, userID string, backupCodesHashed []string, now time.Time) error {
	encoded, err := encodeDigests(backupCodesHashed)
	if err != nil {
		return err
	}

	n, err := r.q.ReplaceBackupCodes(ctx, gen.ReplaceBackupCodesParams{
		BackupCodesHashed:      encoded,
		BackupCodesGeneratedAt: sql.NullTime{Time: now.UTC(), Valid: true},
		UserID:                 userID,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *mfaSettingsRepo) ConsumeBackupCode(ctx context.Context, userID string, expected, remaining []string, now time.Time) error {
	expectedRaw, err := encodeDigests(expected)
	if err != nil {
		return err
	}
	remainingRaw, err := encodeDigests(remaining)
	if err != nil {
		return err
	}

	n, err := r.q.ConsumeBackupCode(ctx, gen.ConsumeBackupCodeParams{
		BackupCodesHashed: remainingRaw,
		UpdatedAt:         now.UTC(),
		UserID:            userID,
		Expected:          expectedRaw,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *mfaSettingsRepo) RecordFailedAttempt(ctx context.Context, userID string, threshold int, lockUntil, now time.Time) (domain.LockoutState, error) {
	count, err := r.q.RecordFailedAttempt(ctx, gen.RecordFailedAttemptParams{
		UserID:      userID,
		Threshold:   int64(threshold),
		LockedUntil: lockUntil.UTC(),
		Now:         now.UTC(),
	})
	if err != nil {
		return domain.LockoutState{}, err
	}

	state := domain.LockoutState{FailedAttempts: int(count)}
	if state.FailedAttempts >= threshold {
		until := lockUntil.UTC()
		state.LockedUntil = &until
	}
	return state, nil
}

func (r *mfaSettingsRepo) ResetFailedAttempts(ctx context.Context, userID string, now time.Time) error {
	return r.q.ResetFailedAttempts(ctx, gen.ResetFailedAttemptsParams{
		UpdatedAt: now.UTC(),
		UserID:    userID,
	})
}
