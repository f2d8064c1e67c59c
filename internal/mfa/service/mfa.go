package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/domain"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store"
	"github.com/aussiebroadwan/bartab-mfa/pkg/mailx"
	"github.com/aussiebroadwan/bartab-mfa/pkg/slogx"
)

// consumeRetries bounds the backup code compare-and-swap loop.
const consumeRetries = 3

// SecretCipher encrypts TOTP secrets at rest.
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(envelope string) (string, error)
}

// ChallengeResult is returned by a successful Challenge.
type ChallengeResult struct {
	Verified bool
	Method   domain.ChallengeMethod
}

// MFAService drives enrolment and login verification for a user. Only
// Challenge consults the lockout counter; confirming setup, disabling and
// regenerating backup codes do not.
type MFAService struct {
	Store    store.Store
	Cipher   SecretCipher
	Issuer   string // TOTP issuer label, e.g. "BarTab"
	TOTP     *TOTPEngine
	Backup   BackupCodeManager
	EmailOTP *EmailOTPChallenge
	Lockout  LockoutGuard
	Metrics  *Metrics
	Now      func() time.Time
}

// Options configures NewMFAService.
type Options struct {
	Issuer      string
	Env         domain.Environment
	MailTimeout time.Duration
	Metrics     *Metrics
	Now         func() time.Time
}

// NewMFAService wires the MFA components around a single clock.
func NewMFAService(st store.Store, codes store.EmailOTPCodes, cipher SecretCipher, mailer mailx.Sender, opts Options) *MFAService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	issuer := opts.Issuer
	if issuer == "" {
		issuer = "BarTab"
	}

	return &MFAService{
		Store:  st,
		Cipher: cipher,
		Issuer: issuer,
		TOTP:   &TOTPEngine{Now: now},
		Backup: BackupCodeManager{Count: backupCodeCount},
		EmailOTP: &EmailOTPChallenge{
			Codes:       codes,
			Mailer:      mailer,
			Env:         opts.Env,
			MailTimeout: opts.MailTimeout,
			Now:         now,
		},
		Lockout: LockoutGuard{
			Threshold: defaultLockoutThreshold,
			Duration:  defaultLockoutDuration,
			Now:       now,
		},
		Metrics: opts.Metrics,
		Now:     now,
	}
}

func (s *MFAService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// loadSettings returns the user's row, or an empty row when none exists yet.
func (s *MFAService) loadSettings(ctx context.Context, userID string) (domain.MFASettings, error) {
	return loadSettingsFrom(ctx, s.Store.MFASettings(), userID)
}

func loadSettingsFrom(ctx context.Context, repo store.MFASettings, userID string) (domain.MFASettings, error) {
	settings, err := repo.GetMFASettings(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.MFASettings{UserID: userID, BackupCodesHashed: []string{}}, nil
		}
		return domain.MFASettings{}, persistenceError("load MFA settings", err)
	}
	return settings, nil
}

// inTx runs fn against a transaction-scoped settings repo. Errors returned by
// fn pass through untouched; failures to begin or commit are persistence
// errors.
func (s *MFAService) inTx(ctx context.Context, op string, fn func(repo store.MFASettings) error) error {
	var fnErr error
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		fnErr = fn(tx.MFASettings())
		return fnErr
	})
	if err != nil && fnErr == nil {
		return persistenceError(op, err)
	}
	return err
}

// Status reports the user's enrolment state.
func (s *MFAService) Status(ctx context.Context, userID string) (domain.MFAStatus, error) {
	settings, err := s.loadSettings(ctx, userID)
	if err != nil {
		return domain.MFAStatus{}, err
	}

	return domain.MFAStatus{
		MFAEnabled:           settings.MFAEnabled,
		MFAType:              settings.Type(),
		SetupAt:              settings.TOTPVerifiedAt,
		SuggestEmailOTP:      !settings.MFAEnabled,
		BackupCodesRemaining: len(settings.BackupCodesHashed),
	}, nil
}

// BeginSetup generates and stores a new TOTP secret. The plaintext secret is
// only ever returned here. Calling it again before confirming replaces the
// pending secret.
func (s *MFAService) BeginSetup(ctx context.Context, userID, email string) (domain.TOTPSetup, error) {
	secret, err := s.TOTP.GenerateSecret()
	if err != nil {
		return domain.TOTPSetup{}, err
	}

	account := email
	if account == "" {
		account = userID
	}
	uri, err := s.TOTP.ProvisioningURI(account, s.Issuer, secret)
	if err != nil {
		return domain.TOTPSetup{}, err
	}

	envelope, err := s.Cipher.Encrypt(secret)
	if err != nil {
		return domain.TOTPSetup{}, fmt.Errorf("encrypt TOTP secret: %w", err)
	}

	err = s.inTx(ctx, "store pending TOTP secret", func(repo store.MFASettings) error {
		settings, err := loadSettingsFrom(ctx, repo, userID)
		if err != nil {
			return err
		}
		if settings.MFAEnabled {
			return ErrAlreadyEnabled
		}

		err = repo.UpsertPendingTOTP(ctx, userID, envelope, s.now())
		switch {
		case errors.Is(err, store.ErrConflict):
			// Setup was confirmed after the load above.
			return ErrAlreadyEnabled
		case err != nil:
			return persistenceError("store pending TOTP secret", err)
		}
		return nil
	})
	if err != nil {
		return domain.TOTPSetup{}, err
	}

	slogx.FromContext(ctx).Info("MFA setup started", slog.String("user_id", userID))

	return domain.TOTPSetup{
		Secret:          secret,
		ProvisioningURI: uri,
		Issuer:          s.Issuer,
		Account:         account,
	}, nil
}

// ConfirmSetup verifies the first code from the authenticator, enables MFA
// and returns the plaintext backup codes.
func (s *MFAService) ConfirmSetup(ctx context.Context, userID, code string) ([]string, error) {
	var codes []string
	err := s.inTx(ctx, "enable TOTP", func(repo store.MFASettings) error {
		settings, err := loadSettingsFrom(ctx, repo, userID)
		if err != nil {
			return err
		}
		if err := pendingSetup(settings); err != nil {
			return err
		}

		ok, err := s.verifyTOTP(settings, code)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidCode
		}

		codes, err = s.Backup.Generate()
		if err != nil {
			return err
		}

		// Only the secret the code was checked against may be enabled.
		err = repo.EnableTOTP(ctx, userID, *settings.TOTPSecretEncrypted, s.Backup.HashAll(codes), s.now())
		if errors.Is(err, store.ErrConflict) {
			fresh, err := loadSettingsFrom(ctx, repo, userID)
			if err != nil {
				return err
			}
			if err := pendingSetup(fresh); err != nil {
				return err
			}
			return ErrInvalidCode
		}
		if err != nil {
			return persistenceError("enable TOTP", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.setupCompleted()
	slogx.FromContext(ctx).Info("MFA enabled", slog.String("user_id", userID))

	return codes, nil
}

// pendingSetup reports why settings cannot be confirmed, if at all.
func pendingSetup(settings domain.MFASettings) error {
	if settings.MFAEnabled {
		return ErrAlreadyEnabled
	}
	if !settings.HasSecret() {
		return ErrNoSetupInProgress
	}
	return nil
}

// Challenge verifies a login-time code. Every verified or rejected code
// updates the shared failed-attempt counter regardless of method.
func (s *MFAService) Challenge(ctx context.Context, userID, code string, method domain.ChallengeMethod) (ChallengeResult, error) {
	if !method.Valid() {
		return ChallengeResult{}, ErrInvalidMethod
	}

	settings, err := s.loadSettings(ctx, userID)
	if err != nil {
		return ChallengeResult{}, err
	}

	if lock := s.Lockout.CheckLocked(settings); lock.Locked {
		s.Metrics.challenge(string(method), "locked")
		return ChallengeResult{}, &RateLimitedError{RemainingSeconds: lock.RemainingSeconds}
	}

	if method != domain.ChallengeEmail && !settings.MFAEnabled {
		return ChallengeResult{}, ErrMFANotEnabled
	}

	var verified bool
	var verifyErr error
	switch method {
	case domain.ChallengeTOTP:
		if !settings.HasSecret() {
			return ChallengeResult{}, ErrTOTPNotConfigured
		}
		verified, verifyErr = s.verifyTOTP(settings, code)
	case domain.ChallengeBackup:
		if len(settings.BackupCodesHashed) == 0 {
			return ChallengeResult{}, ErrNoBackupCodes
		}
		verified, verifyErr = s.consumeBackupCode(ctx, settings, code)
	case domain.ChallengeEmail:
		verified, verifyErr = s.EmailOTP.Consume(ctx, userID, code)
	}

	// A malformed code counts as a failed attempt; other errors are not the
	// caller's fault and leave the counter alone.
	if verifyErr != nil && !errors.Is(verifyErr, ErrInvalidCodeFormat) {
		return ChallengeResult{}, verifyErr
	}

	if verified {
		if err := s.Store.MFASettings().ResetFailedAttempts(ctx, userID, s.now()); err != nil {
			return ChallengeResult{}, persistenceError("reset failed attempts", err)
		}
		s.Metrics.challenge(string(method), "success")
		return ChallengeResult{Verified: true, Method: method}, nil
	}

	state, err := s.Store.MFASettings().RecordFailedAttempt(ctx, userID, s.Lockout.threshold(), s.Lockout.LockUntil(), s.now())
	if err != nil {
		return ChallengeResult{}, persistenceError("record failed attempt", err)
	}

	s.Metrics.challenge(string(method), "failure")
	log := slogx.FromContext(ctx)
	if state.LockedUntil != nil {
		s.Metrics.lockout()
		log.Warn("MFA challenge locked after repeated failures",
			slog.String("user_id", userID),
			slog.Int("failed_attempts", state.FailedAttempts),
		)
	} else {
		log.Info("MFA challenge failed",
			slog.String("user_id", userID),
			slog.String("method", string(method)),
			slog.Int("failed_attempts", state.FailedAttempts),
		)
	}

	if verifyErr != nil {
		return ChallengeResult{}, verifyErr
	}
	return ChallengeResult{}, ErrInvalidCode
}

// Disable turns MFA off after checking a current TOTP code.
func (s *MFAService) Disable(ctx context.Context, userID, code string) error {
	if err := s.requireTOTP(ctx, userID, code); err != nil {
		return err
	}

	if err := s.Store.MFASettings().DisableMFA(ctx, userID, s.now()); err != nil {
		return persistenceError("disable MFA", err)
	}

	slogx.FromContext(ctx).Info("MFA disabled", slog.String("user_id", userID))
	return nil
}

// RegenerateBackupCodes replaces every backup code after checking a current
// TOTP code and returns the new plaintext set.
func (s *MFAService) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	if err := s.requireTOTP(ctx, userID, code); err != nil {
		return nil, err
	}

	codes, err := s.Backup.Generate()
	if err != nil {
		return nil, err
	}

	if err := s.Store.MFASettings().ReplaceBackupCodes(ctx, userID, s.Backup.HashAll(codes), s.now()); err != nil {
		return nil, persistenceError("replace backup codes", err)
	}

	slogx.FromContext(ctx).Info("backup codes regenerated", slog.String("user_id", userID))
	return codes, nil
}

// IssueEmailOTP issues a code and tries to mail it. Delivery failure does not
// fail the call.
func (s *MFAService) IssueEmailOTP(ctx context.Context, userID, email string) (domain.EmailOTPIssue, error) {
	if email == "" {
		return domain.EmailOTPIssue{}, ErrNoEmail
	}

	issued, err := s.EmailOTP.Issue(ctx, userID)
	if err != nil {
		return domain.EmailOTPIssue{}, err
	}

	delivered := s.EmailOTP.Dispatch(ctx, email, issued.Code)
	s.Metrics.emailDelivery(delivered)

	return domain.EmailOTPIssue{
		MaskedEmail:      MaskEmail(email),
		ExpiresInSeconds: issued.ExpiresInSeconds,
		Delivered:        delivered,
		DevCode:          issued.DevCode,
	}, nil
}

// requireTOTP checks MFA is enabled and code is valid, without touching the
// lockout counter.
func (s *MFAService) requireTOTP(ctx context.Context, userID, code string) error {
	settings, err := s.loadSettings(ctx, userID)
	if err != nil {
		return err
	}
	if !settings.MFAEnabled {
		return ErrMFANotEnabled
	}
	if !settings.HasSecret() {
		return ErrTOTPNotConfigured
	}

	ok, err := s.verifyTOTP(settings, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}
	return nil
}

func (s *MFAService) verifyTOTP(settings domain.MFASettings, code string) (bool, error) {
	// Surrounding whitespace is dropped, as for email OTP codes.
	code = strings.TrimSpace(code)
	if !ValidFormat(code) {
		return false, ErrInvalidCodeFormat
	}

	secret, err := s.Cipher.Decrypt(*settings.TOTPSecretEncrypted)
	if err != nil {
		return false, fmt.Errorf("decrypt TOTP secret: %w", err)
	}
	return s.TOTP.Verify(code, secret)
}

// consumeBackupCode removes a matching digest with a compare-and-swap so two
// concurrent uses of one code cannot both succeed.
func (s *MFAService) consumeBackupCode(ctx context.Context, settings domain.MFASettings, code string) (bool, error) {
	stored := settings.BackupCodesHashed

	for range consumeRetries {
		matched, remaining := s.Backup.Consume(code, stored)
		if !matched {
			return false, nil
		}

		err := s.Store.MFASettings().ConsumeBackupCode(ctx, settings.UserID, stored, remaining, s.now())
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return false, persistenceError("consume backup code", err)
		}

		fresh, err := s.loadSettings(ctx, settings.UserID)
		if err != nil {
			return false, err
		}
		stored = fresh.BackupCodesHashed
	}
	return false, nil
}
