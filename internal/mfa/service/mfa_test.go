package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/domain"
	"github.com/aussiebroadwan/bartab-mfa/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestStatusForUnknownUser(t *testing.T) {
	e := newTestEnv(t, domain.EnvProduction)

	status, err := e.svc.Status(context.Background(), "nobody")
	require.NoError(t, err)
	require.False(t, status.MFAEnabled)
	require.Equal(t, domain.MFATypeNone, status.MFAType)
	require.Nil(t, status.SetupAt)
	require.True(t, status.SuggestEmailOTP)
	require.Zero(t, status.BackupCodesRemaining)
}

// Scenario A: setup then confirm enables TOTP.
func TestSetupFlowEnablesTOTP(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)

	setup, err := e.svc.BeginSetup(ctx, testUserID, testEmail)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.ProvisioningURI, "otpauth://totp/")
	require.Equal(t, "BarTab", setup.Issuer)
	require.Equal(t, testEmail, setup.Account)

	settings, err := e.store.MFASettings().GetMFASettings(ctx, testUserID)
	require.NoError(t, err)
	require.False(t, settings.MFAEnabled)
	require.Nil(t, settings.MFAType)
	require.NotContains(t, *settings.TOTPSecretEncrypted, setup.Secret, "secret is stored encrypted")

	status, err := e.svc.Status(ctx, testUserID)
	require.NoError(t, err)
	require.False(t, status.MFAEnabled, "pending setup is not enabled")

	codes, err := e.svc.ConfirmSetup(ctx, testUserID, e.currentCode(t, setup.Secret, 0))
	require.NoError(t, err)
	require.Len(t, codes, 8)

	status, err = e.svc.Status(ctx, testUserID)
	require.NoError(t, err)
	require.True(t, status.MFAEnabled)
	require.Equal(t, domain.MFATypeTOTP, status.MFAType)
	require.NotNil(t, status.SetupAt)
	require.True(t, status.SetupAt.Equal(testStart))
	require.False(t, status.SuggestEmailOTP)
	require.Equal(t, 8, status.BackupCodesRemaining)
}

func TestBeginSetupTwiceReplacesPendingSecret(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)

	first, err := e.svc.BeginSetup(ctx, testUserID, testEmail)
	require.NoError(t, err)
	second, err := e.svc.BeginSetup(ctx, testUserID, testEmail)
	require.NoError(t, err)
	require.NotEqual(t, first.Secret, second.Secret)

	_, err = e.svc.ConfirmSetup(ctx, testUserID, e.wrongCode(t, second.Secret))
	require.ErrorIs(t, err, ErrInvalidCode)

	_, err = e.svc.ConfirmSetup(ctx, testUserID, e.currentCode(t, second.Secret, 0))
	require.NoError(t, err)
}

func TestBeginSetupCannotUndoConcurrentConfirm(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)

	first, err := e.svc.BeginSetup(ctx, testUserID, testEmail)
	require.NoError(t, err)

	// A second BeginSetup loads the pending row, then the first setup is
	// confirmed before it writes its new secret.
	st := &interleavingStore{Store: e.store}
	st.beforeUpsert = func() {
		codes, err := e.svc.ConfirmSetup(ctx, testUserID, e.currentCode(t, first.Secret, 0))
		require.NoError(t, err)
		require.Len(t, codes, 8)
	}

	_, err = e.withStore(st).BeginSetup(ctx, testUserID, testEmail)
	require.ErrorIs(t, err, ErrAlreadyEnabled)

	settings, err := e.store.MFASettings().GetMFASettings(ctx, testUserID)
	require.NoError(t, err)
	require.True(t, settings.MFAEnabled)
	require.Len(t, settings.BackupCodesHashed, 8)
	require.NotNil(t, settings.TOTPVerifiedAt)

	secret, err := e.svc.Cipher.Decrypt(*settings.TOTPSecretEncrypted)
	require.NoError(t, err)
	require.Equal(t, first.Secret, secret, "confirmed secret is kept")
}

func TestConfirmSetupRejectsReplacedSecret(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)

	first, err := e.svc.BeginSetup(ctx, testUserID, testEmail)
	require.NoError(t, err)

	// The code for the first secret checks out, then a new setup replaces
	// the secret before MFA is switched on.
	var second domain.TOTPSetup
	st := &interleavingStore{Store: e.store}
	st.beforeEnable = func() {
		var err error
		second, err = e.svc.BeginSetup(ctx, testUserID, testEmail)
		require.NoError(t, err)
	}

	_, err = e.withStore(st).ConfirmSetup(ctx, testUserID, e.currentCode(t, first.Secret, 0))
	require.ErrorIs(t, err, ErrInvalidCode)

	settings, err := e.store.MFASettings().GetMFASettings(ctx, testUserID)
	require.NoError(t, err)
	require.False(t, settings.MFAEnabled)
	require.Empty(t, settings.BackupCodesHashed)
	require.Nil(t, settings.TOTPVerifiedAt)

	codes, err := e.svc.ConfirmSetup(ctx, testUserID, e.currentCode(t, second.Secret, 0))
	require.NoError(t, err)
	require.Len(t, codes, 8)
}

func TestConfirmSetupReportsConcurrentEnable(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)

	setup, err := e.svc.BeginSetup(ctx, testUserID, testEmail)
	require.NoError(t, err)
	code := e.currentCode(t, setup.Secret, 0)

	var winner []string
	st := &interleavingStore{Store: e.store}
	st.beforeEnable = func() {
		var err error
		winner, err = e.svc.ConfirmSetup(ctx, testUserID, code)
		require.NoError(t, err)
	}

	_, err = e.withStore(st).ConfirmSetup(ctx, testUserID, code)
	require.ErrorIs(t, err, ErrAlreadyEnabled)

	status, err := e.svc.Status(ctx, testUserID)
	require.NoError(t, err)
	require.True(t, status.MFAEnabled)

	res, err := e.svc.Challenge(ctx, testUserID, winner[0], domain.ChallengeBackup)
	require.NoError(t, err)
	require.True(t, res.Verified, "the first confirmation's backup codes stay valid")
}

func TestBeginSetupUsesUserIDWithoutEmail(t *testing.T) {
	e := newTestEnv(t, domain.EnvProduction)

	setup, err := e.svc.BeginSetup(context.Background(), testUserID, "")
	require.NoError(t, err)
	require.Equal(t, testUserID, setup.Account)
}

func TestSetupErrors(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)

	_, err := e.svc.ConfirmSetup(ctx, testUserID, "123456")
	require.ErrorIs(t, err, ErrNoSetupInProgress)

	e.enable(t)

	_, err = e.svc.BeginSetup(ctx, testUserID, testEmail)
	require.ErrorIs(t, err, ErrAlreadyEnabled)

	_, err = e.svc.ConfirmSetup(ctx, testUserID, "123456")
	require.ErrorIs(t, err, ErrAlreadyEnabled)
}

func TestConfirmSetupRejectsMalformedCode(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)

	_, err := e.svc.BeginSetup(ctx, testUserID, testEmail)
	require.NoError(t, err)

	_, err = e.svc.ConfirmSetup(ctx, testUserID, "12ab56")
	require.ErrorIs(t, err, ErrInvalidCodeFormat)
}

func TestTOTPCodesIgnoreSurroundingWhitespace(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)

	setup, err := e.svc.BeginSetup(ctx, testUserID, testEmail)
	require.NoError(t, err)

	_, err = e.svc.ConfirmSetup(ctx, testUserID, e.currentCode(t, setup.Secret, 0)+" ")
	require.NoError(t, err)

	res, err := e.svc.Challenge(ctx, testUserID, " "+e.currentCode(t, setup.Secret, 0)+"\n", domain.ChallengeTOTP)
	require.NoError(t, err)
	require.True(t, res.Verified)

	settings, err := e.store.MFASettings().GetMFASettings(ctx, testUserID)
	require.NoError(t, err)
	require.Zero(t, settings.FailedAttempts)

	_, err = e.svc.Challenge(ctx, testUserID, "12 3456", domain.ChallengeTOTP)
	require.ErrorIs(t, err, ErrInvalidCodeFormat, "inner whitespace is still malformed")
}

func TestConfirmSetupIsNotLockoutGated(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)

	setup, err := e.svc.BeginSetup(ctx, testUserID, testEmail)
	require.NoError(t, err)

	wrong := e.wrongCode(t, setup.Secret)
	for range 10 {
		_, err := e.svc.ConfirmSetup(ctx, testUserID, wrong)
		require.ErrorIs(t, err, ErrInvalidCode)
	}

	settings, err := e.store.MFASettings().GetMFASettings(ctx, testUserID)
	require.NoError(t, err)
	require.Zero(t, settings.FailedAttempts)

	_, err = e.svc.ConfirmSetup(ctx, testUserID, e.currentCode(t, setup.Secret, 0))
	require.NoError(t, err)
}

func TestChallengeTOTP(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)
	secret, _ := e.enable(t)

	res, err := e.svc.Challenge(ctx, testUserID, e.currentCode(t, secret, -30*time.Second), domain.ChallengeTOTP)
	require.NoError(t, err)
	require.True(t, res.Verified)
	require.Equal(t, domain.ChallengeTOTP, res.Method)

	_, err = e.svc.Challenge(ctx, testUserID, e.currentCode(t, secret, -60*time.Second), domain.ChallengeTOTP)
	require.ErrorIs(t, err, ErrInvalidCode)
}

// Scenario B: five failures lock the challenge path, even for a correct code.
func TestChallengeLockout(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)
	secret, _ := e.enable(t)
	wrong := e.wrongCode(t, secret)

	for range 5 {
		_, err := e.svc.Challenge(ctx, testUserID, wrong, domain.ChallengeTOTP)
		require.ErrorIs(t, err, ErrInvalidCode)
	}

	_, err := e.svc.Challenge(ctx, testUserID, e.currentCode(t, secret, 0), domain.ChallengeTOTP)
	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
	require.InDelta(t, 900, rl.RemainingSeconds, 1)

	// Other methods share the lock.
	_, err = e.svc.Challenge(ctx, testUserID, "ABCD1234", domain.ChallengeBackup)
	require.ErrorAs(t, err, &rl)

	e.clock.Advance(15 * time.Minute)

	res, err := e.svc.Challenge(ctx, testUserID, e.currentCode(t, secret, 0), domain.ChallengeTOTP)
	require.NoError(t, err)
	require.True(t, res.Verified)

	settings, err := e.store.MFASettings().GetMFASettings(ctx, testUserID)
	require.NoError(t, err)
	require.Zero(t, settings.FailedAttempts)
	require.Nil(t, settings.LockedUntil)
}

func TestChallengeFailuresShareCounterAcrossMethods(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)
	secret, _ := e.enable(t)

	_, err := e.svc.Challenge(ctx, testUserID, e.wrongCode(t, secret), domain.ChallengeTOTP)
	require.ErrorIs(t, err, ErrInvalidCode)
	_, err = e.svc.Challenge(ctx, testUserID, "00000000", domain.ChallengeBackup)
	require.ErrorIs(t, err, ErrInvalidCode)
	_, err = e.svc.Challenge(ctx, testUserID, "123456", domain.ChallengeEmail)
	require.ErrorIs(t, err, ErrInvalidCode)
	_, err = e.svc.Challenge(ctx, testUserID, "12", domain.ChallengeTOTP)
	require.ErrorIs(t, err, ErrInvalidCodeFormat)

	settings, err := e.store.MFASettings().GetMFASettings(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, 4, settings.FailedAttempts)
}

// Scenario C: a backup code works exactly once.
func TestChallengeBackupCodeSingleUse(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)
	e.enable(t)

	require.NoError(t, e.store.MFASettings().ReplaceBackupCodes(ctx, testUserID,
		[]string{cryptox.HashCode("FFFF0000"), cryptox.HashCode("ABCD1234")}, testStart))

	res, err := e.svc.Challenge(ctx, testUserID, "ABCD1234", domain.ChallengeBackup)
	require.NoError(t, err)
	require.True(t, res.Verified)

	_, err = e.svc.Challenge(ctx, testUserID, "ABCD1234", domain.ChallengeBackup)
	require.ErrorIs(t, err, ErrInvalidCode)

	settings, err := e.store.MFASettings().GetMFASettings(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, []string{cryptox.HashCode("FFFF0000")}, settings.BackupCodesHashed)
	require.Equal(t, 1, settings.BackupCodesUsedCount)
}

func TestChallengeBackupCodesFromSetup(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)
	_, codes := e.enable(t)

	for _, code := range codes {
		res, err := e.svc.Challenge(ctx, testUserID, code, domain.ChallengeBackup)
		require.NoError(t, err)
		require.True(t, res.Verified)
	}

	_, err := e.svc.Challenge(ctx, testUserID, codes[0], domain.ChallengeBackup)
	require.ErrorIs(t, err, ErrNoBackupCodes)
}

// Scenario D: disable clears MFA and the TOTP challenge is refused afterwards.
func TestDisable(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)
	secret, _ := e.enable(t)

	require.ErrorIs(t, e.svc.Disable(ctx, testUserID, e.wrongCode(t, secret)), ErrInvalidCode)
	require.NoError(t, e.svc.Disable(ctx, testUserID, e.currentCode(t, secret, 0)))

	settings, err := e.store.MFASettings().GetMFASettings(ctx, testUserID)
	require.NoError(t, err)
	require.False(t, settings.MFAEnabled)
	require.Nil(t, settings.MFAType)
	require.Nil(t, settings.TOTPSecretEncrypted)
	require.Empty(t, settings.BackupCodesHashed)

	_, err = e.svc.Challenge(ctx, testUserID, e.currentCode(t, secret, 0), domain.ChallengeTOTP)
	require.ErrorIs(t, err, ErrMFANotEnabled)
	_, err = e.svc.Challenge(ctx, testUserID, "ABCD1234", domain.ChallengeBackup)
	require.ErrorIs(t, err, ErrMFANotEnabled)

	require.ErrorIs(t, e.svc.Disable(ctx, testUserID, e.currentCode(t, secret, 0)), ErrMFANotEnabled)

	// The row survives, so setup can start again.
	_, err = e.svc.BeginSetup(ctx, testUserID, testEmail)
	require.NoError(t, err)
}

func TestDisableAndRegenerateIgnoreLockout(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)
	secret, _ := e.enable(t)
	wrong := e.wrongCode(t, secret)

	for range 5 {
		_, _ = e.svc.Challenge(ctx, testUserID, wrong, domain.ChallengeTOTP)
	}

	for range 3 {
		require.ErrorIs(t, e.svc.Disable(ctx, testUserID, wrong), ErrInvalidCode)
	}

	codes, err := e.svc.RegenerateBackupCodes(ctx, testUserID, e.currentCode(t, secret, 0))
	require.NoError(t, err, "regenerate is not lockout gated")
	require.Len(t, codes, 8)

	settings, err := e.store.MFASettings().GetMFASettings(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, 5, settings.FailedAttempts, "non-challenge paths leave the counter alone")
}

func TestRegenerateBackupCodes(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)

	_, err := e.svc.RegenerateBackupCodes(ctx, testUserID, "123456")
	require.ErrorIs(t, err, ErrMFANotEnabled)

	secret, old := e.enable(t)

	_, err = e.svc.Challenge(ctx, testUserID, old[0], domain.ChallengeBackup)
	require.NoError(t, err)

	_, err = e.svc.RegenerateBackupCodes(ctx, testUserID, e.wrongCode(t, secret))
	require.ErrorIs(t, err, ErrInvalidCode)

	fresh, err := e.svc.RegenerateBackupCodes(ctx, testUserID, e.currentCode(t, secret, 0))
	require.NoError(t, err)
	require.Len(t, fresh, 8)

	settings, err := e.store.MFASettings().GetMFASettings(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, settings.BackupCodesHashed, 8)
	require.Zero(t, settings.BackupCodesUsedCount)

	_, err = e.svc.Challenge(ctx, testUserID, old[1], domain.ChallengeBackup)
	require.ErrorIs(t, err, ErrInvalidCode, "old codes are gone")

	_, err = e.svc.Challenge(ctx, testUserID, fresh[0], domain.ChallengeBackup)
	require.NoError(t, err)
}

func TestChallengeEmailWithoutMFA(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvDevelopment)

	issue, err := e.svc.IssueEmailOTP(ctx, testUserID, testEmail)
	require.NoError(t, err)
	require.Equal(t, "al***@example.com", issue.MaskedEmail)
	require.Equal(t, 600, issue.ExpiresInSeconds)
	require.True(t, issue.Delivered)
	require.NotEmpty(t, issue.DevCode)

	res, err := e.svc.Challenge(ctx, testUserID, issue.DevCode, domain.ChallengeEmail)
	require.NoError(t, err)
	require.True(t, res.Verified)

	_, err = e.svc.Challenge(ctx, testUserID, issue.DevCode, domain.ChallengeEmail)
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestIssueEmailOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("requires email", func(t *testing.T) {
		e := newTestEnv(t, domain.EnvProduction)
		_, err := e.svc.IssueEmailOTP(ctx, testUserID, "")
		require.ErrorIs(t, err, ErrNoEmail)
	})

	t.Run("production hides the code", func(t *testing.T) {
		e := newTestEnv(t, domain.EnvProduction)
		issue, err := e.svc.IssueEmailOTP(ctx, testUserID, testEmail)
		require.NoError(t, err)
		require.Empty(t, issue.DevCode)
		require.Len(t, e.mailer.Sent(), 1)
	})

	t.Run("delivery failure still issues a code", func(t *testing.T) {
		e := newTestEnv(t, domain.EnvDevelopment)
		e.mailer.err = errMailDown

		issue, err := e.svc.IssueEmailOTP(ctx, testUserID, testEmail)
		require.NoError(t, err)
		require.False(t, issue.Delivered)

		res, err := e.svc.Challenge(ctx, testUserID, issue.DevCode, domain.ChallengeEmail)
		require.NoError(t, err)
		require.True(t, res.Verified)
	})
}

func TestChallengeErrors(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)

	_, err := e.svc.Challenge(ctx, testUserID, "123456", domain.ChallengeMethod("sms"))
	require.ErrorIs(t, err, ErrInvalidMethod)

	_, err = e.svc.Challenge(ctx, testUserID, "123456", domain.ChallengeTOTP)
	require.ErrorIs(t, err, ErrMFANotEnabled)

	// Enabled but with no codes left.
	e.enable(t)
	require.NoError(t, e.store.MFASettings().ReplaceBackupCodes(ctx, testUserID, nil, testStart))
	_, err = e.svc.Challenge(ctx, testUserID, "ABCD1234", domain.ChallengeBackup)
	require.ErrorIs(t, err, ErrNoBackupCodes)
}

func TestChallengeTamperedSecret(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, domain.EnvProduction)
	secret, _ := e.enable(t)

	// Swap in a cipher with a different key so decryption fails.
	otherKey, err := cryptox.DeriveKey([]byte("another master key"))
	require.NoError(t, err)
	other, err := cryptox.NewSecretCipher(otherKey)
	require.NoError(t, err)
	e.svc.Cipher = other

	_, err = e.svc.Challenge(ctx, testUserID, e.currentCode(t, secret, 0), domain.ChallengeTOTP)
	require.ErrorIs(t, err, cryptox.ErrCrypto)

	settings, err := e.store.MFASettings().GetMFASettings(ctx, testUserID)
	require.NoError(t, err)
	require.Zero(t, settings.FailedAttempts, "crypto failures are not the caller's fault")
}
