package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/domain"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store"
	"github.com/aussiebroadwan/bartab-mfa/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-mfa/pkg/idx"
	"github.com/aussiebroadwan/bartab-mfa/pkg/mailx"
	"github.com/aussiebroadwan/bartab-mfa/pkg/slogx"
)

const (
	emailOTPMin         = 100000
	emailOTPMax         = 999999
	emailOTPTTL         = 10 * time.Minute
	defaultMailTimeout  = 5 * time.Second
	emailOTPMailSubject = "Your BarTab verification code"
)

// IssuedEmailOTP is the result of EmailOTPChallenge.Issue. Code is for the
// email body only; DevCode is set only in development.
type IssuedEmailOTP struct {
	Code             string
	DevCode          string
	ExpiresInSeconds int
}

// EmailOTPChallenge issues and redeems 6 digit codes delivered by email.
// Issuing replaces any unused code so at most one is live per user.
type EmailOTPChallenge struct {
	Codes       store.EmailOTPCodes
	Mailer      mailx.Sender
	Env         domain.Environment
	MailTimeout time.Duration
	Now         func() time.Time
}

func (c *EmailOTPChallenge) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Issue stores a fresh hashed code for userID and returns the plaintext.
func (c *EmailOTPChallenge) Issue(ctx context.Context, userID string) (IssuedEmailOTP, error) {
	n, err := cryptox.RandomInt(emailOTPMin, emailOTPMax)
	if err != nil {
		return IssuedEmailOTP{}, fmt.Errorf("failed to generate email OTP: %w", err)
	}
	code := strconv.FormatInt(n, 10)

	now := c.now().UTC()
	record := domain.EmailOTPCode{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		CodeHash:  cryptox.HashCode(code),
		ExpiresAt: now.Add(emailOTPTTL),
		CreatedAt: now,
	}
	if err := c.Codes.ReplaceEmailOTPCode(ctx, record); err != nil {
		return IssuedEmailOTP{}, persistenceError("store email OTP", err)
	}

	issued := IssuedEmailOTP{
		Code:             code,
		ExpiresInSeconds: int(emailOTPTTL / time.Second),
	}
	if c.Env == domain.EnvDevelopment {
		issued.DevCode = code
	}
	return issued, nil
}

// Dispatch sends code to email and reports whether it was delivered. It never
// blocks longer than MailTimeout and never fails; the code stays valid either
// way.
func (c *EmailOTPChallenge) Dispatch(ctx context.Context, email, code string) bool {
	if c.Mailer == nil {
		return false
	}

	timeout := c.MailTimeout
	if timeout <= 0 {
		timeout = defaultMailTimeout
	}

	log := slogx.FromContext(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- c.Mailer.Send(ctx, email, emailOTPMailSubject, emailOTPBody(code))
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Warn("email OTP delivery failed", slog.String("email", MaskEmail(email)), slog.Any("error", err))
			return false
		}
		return true
	case <-ctx.Done():
		log.Warn("email OTP delivery timed out", slog.String("email", MaskEmail(email)), slog.Duration("timeout", timeout))
		return false
	}
}

// Consume redeems submitted against the user's live code. A code can be
// redeemed once.
func (c *EmailOTPChallenge) Consume(ctx context.Context, userID, submitted string) (bool, error) {
	submitted = strings.TrimSpace(submitted)
	if !ValidFormat(submitted) {
		return false, nil
	}

	active, err := c.Codes.GetActiveEmailOTPCode(ctx, userID, c.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, persistenceError("load email OTP", err)
	}

	if !cryptox.EqualDigest(cryptox.HashCode(submitted), active.CodeHash) {
		return false, nil
	}

	ok, err := c.Codes.MarkEmailOTPCodeUsed(ctx, userID, active.ID)
	if err != nil {
		return false, persistenceError("mark email OTP used", err)
	}
	return ok, nil
}

// MaskEmail keeps the first two characters of the local part and the domain:
// "alice@example.com" becomes "al***@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "***"
	}

	local := []rune(email[:at])
	keep := min(len(local), 2)
	return string(local[:keep]) + "***@" + email[at+1:]
}

func emailOTPBody(code string) string {
	return "<p>Your BarTab verification code is:</p>" +
		"<p style=\"font-size:24px;font-weight:bold;letter-spacing:4px\">" + code + "</p>" +
		"<p>This code expires in 10 minutes. If you did not request it you can ignore this email.</p>"
}
