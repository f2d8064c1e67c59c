package service

import (
	"encoding/base32"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpPeriod     = 30 // seconds per time step
	totpSkew       = 1  // steps accepted either side of the current one
	totpSecretSize = 20 // RFC 6238 reference length, 160 bits
)

var (
	totpCodePattern = regexp.MustCompile(`^\d{6}$`)
	base32NoPadding = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// TOTPEngine generates RFC 6238 secrets and verifies 6 digit SHA1 codes with
// a tolerance of one time step either side of now.
type TOTPEngine struct {
	Now func() time.Time
}

func (e *TOTPEngine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *TOTPEngine) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// GenerateSecret returns a fresh base32 encoded secret.
func (e *TOTPEngine) GenerateSecret() (string, error) {
	raw, err := cryptox.RandomBytes(totpSecretSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}
	return base32NoPadding.EncodeToString(raw), nil
}

// ProvisioningURI builds the otpauth:// URL authenticator apps scan.
func (e *TOTPEngine) ProvisioningURI(account, issuer, secret string) (string, error) {
	raw, err := base32NoPadding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to decode TOTP secret: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      totpPeriod,
		SecretSize:  totpSecretSize,
		Secret:      raw,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build provisioning URI: %w", err)
	}
	return key.URL(), nil
}

// ValidFormat reports whether code looks like a TOTP code.
func ValidFormat(code string) bool {
	return totpCodePattern.MatchString(code)
}

// Verify checks code against secret for the current step and its neighbours.
// Malformed codes fail with ErrInvalidCodeFormat before any HMAC is computed.
func (e *TOTPEngine) Verify(code, secret string) (bool, error) {
	if !ValidFormat(code) {
		return false, ErrInvalidCodeFormat
	}

	valid, err := totp.ValidateCustom(code, secret, e.now().UTC(), e.validateOpts())
	if err != nil {
		// Only an undecodable secret is a real failure.
		if errors.Is(err, otp.ErrValidateSecretInvalidBase32) {
			return false, fmt.Errorf("failed to validate TOTP code: %w", err)
		}
		return false, nil
	}
	return valid, nil
}

// CodeFor returns the code for secret at t.
func (e *TOTPEngine) CodeFor(secret string, t time.Time) (string, error) {
	opts := e.validateOpts()
	return totp.GenerateCodeCustom(secret, t.UTC(), opts)
}
