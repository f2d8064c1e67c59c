package domain

import "time"

// MFAType identifies the second factor configured for a user.
type MFAType string

const (
	MFATypeNone MFAType = "none"
	MFATypeTOTP MFAType = "totp"
)

// ChallengeMethod is the kind of code submitted to a login challenge.
type ChallengeMethod string

const (
	ChallengeTOTP   ChallengeMethod = "totp"
	ChallengeBackup ChallengeMethod = "backup"
	ChallengeEmail  ChallengeMethod = "email"
)

// Valid reports whether m is a known challenge method.
func (m ChallengeMethod) Valid() bool {
	switch m {
	case ChallengeTOTP, ChallengeBackup, ChallengeEmail:
		return true
	default:
		return false
	}
}

// MFASettings is the per-user MFA row. A user without a row behaves like a
// zero value with only UserID set.
type MFASettings struct {
	UserID                 string
	MFAEnabled             bool
	MFAType                *MFAType   // nil until setup is confirmed
	TOTPSecretEncrypted    *string    // iv:tag:ciphertext envelope
	TOTPVerifiedAt         *time.Time // set when setup is confirmed
	BackupCodesHashed      []string   // SHA-256 hex digests, shrinks on use
	BackupCodesGeneratedAt *time.Time
	BackupCodesUsedCount   int
	FailedAttempts         int
	LockedUntil            *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// HasSecret reports whether a TOTP secret has been stored (setup begun).
func (s MFASettings) HasSecret() bool {
	return s.TOTPSecretEncrypted != nil && *s.TOTPSecretEncrypted != ""
}

// Type returns the configured MFA type, or MFATypeNone.
func (s MFASettings) Type() MFAType {
	if s.MFAType == nil {
		return MFATypeNone
	}
	return *s.MFAType
}

// LockoutState is the result of recording a failed attempt.
type LockoutState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// EmailOTPCode is a hashed one-time code sent by email. At most one unused,
// unexpired code exists per user.
type EmailOTPCode struct {
	ID        string
	UserID    string
	CodeHash  string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Active reports whether the code can still be redeemed at now.
func (c EmailOTPCode) Active(now time.Time) bool {
	return !c.Used && now.Before(c.ExpiresAt)
}

// Environment gates development-only behaviour such as echoing OTPs.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ParseEnvironment maps ENV style values onto an Environment. Unknown values
// are treated as production.
func ParseEnvironment(s string) Environment {
	switch s {
	case "dev", "development", "local":
		return EnvDevelopment
	default:
		return EnvProduction
	}
}
