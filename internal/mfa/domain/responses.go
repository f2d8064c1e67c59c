package domain

import "time"

// MFAStatus is the read-only view returned by the status operation.
type MFAStatus struct {
	MFAEnabled           bool
	MFAType              MFAType
	SetupAt              *time.Time
	SuggestEmailOTP      bool
	BackupCodesRemaining int
}

// TOTPSetup holds the plaintext secret for one-time display after setup
// begins. It is never retrievable again.
type TOTPSetup struct {
	Secret          string
	ProvisioningURI string // otpauth:// URL for QR code generation
	Issuer          string
	Account         string
}

// EmailOTPIssue is the outcome of issuing an email OTP.
type EmailOTPIssue struct {
	MaskedEmail      string
	ExpiresInSeconds int
	Delivered        bool
	DevCode          string // only populated in development
}
