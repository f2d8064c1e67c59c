package mfasdk

import "time"

// Challenge methods accepted by POST /v1/mfa/challenge.
const (
	MethodTOTP   = "totp"
	MethodBackup = "backup"
	MethodEmail  = "email"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is a machine readable code, e.g. "invalid_code"
	Error string `json:"error"`

	// ErrorDescription is a human readable message
	ErrorDescription string `json:"error_description"`

	// RetryAfter is set on 429 responses, in seconds
	RetryAfter int `json:"retry_after,omitempty"`
}

// StatusResponse is returned by GET /v1/mfa/status.
type StatusResponse struct {
	MFAEnabled bool   `json:"mfa_enabled"`
	MFAType    string `json:"mfa_type"` // "none" or "totp"

	// SetupAt is when TOTP was confirmed
	SetupAt *time.Time `json:"setup_at,omitempty"`

	// SuggestEmailOTP is true when email OTP is the only verification
	// channel available to the user
	SuggestEmailOTP bool `json:"suggest_email_otp"`

	BackupCodesRemaining int `json:"backup_codes_remaining"`
}

// TOTPSetupResponse is returned by POST /v1/mfa/totp/setup. The secret is
// shown once and cannot be fetched again.
type TOTPSetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`

	// QRCode is a data:image/png;base64 URI of ProvisioningURI
	QRCode string `json:"qr_code,omitempty"`

	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

// CodeRequest carries a single code, used by verify, disable and
// backup code regeneration.
type CodeRequest struct {
	Code string `json:"code"`
}

// ChallengeRequest is the body of POST /v1/mfa/challenge.
type ChallengeRequest struct {
	Code   string `json:"code"`
	Method string `json:"method"` // totp, backup or email
}

// ChallengeResponse is returned when a challenge code is accepted.
type ChallengeResponse struct {
	Verified bool   `json:"verified"`
	Method   string `json:"method"`
}

// BackupCodesResponse carries plaintext backup codes, shown once.
type BackupCodesResponse struct {
	Codes []string `json:"backup_codes"`
}

// EmailOTPResponse is returned by POST /v1/mfa/email-otp.
type EmailOTPResponse struct {
	MaskedEmail string `json:"masked_email"`
	ExpiresIn   int    `json:"expires_in"`
	Delivered   bool   `json:"delivered"`

	// DevCode echoes the code in development deployments only
	DevCode string `json:"dev_code,omitempty"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the readiness of each dependency.
type HealthChecks struct {
	Database  string `json:"database"`
	Keys      string `json:"keys"`
	CodeStore string `json:"code_store,omitempty"`
}
