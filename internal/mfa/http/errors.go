package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/service"
	"github.com/aussiebroadwan/bartab-mfa/pkg/mfasdk"
)

// serviceErrors maps each domain error to its response. Order matters:
// ErrInvalidCodeFormat wraps ErrInvalidCode and must match first.
var serviceErrors = []struct {
	target error
	resp   *mfasdk.APIError
}{
	{service.ErrInvalidCodeFormat, mfasdk.NewAPIError(http.StatusBadRequest, mfasdk.ErrorCodeInvalidCodeFormat, "code must be 6 digits")},
	{service.ErrInvalidCode, mfasdk.NewAPIError(http.StatusBadRequest, mfasdk.ErrorCodeInvalidCode, "invalid code")},
	{service.ErrAlreadyEnabled, mfasdk.NewAPIError(http.StatusConflict, mfasdk.ErrorCodeAlreadyEnabled, "MFA is already enabled for this user")},
	{service.ErrNoSetupInProgress, mfasdk.NewAPIError(http.StatusBadRequest, mfasdk.ErrorCodeNoSetupInProgress, "start TOTP setup before verifying a code")},
	{service.ErrMFANotEnabled, mfasdk.NewAPIError(http.StatusBadRequest, mfasdk.ErrorCodeMFANotEnabled, "MFA is not enabled for this user")},
	{service.ErrTOTPNotConfigured, mfasdk.NewAPIError(http.StatusBadRequest, mfasdk.ErrorCodeTOTPNotConfigured, "TOTP is not configured for this user")},
	{service.ErrNoBackupCodes, mfasdk.NewAPIError(http.StatusBadRequest, mfasdk.ErrorCodeNoBackupCodes, "no backup codes remain")},
	{service.ErrNoEmail, mfasdk.NewAPIError(http.StatusBadRequest, mfasdk.ErrorCodeNoEmail, "no email address on file")},
	{service.ErrInvalidMethod, mfasdk.NewAPIError(http.StatusBadRequest, mfasdk.ErrorCodeInvalidMethod, "method must be totp, backup or email")},
}

// writeServiceError translates a service error. Anything unrecognised,
// including crypto and persistence failures, is logged and reported as a
// generic server_error.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, userID string, err error) {
	var limited *service.RateLimitedError
	if errors.As(err, &limited) {
		log.Warn("MFA challenge rejected while locked", "user_id", userID, "retry_after", limited.RemainingSeconds)
		mfasdk.RateLimited(limited.RemainingSeconds).WriteError(w)
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			log.Info("MFA request rejected", "user_id", userID, "error", m.resp.Code)
			m.resp.WriteError(w)
			return
		}
	}

	log.Error("MFA request failed", "user_id", userID, "err", err)
	mfasdk.ErrServerError.WriteError(w)
}
