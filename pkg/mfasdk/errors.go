package mfasdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/bartab-mfa/pkg/httpx"
)

// Error codes returned by the MFA service.
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeInvalidCode       = "invalid_code"
	ErrorCodeInvalidCodeFormat = "invalid_code_format"
	ErrorCodeInvalidMethod     = "invalid_method"
	ErrorCodeAlreadyEnabled    = "mfa_already_enabled"
	ErrorCodeNoSetupInProgress = "no_setup_in_progress"
	ErrorCodeMFANotEnabled     = "mfa_not_enabled"
	ErrorCodeTOTPNotConfigured = "totp_not_configured"
	ErrorCodeNoBackupCodes     = "no_backup_codes"
	ErrorCodeNoEmail           = "no_email"
	ErrorCodeRateLimited       = "rate_limited"
	ErrorCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrorCodeInsufficientScope = "insufficient_scope"
	ErrorCodeServerError       = "server_error"
)

// APIError is a typed error response. The server writes it with WriteError
// and the client decodes every non-2xx response into one.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`

	// RetryAfter is the wait in seconds on 429 responses
	RetryAfter int `json:"retry_after,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes e as the HTTP response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	if e.RetryAfter > 0 {
		httpx.WriteRetryAfter(w, e.Code, e.Description, e.RetryAfter)
		return
	}
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request body is malformed",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid or expired",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// NewAPIError builds an APIError.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Description: description}
}

// RateLimited builds the 429 returned while a user is locked out.
func RateLimited(retryAfter int) *APIError {
	return &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeRateLimited,
		Description: fmt.Sprintf("too many failed attempts, try again in %d seconds", retryAfter),
		RetryAfter:  retryAfter,
	}
}

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
			RetryAfter:  errResp.RetryAfter,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
