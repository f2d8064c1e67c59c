package mfasdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TokenSource returns the bearer token for the next request. Sessions from
// the auth SDK refresh tokens transparently, so the MFA client asks for one
// per call instead of holding it.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken always returns token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// Client talks to the MFA service on behalf of one authenticated user.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      TokenSource
}

// NewClient returns a client with a 10 second timeout.
func NewClient(baseURL string, token TokenSource) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		Token: token,
	}
}

// Status returns the caller's enrolment state.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, "/v1/mfa/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BeginSetup starts TOTP enrolment and returns the secret and QR code.
func (c *Client) BeginSetup(ctx context.Context) (*TOTPSetupResponse, error) {
	var out TOTPSetupResponse
	if err := c.do(ctx, http.MethodPost, "/v1/mfa/totp/setup", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmSetup submits the first authenticator code and returns the backup
// codes.
func (c *Client) ConfirmSetup(ctx context.Context, code string) ([]string, error) {
	var out BackupCodesResponse
	if err := c.do(ctx, http.MethodPost, "/v1/mfa/totp/verify", CodeRequest{Code: code}, &out); err != nil {
		return nil, err
	}
	return out.Codes, nil
}

// Challenge verifies a login code. A locked out user gets an *APIError with
// RetryAfter set.
func (c *Client) Challenge(ctx context.Context, code, method string) (*ChallengeResponse, error) {
	var out ChallengeResponse
	if err := c.do(ctx, http.MethodPost, "/v1/mfa/challenge", ChallengeRequest{Code: code, Method: method}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Disable turns MFA off using a current TOTP code.
func (c *Client) Disable(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, "/v1/mfa/disable", CodeRequest{Code: code}, &MessageResponse{})
}

// RegenerateBackupCodes replaces the backup codes using a current TOTP code.
func (c *Client) RegenerateBackupCodes(ctx context.Context, code string) ([]string, error) {
	var out BackupCodesResponse
	if err := c.do(ctx, http.MethodPost, "/v1/mfa/backup-codes", CodeRequest{Code: code}, &out); err != nil {
		return nil, err
	}
	return out.Codes, nil
}

// IssueEmailOTP mails a one-time code to the caller's address.
func (c *Client) IssueEmailOTP(ctx context.Context) (*EmailOTPResponse, error) {
	var out EmailOTPResponse
	if err := c.do(ctx, http.MethodPost, "/v1/mfa/email-otp", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLiveness checks the service is running. No token is sent.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doPublic(ctx, "/livez", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReadiness checks the service and its dependencies. No token is sent.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doPublic(ctx, "/readyz", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.Token == nil {
		return errors.New("mfasdk: no token source configured")
	}
	token, err := c.Token(ctx)
	if err != nil {
		return fmt.Errorf("mfasdk: get token: %w", err)
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("mfasdk: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return decodeJSON(resp, out)
}

func (c *Client) doPublic(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return decodeJSON(resp, out)
}

// decodeJSON decodes a 2xx body into target, or returns an *APIError.
func decodeJSON(resp *http.Response, target any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseErrorResponse(resp, body)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
