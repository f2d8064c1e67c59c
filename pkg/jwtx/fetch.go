package jwtx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// JWKSFetcher keeps a KeySet in sync with a remote JWKS endpoint.
type JWKSFetcher struct {
	URL        string
	Keys       *KeySet
	HTTPClient *http.Client
	Interval   time.Duration
	Logger     *slog.Logger
}

// Fetch downloads the JWKS once and replaces the keys in the set.
func (f *JWKSFetcher) Fetch(ctx context.Context) error {
	client := f.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return fmt.Errorf("jwtx: build jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("jwtx: fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwtx: fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("jwtx: decode jwks: %w", err)
	}
	if len(jwks.Keys) == 0 {
		return fmt.Errorf("jwtx: jwks at %s has no keys", f.URL)
	}

	return f.Keys.ResetFromJWKS(jwks)
}

// Run refreshes the keys every Interval until ctx is cancelled. Failures are
// logged and the previous keys stay in use.
func (f *JWKSFetcher) Run(ctx context.Context) {
	interval := f.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.Fetch(ctx); err != nil {
				logger.Warn("jwks refresh failed", "url", f.URL, "error", err)
				continue
			}
			logger.Debug("jwks refreshed", "url", f.URL)
		}
	}
}
