package mfa_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/app"
	"github.com/aussiebroadwan/bartab-mfa/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-mfa/pkg/mfasdk"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Helpers for MFA service end-to-end tests. The service runs in-process
 * behind httptest with its real wiring: SQLite on disk, email OTP codes in a
 * Redis container and identity keys fetched from a fake auth service JWKS.
 */

const (
	authIssuer = "bartab-auth"
	authKeyID  = "bartab-auth-key-001"
	encKey     = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

// identityProvider stands in for the auth service: it serves a JWKS and
// signs access tokens.
type identityProvider struct {
	srv  *httptest.Server
	priv ed25519.PrivateKey
}

func newIdentityProvider(t *testing.T) *identityProvider {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	jwks := jwtx.JWKS{Keys: []jwtx.JWK{jwtx.NewEd25519JWK(authKeyID, pub)}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(srv.Close)

	return &identityProvider{srv: srv, priv: priv}
}

func (p *identityProvider) jwksURL() string {
	return p.srv.URL + "/.well-known/jwks.json"
}

// token mints an access token for userID, as the auth service would after a
// password login.
func (p *identityProvider) token(t *testing.T, userID, email string) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA,
		jwtx.NewAccessClaims(userID, email, authIssuer, []string{"profile:read", "profile:write"}, 5*time.Minute, time.Now()))
	tok.Header["kid"] = authKeyID
	signed, err := tok.SignedString(p.priv)
	require.NoError(t, err)
	return signed
}

// setupRedisContainer starts redis and returns its URL.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

// setupMFAService starts the MFA service and returns its base URL.
func setupMFAService(t *testing.T, idp *identityProvider, env string) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}

	cfg := app.Config{
		EncryptionKey:        encKey,
		Issuer:               "BarTab",
		DatabaseFile:         filepath.Join(t.TempDir(), "mfa.db"),
		CodeStore:            "redis",
		RedisURL:             setupRedisContainer(t),
		QRSize:               128,
		AuthIssuer:           authIssuer,
		AuthJWKSURL:          idp.jwksURL(),
		JWKSRefreshInterval:  time.Minute,
		MailTimeout:          time.Second,
		Env:                  env,
		LogLevel:             "warn",
		LogFormat:            "json",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}

	application, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(srv.Close)

	return srv.URL
}

// newUserClient returns an SDK client for a fresh user.
func newUserClient(t *testing.T, baseURL string, idp *identityProvider, userID string) *mfasdk.Client {
	t.Helper()
	return mfasdk.NewClient(baseURL, mfasdk.StaticToken(idp.token(t, userID, userID+"@example.com")))
}

// enrollTOTP runs setup and confirmation and returns the secret and backup
// codes.
func enrollTOTP(t *testing.T, client *mfasdk.Client) (string, []string) {
	t.Helper()

	setup, err := client.BeginSetup(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)

	codes, err := client.ConfirmSetup(t.Context(), totpCode(t, setup.Secret))
	require.NoError(t, err)
	require.Len(t, codes, 8)

	return setup.Secret, codes
}

func totpCode(t *testing.T, secret string) string {
	t.Helper()

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

// requireAPIError asserts err is an mfasdk.APIError with the given code.
func requireAPIError(t *testing.T, err error, status int, code string) *mfasdk.APIError {
	t.Helper()

	var apiErr *mfasdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.StatusCode)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}
