package app

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-mfa/pkg/mfasdk"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testHexKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

var discard = slog.New(slog.DiscardHandler)

func writePublicKey(t *testing.T, pub ed25519.PublicKey) string {
	t.Helper()

	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "auth.pub")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))
	return path
}

func testConfig(t *testing.T, pub ed25519.PublicKey) Config {
	t.Helper()

	return Config{
		EncryptionKey:        testHexKey,
		Issuer:               "BarTab",
		DatabaseFile:         filepath.Join(t.TempDir(), "mfa.db"),
		CodeStore:            "sqlite",
		AuthIssuer:           "bartab-auth",
		AuthPublicKeyPath:    writePublicKey(t, pub),
		AuthPublicKeyID:      "auth-1",
		Env:                  "dev",
		LogLevel:             "error",
		LogFormat:            "text",
		Port:                 0,
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
		MailTimeout:          time.Second,
	}
}

func TestInitSecretCipher(t *testing.T) {
	t.Run("missing key fails", func(t *testing.T) {
		_, err := InitSecretCipher(Config{}, discard)
		require.ErrorIs(t, err, ErrNoEncryptionKey)
	})

	t.Run("bad hex key fails", func(t *testing.T) {
		_, err := InitSecretCipher(Config{EncryptionKey: "abcd"}, discard)
		require.Error(t, err)
	})

	t.Run("env key wins over file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "master.key")
		require.NoError(t, os.WriteFile(path, []byte("some passphrase"), 0o600))

		fromEnv, err := InitSecretCipher(Config{EncryptionKey: testHexKey, MasterKeyPath: path}, discard)
		require.NoError(t, err)
		envelope, err := fromEnv.Encrypt("JBSWY3DPEHPK3PXP")
		require.NoError(t, err)

		fromFile, err := InitSecretCipher(Config{MasterKeyPath: path}, discard)
		require.NoError(t, err)
		_, err = fromFile.Decrypt(envelope)
		require.Error(t, err, "file key must differ from the env key")
	})
}

func TestInitIdentityKeys(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	t.Run("no source", func(t *testing.T) {
		_, err := InitIdentityKeys(context.Background(), Config{}, discard)
		require.Error(t, err)
	})

	t.Run("pem file", func(t *testing.T) {
		ik, err := InitIdentityKeys(context.Background(), Config{AuthPublicKeyPath: writePublicKey(t, pub), AuthPublicKeyID: "k"}, discard)
		require.NoError(t, err)
		require.Nil(t, ik.Fetcher)
		require.True(t, ik.Keys.IsReady())

		got, err := ik.Keys.Get("k")
		require.NoError(t, err)
		require.Equal(t, pub, got)
	})

	t.Run("jwks", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(jwtx.JWKS{Keys: []jwtx.JWK{jwtx.NewEd25519JWK("k", pub)}})
		}))
		defer srv.Close()

		ik, err := InitIdentityKeys(context.Background(), Config{AuthJWKSURL: srv.URL}, discard)
		require.NoError(t, err)
		require.NotNil(t, ik.Fetcher)
		require.True(t, ik.Keys.IsReady())
	})

	t.Run("unreachable jwks is not fatal", func(t *testing.T) {
		ik, err := InitIdentityKeys(context.Background(), Config{AuthJWKSURL: "http://127.0.0.1:1/jwks.json"}, discard)
		require.NoError(t, err)
		require.False(t, ik.Keys.IsReady())
	})
}

func TestNewRequiresEncryptionKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	cfg := testConfig(t, pub)
	cfg.EncryptionKey = ""

	_, err = New(cfg)
	require.ErrorIs(t, err, ErrNoEncryptionKey)
}

func TestNewRejectsUnknownCodeStore(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	cfg := testConfig(t, pub)
	cfg.CodeStore = "memcached"

	_, err = New(cfg)
	require.ErrorContains(t, err, "MFA_CODE_STORE")
}

func TestApplicationServesMFA(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	app, err := New(testConfig(t, pub))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA,
		jwtx.NewAccessClaims("01J00000000000000000000APP", "app@example.com", "bartab-auth", nil, time.Minute, time.Now()))
	tok.Header["kid"] = "auth-1"
	signed, err := tok.SignedString(priv)
	require.NoError(t, err)

	client := mfasdk.NewClient(srv.URL, mfasdk.StaticToken(signed))
	ctx := context.Background()

	status, err := client.Status(ctx)
	require.NoError(t, err)
	require.False(t, status.MFAEnabled)

	issued, err := client.IssueEmailOTP(ctx)
	require.NoError(t, err)
	require.Len(t, issued.DevCode, 6, "ENV=dev echoes the code")

	res, err := client.Challenge(ctx, issued.DevCode, mfasdk.MethodEmail)
	require.NoError(t, err)
	require.True(t, res.Verified)

	ready, err := client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
