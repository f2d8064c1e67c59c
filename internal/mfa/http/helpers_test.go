package http_test

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/domain"
	mfahttp "github.com/aussiebroadwan/bartab-mfa/internal/mfa/http"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/service"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store/drivers/sqlite"
	"github.com/aussiebroadwan/bartab-mfa/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-mfa/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-mfa/pkg/mailx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer = "bartab-auth"
	testHexKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testServer struct {
	router *mfahttp.Router
	svc    *service.MFAService
	clock  *clock
	priv   ed25519.PrivateKey
}

func newTestServer(t *testing.T, env domain.Environment) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	key, err := cryptox.ParseHexKey(testHexKey)
	require.NoError(t, err)
	cipher, err := cryptox.NewSecretCipher(key)
	require.NoError(t, err)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddJWK(jwtx.NewEd25519JWK("test", pub)))

	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 15, 0, time.UTC)}
	reg := prometheus.NewRegistry()

	logger := slog.New(slog.DiscardHandler)
	svc := service.NewMFAService(st, st.EmailOTPCodes(), cipher, mailx.LogSender{}, service.Options{
		Issuer:  "BarTab",
		Env:     env,
		Metrics: service.NewMetrics(reg),
		Now:     clk.Now,
	})

	router := mfahttp.NewRouter(keys, jwtx.NewKeySetVerifier(keys, jwtx.VerifyOptions{Issuer: testIssuer}), "test", st, logger)
	router.MFAService = svc
	router.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	router.ApplyRoutes()

	return &testServer{router: router, svc: svc, clock: clk, priv: priv}
}

func (s *testServer) token(t *testing.T, userID, email string) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA,
		jwtx.NewAccessClaims(userID, email, testIssuer, []string{"profile:read"}, 5*time.Minute, time.Now()))
	tok.Header["kid"] = "test"
	signed, err := tok.SignedString(s.priv)
	require.NoError(t, err)
	return signed
}

// do sends a request as userID and decodes the JSON response into out when
// out is non-nil.
func (s *testServer) do(t *testing.T, userID, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:4000"
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(t, userID, userID+"@example.com"))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func (s *testServer) code(t *testing.T, secret string) string {
	t.Helper()

	code, err := s.svc.TOTP.CodeFor(secret, s.clock.Now())
	require.NoError(t, err)
	return code
}
