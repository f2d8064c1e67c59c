package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/domain"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store/drivers/sqlite"
	"github.com/aussiebroadwan/bartab-mfa/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

const (
	testUserID = "01J00000000000000000000000"
	testEmail  = "alice@example.com"
	testHexKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

// testStart sits 15s into a 30s TOTP step.
var testStart = time.Date(2026, 3, 1, 12, 0, 15, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []sentMail
	err   error
	delay time.Duration
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (m *fakeMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

var errMailDown = errors.New("smtp: connection refused")

type testEnv struct {
	svc    *MFAService
	store  *sqlite.Store
	clock  *testClock
	mailer *fakeMailer
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestCipher(t *testing.T) *cryptox.SecretCipher {
	t.Helper()

	key, err := cryptox.ParseHexKey(testHexKey)
	require.NoError(t, err)
	c, err := cryptox.NewSecretCipher(key)
	require.NoError(t, err)
	return c
}

func newTestEnv(t *testing.T, env domain.Environment) *testEnv {
	t.Helper()

	st := newTestStore(t)
	clk := &testClock{t: testStart}
	mailer := &fakeMailer{}

	svc := NewMFAService(st, st.EmailOTPCodes(), newTestCipher(t), mailer, Options{
		Issuer:      "BarTab",
		Env:         env,
		MailTimeout: 200 * time.Millisecond,
		Now:         clk.Now,
	})

	return &testEnv{svc: svc, store: st, clock: clk, mailer: mailer}
}

// currentCode returns the TOTP code for secret at the env clock plus offset.
func (e *testEnv) currentCode(t *testing.T, secret string, offset time.Duration) string {
	t.Helper()

	code, err := e.svc.TOTP.CodeFor(secret, e.clock.Now().Add(offset))
	require.NoError(t, err)
	return code
}

// enable runs setup to completion and returns the secret and backup codes.
func (e *testEnv) enable(t *testing.T) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := e.svc.BeginSetup(ctx, testUserID, testEmail)
	require.NoError(t, err)

	codes, err := e.svc.ConfirmSetup(ctx, testUserID, e.currentCode(t, setup.Secret, 0))
	require.NoError(t, err)
	return setup.Secret, codes
}

// wrongCode returns a 6 digit code that differs from every code accepted in
// the current window.
func (e *testEnv) wrongCode(t *testing.T, secret string) string {
	t.Helper()

	accepted := map[string]bool{}
	for _, off := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		accepted[e.currentCode(t, secret, off)] = true
	}
	for _, candidate := range []string{"000000", "111111", "222222", "333333"} {
		if !accepted[candidate] {
			return candidate
		}
	}
	t.Fatal("no wrong code available")
	return ""
}

// interleavingStore runs its hooks just before the matching write, letting a
// test slip another request in between a load and the write that follows it.
// Its transactions are pass-through so the hooks can reuse the database.
type interleavingStore struct {
	store.Store
	beforeUpsert func()
	beforeEnable func()
}

func (s *interleavingStore) MFASettings() store.MFASettings {
	return &interleavingSettings{MFASettings: s.Store.MFASettings(), parent: s}
}

func (s *interleavingStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(passThroughTx{interleavingStore: s})
}

type passThroughTx struct {
	*interleavingStore
}

func (passThroughTx) Commit() error   { return nil }
func (passThroughTx) Rollback() error { return nil }

type interleavingSettings struct {
	store.MFASettings
	parent *interleavingStore
}

func (r *interleavingSettings) UpsertPendingTOTP(ctx context.Context, userID string, secretEncrypted string, now time.Time) error {
	if hook := r.parent.beforeUpsert; hook != nil {
		r.parent.beforeUpsert = nil
		hook()
	}
	return r.MFASettings.UpsertPendingTOTP(ctx, userID, secretEncrypted, now)
}

func (r *interleavingSettings) EnableTOTP(ctx context.Context, userID, secretEncrypted string, backupCodesHashed []string, now time.Time) error {
	if hook := r.parent.beforeEnable; hook != nil {
		r.parent.beforeEnable = nil
		hook()
	}
	return r.MFASettings.EnableTOTP(ctx, userID, secretEncrypted, backupCodesHashed, now)
}

// withStore returns a copy of the env's service backed by st.
func (e *testEnv) withStore(st store.Store) *MFAService {
	svc := *e.svc
	svc.Store = st
	return &svc
}
