package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/service"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store"
	"github.com/aussiebroadwan/bartab-mfa/pkg/httpx"
	"github.com/aussiebroadwan/bartab-mfa/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-mfa/pkg/slogx"

	_ "github.com/aussiebroadwan/bartab-mfa/api/mfa" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store      store.Store
	MFAService *service.MFAService

	// RequiredScopes, when set, must intersect the caller's token scopes.
	RequiredScopes []string

	// Metrics serves /metrics when set.
	Metrics http.Handler

	// CodeStorePing adds the email OTP code store to /readyz when set.
	CodeStorePing func(context.Context) error

	QRSize int
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerMFA()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			BarTab MFA Service API
//	@version		0.1.0
//	@description	Multi-factor authentication for BarTab accounts: TOTP enrolment, backup codes, email one-time codes and login challenges.
//	@description
//	@description				Every /v1/mfa endpoint requires an access token issued by the BarTab auth service.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/bartab
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8081
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps h with authentication, the optional scope check and a per
// user rate limit, in that order.
func (r *Router) secured(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyScope(r.RequiredScopes...),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{
		MFAService: r.MFAService,
		QRSize:     r.QRSize,
	}

	// Reads - lenient
	r.Mux.Handle("GET /v1/mfa/status", r.secured(h.HandleStatus, httpx.LenientLimit))

	// Setup and email OTP create state or send mail - moderate
	r.Mux.Handle("POST /v1/mfa/totp/setup", r.secured(h.HandleSetup, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/mfa/email-otp", r.secured(h.HandleEmailOTP, httpx.ModerateLimit))

	// Code submission - strict, in front of the per-user lockout
	r.Mux.Handle("POST /v1/mfa/totp/verify", r.secured(h.HandleVerify, httpx.StrictLimit))
	r.Mux.Handle("POST /v1/mfa/challenge", r.secured(h.HandleChallenge, httpx.StrictLimit))
	r.Mux.Handle("POST /v1/mfa/disable", r.secured(h.HandleDisable, httpx.StrictLimit))
	r.Mux.Handle("POST /v1/mfa/backup-codes", r.secured(h.HandleRegenerateBackupCodes, httpx.StrictLimit))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys, r.CodeStorePing),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics",
			httpx.Chain(r.Metrics,
				httpx.RateLimitByIP(httpx.LenientLimit),
			),
		)
	}
}
