package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/domain"
	httpapi "github.com/aussiebroadwan/bartab-mfa/internal/mfa/http"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/service"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store/drivers/redis"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store/drivers/sqlite"
	"github.com/aussiebroadwan/bartab-mfa/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-mfa/pkg/mailx"
	"github.com/aussiebroadwan/bartab-mfa/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the MFA service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	codes    store.EmailOTPCodes
	redis    *goredis.Client // nil unless MFA_CODE_STORE=redis
	cipher   *cryptox.SecretCipher
	identity *IdentityKeys
	mailer   mailx.Sender
	registry *prometheus.Registry

	// Services
	mfaService          *service.MFAService
	housekeepingService *service.HousekeepingService

	// Background work (JWKS refresh) is cancelled on shutdown.
	cancelBackground context.CancelFunc

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "mfa-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cipher, err := InitSecretCipher(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret cipher: %w", err)
	}
	app.cipher = cipher

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := app.initCodeStore(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	identity, err := InitIdentityKeys(ctx, cfg, app.logger)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to initialize identity keys: %w", err)
	}
	app.identity = identity

	if err := app.initMailer(); err != nil {
		_ = app.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	bgCtx, cancel := context.WithCancel(context.Background())
	app.cancelBackground = cancel
	if app.identity.Fetcher != nil {
		go app.identity.Fetcher.Run(bgCtx)
	}

	app.logger.Info("mfa service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down mfa service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.Close(); err != nil {
		return err
	}

	app.logger.Info("mfa service stopped")
	return nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler {
	return app.router
}

// initDatabase opens the SQLite store and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initCodeStore selects where email OTP codes are kept.
func (app *Application) initCodeStore(ctx context.Context) error {
	switch app.cfg.CodeStore {
	case "", "sqlite":
		app.codes = app.db.EmailOTPCodes()
	case "redis":
		client, err := redis.Connect(ctx, app.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = client
		app.codes = redis.NewEmailOTPCodes(client)
	default:
		return fmt.Errorf("unknown MFA_CODE_STORE %q (want sqlite or redis)", app.cfg.CodeStore)
	}

	app.logger.Info("email OTP code store ready", "store", app.cfg.CodeStore)
	return nil
}

// initMailer uses SMTP when a host is configured and logs mail otherwise.
func (app *Application) initMailer() error {
	if app.cfg.SMTPHost == "" {
		app.mailer = mailx.LogSender{}
		app.logger.Warn("SMTP_HOST not set, email OTP codes will be logged instead of sent")
		return nil
	}

	sender, err := mailx.NewSMTPSender(mailx.SMTPConfig{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.SMTPFrom,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}
	app.mailer = sender
	return nil
}

// initServices initializes the business logic services.
func (app *Application) initServices() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app.mfaService = service.NewMFAService(app.db, app.codes, app.cipher, app.mailer, service.Options{
		Issuer:      app.cfg.Issuer,
		Env:         domain.ParseEnvironment(app.cfg.Env),
		MailTimeout: app.cfg.MailTimeout,
		Metrics:     service.NewMetrics(app.registry),
	})

	app.housekeepingService = service.NewHousekeepingService(
		app.codes,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.identity.Keys,
		app.identity.Verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.MFAService = app.mfaService
	router.RequiredScopes = app.cfg.RequiredScopes
	router.QRSize = app.cfg.QRSize
	router.Metrics = promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{})
	if app.redis != nil {
		router.CodeStorePing = func(ctx context.Context) error {
			return app.redis.Ping(ctx).Err()
		}
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Close stops background key refresh and closes the stores. Shutdown calls
// it; callers that only use Handler call it directly.
func (app *Application) Close() error {
	if app.cancelBackground != nil {
		app.cancelBackground()
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}
