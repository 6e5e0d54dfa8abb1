package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/graph"
	httpapi "github.com/ehsh01/it-ops-dashboard/internal/auth/http"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/mail"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/service"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store/drivers/postgres"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store/drivers/redis"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store/drivers/sqlite"
	"github.com/ehsh01/it-ops-dashboard/pkg/cryptox"
	"github.com/ehsh01/it-ops-dashboard/pkg/httpx"
	"github.com/ehsh01/it-ops-dashboard/pkg/jwtx"
	"github.com/ehsh01/it-ops-dashboard/pkg/slogx"
	goredis "github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"

	stateIssuer = "it-ops-dashboard"

	// devSessionSecret signs OAuth state in dev when SESSION_SECRET is unset.
	devSessionSecret = "dev-only-session-secret-change-me"
)

// Application encapsulates the dashboard API with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	sessions store.Sessions
	redis    *goredis.Client // nil unless SESSION_STORE=redis

	// Services
	sessionService      *service.SessionService
	userService         *service.UserService
	invitationService   *service.InvitationService
	microsoftService    *service.MicrosoftService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService
	mailer              *mail.ResendSender
	stateSigner         *jwtx.StateSigner

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "it-ops-dashboard",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates a new Application instance with all dependencies initialized
func New(ctx context.Context, cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg:    cfg,
		logger: NewLogger(cfg),
	}

	db, err := OpenStore(ctx, app.cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	if err := app.initSessions(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}

	if err := app.seedAdmin(ctx); err != nil {
		app.closeStores()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("dashboard api starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"database", app.cfg.DatabaseDriver,
		"sessions", app.cfg.SessionStore,
		"microsoft_configured", app.microsoftService.IsConfigured(),
		"email_configured", app.mailer.IsConfigured(),
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down dashboard api...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("dashboard api stopped")
	return nil
}

func (app *Application) closeStores() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	_ = app.db.Close()
}

// OpenStore opens the configured SQL driver and applies migrations.
func OpenStore(ctx context.Context, cfg Config, logger *slog.Logger) (store.Store, error) {
	var (
		db  store.Store
		err error
	)

	switch cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqlite.DSN(cfg.DatabaseFile))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	logger.Info("database migrations applied successfully", "driver", cfg.DatabaseDriver)
	return db, nil
}

// initSessions picks where login sessions live.
func (app *Application) initSessions(ctx context.Context) error {
	if app.cfg.SessionStore != SessionStoreRedis {
		app.sessions = app.db.Sessions()
		return nil
	}

	client, err := redis.NewClient(ctx, app.cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.redis = client
	app.sessions = redis.NewSessions(client)

	app.logger.Info("session store: redis", "addr", app.cfg.Redis.Addr)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	secret := app.cfg.SessionSecret
	if secret == "" {
		app.logger.Warn("SESSION_SECRET not set, using an insecure development secret")
		secret = devSessionSecret
	}

	signer, err := jwtx.NewStateSigner(secret, stateIssuer, jwtx.DefaultStateTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize state signer: %w", err)
	}
	app.stateSigner = signer

	sealKey := app.cfg.TokenEncryptionKey
	if sealKey == "" {
		sealKey = secret
	}
	sealer, err := cryptox.NewSealer(sealKey)
	if err != nil {
		return fmt.Errorf("failed to initialize token sealer: %w", err)
	}

	app.mailer = mail.NewResendSender(mail.Config{
		APIKey: app.cfg.ResendAPIKey,
		From:   app.cfg.EmailFrom,
		AppURL: app.cfg.AppURL,
	})

	app.sessionService = &service.SessionService{
		Store:    app.db,
		Sessions: app.sessions,
		TTL:      app.cfg.SessionTTL,
	}
	app.userService = &service.UserService{
		Store:    app.db,
		Sessions: app.sessions,
	}
	app.invitationService = &service.InvitationService{
		Store:  app.db,
		Mailer: app.mailer,
	}
	app.microsoftService = service.NewMicrosoftService(app.cfg.Microsoft, app.db, sealer)
	app.bootstrapService = &service.BootstrapService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.sessions,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

// seedAdmin creates the first admin from BOOTSTRAP_ADMIN_* on an empty
// database. A populated database is left alone.
func (app *Application) seedAdmin(ctx context.Context) error {
	if app.cfg.BootstrapAdminUsername == "" {
		return nil
	}

	admin, err := app.bootstrapService.Seed(ctx,
		app.cfg.BootstrapAdminUsername,
		app.cfg.BootstrapAdminPassword,
		"",
	)
	switch {
	case err == nil:
		app.logger.Info("bootstrap admin created", "user_id", admin.ID, "username", admin.Username)
		return nil
	case errors.Is(err, service.ErrBootstrapAlready):
		return nil
	default:
		return fmt.Errorf("failed to seed bootstrap admin: %w", err)
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	httpx.TrustProxyHeaders = app.cfg.TrustProxyHeaders

	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		httpx.CookieConfig{Secure: app.cfg.CookieSecure},
		app.logger,
	)

	// Wire services to router
	router.SessionService = app.sessionService
	router.UserService = app.userService
	router.InvitationService = app.invitationService
	router.MicrosoftService = app.microsoftService
	router.Mailer = app.mailer
	router.Graph = &graph.Client{}
	router.StateSigner = app.stateSigner
	router.AppURL = app.cfg.AppURL
	router.MicrosoftRedirectURL = app.cfg.MicrosoftRedirectURL
	if pinger, ok := app.sessions.(httpapi.Pinger); ok && app.redis != nil {
		router.SessionStore = pinger
	}
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Handler exposes the fully wired router, for in-process tests.
func (app *Application) Handler() http.Handler {
	return app.router
}
