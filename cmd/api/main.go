package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/labsy/internal/auth"
	"github.com/BradenHooton/labsy/internal/background"
	"github.com/BradenHooton/labsy/internal/config"
	"github.com/BradenHooton/labsy/internal/database"
	"github.com/BradenHooton/labsy/internal/handlers"
	middlewareCustom "github.com/BradenHooton/labsy/internal/middleware"
	"github.com/BradenHooton/labsy/internal/repositories"
	"github.com/BradenHooton/labsy/internal/routes"
	"github.com/BradenHooton/labsy/internal/services"
	"github.com/BradenHooton/labsy/internal/storage"
	pkghttp "github.com/BradenHooton/labsy/pkg/http"
	pkglogger "github.com/BradenHooton/labsy/pkg/logger"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := pkglogger.New(os.Stdout, cfg.Server.LogLevel, cfg.Server.LogFormat)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("storage_driver", cfg.Storage.Driver),
	)

	// Error tracking
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Server.Env,
			EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			logger.Error("sentry init failed", slog.Any("error", err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(appCtx, 2*time.Minute)
		err := db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Identity provider signing keys
	jwks, err := auth.NewJWKSKeyfunc(appCtx, cfg.Firebase.JWKSURL, cfg.Firebase.RefreshInterval, logger)
	if err != nil {
		logger.Error("failed to initialize token verifier", slog.Any("error", err))
		os.Exit(1)
	}
	defer jwks.EndBackground()
	verifier := auth.NewFirebaseVerifier(cfg.Firebase.ProjectID, jwks.Keyfunc)

	// Object storage
	driver, err := storage.NewDriver(appCtx, &cfg.Storage)
	if err != nil {
		logger.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	productRepo := repositories.NewProductRepository(db)

	// Initialize services
	auditLogger := pkglogger.NewAuditLogger(logger)
	mailer := newInvitationMailer(appCtx, cfg, logger)

	uploadService := services.NewUploadService(driver, cfg.Uploads, logger)
	authService := services.NewAuthService(verifier, accountRepo, uploadService, logger)
	profileService := services.NewProfileService(accountRepo, uploadService, logger)
	adminService := services.NewAdminService(accountRepo, mailer, auditLogger, logger)
	catalogService := services.NewCatalogService(productRepo, auditLogger, logger)

	// Bootstrap the first super admin invitation if configured
	if cfg.Bootstrap.SuperAdminEmail != "" {
		ctx, cancel := context.WithTimeout(appCtx, 10*time.Second)
		if err := adminService.EnsureSuperAdmin(ctx, cfg.Bootstrap.SuperAdminEmail, cfg.Bootstrap.SuperAdminName); err != nil {
			logger.Error("failed to ensure super admin", slog.Any("error", err))
		}
		cancel()
	}

	// Initialize handlers
	h := routes.Handlers{
		Auth:    handlers.NewAuthHandler(authService),
		User:    handlers.NewUserHandler(profileService, cfg.Uploads.MaxPictureBytes),
		Admin:   handlers.NewAdminHandler(adminService),
		Catalog: handlers.NewCatalogHandler(catalogService),
		Upload:  handlers.NewUploadHandler(uploadService, cfg.Uploads.MaxFileBytes),
		Health:  handlers.NewHealthHandler(db),
	}

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	guards := routes.Guards{
		Verifier: verifier,
		Accounts: accountRepo,
		RateLimit: middlewareCustom.RateLimitConfig{
			RequestsPerMinute: cfg.Server.AuthRateLimitPerMinute,
			IPConfig:          ipConfig,
		},
		Logger: logger,
	}

	// Locally stored uploads are served by the API itself
	var static http.Handler
	if local, ok := driver.(*storage.LocalDriver); ok {
		static = local.Handler()
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middlewareCustom.ErrorReporting())
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	routes.RegisterRoutes(router, h, guards, static)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start catalog purge task
	purger := background.NewCatalogPurger(catalogService, logger, cfg.Catalog.PurgeAfter, cfg.Catalog.PurgeInterval)
	go purger.Start(appCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	purger.Stop()
	appCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// newInvitationMailer sends invitations through SES when email is enabled and logs them otherwise.
func newInvitationMailer(ctx context.Context, cfg *config.Config, logger *slog.Logger) services.InvitationMailer {
	if !cfg.Email.Enabled {
		logger.Info("email disabled, invitations will be logged only")
		return services.NewLogInvitationMailer(cfg.Email.AppURL, logger)
	}

	mailer, err := services.NewSESInvitationMailer(ctx, cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.AppURL, logger)
	if err != nil {
		logger.Error("failed to initialize email service, falling back to log mailer", slog.Any("error", err))
		return services.NewLogInvitationMailer(cfg.Email.AppURL, logger)
	}
	return mailer
}
