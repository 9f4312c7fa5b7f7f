package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/peopleadmin/internal/config"
	"github.com/simp-lee/peopleadmin/internal/domain"
	"github.com/simp-lee/peopleadmin/internal/hydra"
	"github.com/simp-lee/peopleadmin/internal/middleware"
	"github.com/simp-lee/peopleadmin/internal/module/people"
	"github.com/simp-lee/peopleadmin/internal/module/peopleui"
	"github.com/simp-lee/peopleadmin/internal/session"
	"github.com/simp-lee/peopleadmin/web"
)

const metricsNamespace = "peopleadmin"

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine *gin.Engine
	db     *gorm.DB
	logger *logger.Logger
	cfg    *config.Config
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler, writeTimeout time.Duration) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New creates and wires a fully configured App from the given Config.
//
// It sets up logging, the optional people API (database, repository,
// service, handler), the Hydra client the pages use, sessions, metrics,
// middleware, template rendering, and routes.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	success := false

	// 1. Setup logger.
	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior and permissive CORS")
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	metrics := middleware.NewMetrics(metricsNamespace)
	var modules []Module

	// 2. The bundled people API: database, AutoMigrate outside release, DI.
	var db *gorm.DB
	if cfg.API.Serve {
		db, err = config.SetupDatabase(&cfg.Database, log.Logger)
		if err != nil {
			return nil, fmt.Errorf("setup database: %w", err)
		}
		defer func() {
			if success {
				return
			}
			if err := config.Close(db); err != nil {
				slog.Error("database close error", slog.Any("error", err))
			}
		}()

		if cfg.Server.Mode != gin.ReleaseMode {
			if err := db.AutoMigrate(&domain.Person{}); err != nil {
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
			log.Info("auto migration completed")
		}

		repo := people.NewPersonRepository(db)
		svc := people.NewPersonService(repo)
		handler := people.NewPersonHandler(svc, "/api/people")
		modules = append(modules, people.NewModule(handler))
	}

	// 3. Hydra client used by the pages, instrumented for metrics.
	pageHandler, err := newPageHandler(cfg, log.Logger, metrics)
	if err != nil {
		return nil, err
	}
	modules = append(modules, peopleui.NewModule(pageHandler))

	sessions := session.NewStore(session.Options{
		CookieName: cfg.Session.CookieName,
		TTL:        config.Duration(cfg.Session.TTL, 30*time.Minute),
		Secure:     cfg.Server.Mode == gin.ReleaseMode,
	})
	metrics.Gauge(metricsNamespace, "sessions_active", "Number of live browser sessions.", func() float64 {
		return float64(sessions.Len())
	})

	// 4. Create Gin engine with custom middleware (not gin.Default()).
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	// In release mode, when no allowlist is configured, default to deny cross-origin requests.
	corsConfig := resolveCORSConfig(cfg.Server.Mode, &cfg.Server.CORS)

	chain := []gin.HandlerFunc{
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: false,
		}),
		middleware.LoggerWithConfig(log.Logger, middleware.LoggerConfig{
			SkipPrefixes: []string{"/static/", "/health", "/metrics"},
		}),
		metrics.Middleware(),
		middleware.CORSWithConfig(corsConfig),
	}
	if cfg.Server.RateLimit.Enabled {
		chain = append(chain, middleware.RateLimit(middleware.RateLimitConfig{
			RPS:   cfg.Server.RateLimit.RPS,
			Burst: cfg.Server.RateLimit.Burst,
		}))
	}
	engine.Use(chain...)

	// 5. Determine filesystem mode and set up template renderer.
	var fsys fs.FS
	if cfg.Server.Mode == gin.DebugMode {
		fsys, err = resolveDebugWebFS()
		if err != nil {
			return nil, fmt.Errorf("resolve debug template fs: %w", err)
		}
	} else {
		fsys = web.EmbeddedFS
	}

	renderer, err := NewTemplateRenderer(fsys, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("setup template renderer: %w", err)
	}
	engine.HTMLRender = renderer

	// 6. Resolve CSRF secret.
	csrfSecret := cfg.Server.CSRFSecret
	if isPlaceholderCSRFSecret(csrfSecret) {
		if cfg.Server.Mode == gin.ReleaseMode {
			return nil, errors.New("csrf_secret must be a non-placeholder value in release mode")
		}

		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate csrf secret: %w", err)
		}
		csrfSecret = hex.EncodeToString(b)
		log.Warn("no csrf_secret configured, using random secret in non-release mode (will change on restart)")
	} else if cfg.Server.Mode == gin.ReleaseMode {
		if len(strings.TrimSpace(csrfSecret)) < 32 {
			return nil, errors.New("csrf_secret must be at least 32 characters in release mode")
		}
		if config.CountSecretClasses(csrfSecret) < 3 {
			return nil, errors.New("csrf_secret must include at least 3 character classes (lowercase, uppercase, digit, symbol) in release mode")
		}
	}

	// 7. Register all routes.
	if err := RegisterRoutes(engine, &RouteDeps{
		Modules:    modules,
		DB:         db,
		Mode:       cfg.Server.Mode,
		CSRFSecret: csrfSecret,
		HomePath:   cfg.UI.ListPath,
		Sessions:   sessions,
		Metrics:    metrics,
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	success = true
	return &App{
		engine: engine,
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

// newPageHandler builds the people pages on top of a Hydra client for
// cfg.API.BaseURL.
func newPageHandler(cfg *config.Config, log *slog.Logger, metrics *middleware.Metrics) (*peopleui.PageHandler, error) {
	client, err := hydra.NewClient(cfg.API.BaseURL,
		hydra.WithHTTPClient(&http.Client{
			Transport: metrics.InstrumentTransport(nil),
			Timeout:   config.Duration(cfg.API.Timeout, 10*time.Second),
		}),
		hydra.WithLogger(log),
		hydra.WithRequestID(middleware.RequestIDFromContext),
	)
	if err != nil {
		return nil, fmt.Errorf("setup api client: %w", err)
	}

	return peopleui.NewPageHandler(hydra.NewResource[domain.Person](client, "people"), peopleui.Options{
		ListPath:        cfg.UI.ListPath,
		PageSizes:       cfg.UI.PageSizes,
		DefaultPageSize: cfg.UI.DefaultPageSize,
		DefaultSort:     domain.ParseSortSpec(cfg.UI.DefaultSort),
		Logger:          log,
	}), nil
}

func isPlaceholderCSRFSecret(secret string) bool {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return true
	}

	switch strings.ToLower(trimmed) {
	case "change-me-to-a-random-secret", "change-me-in-env":
		return true
	default:
		return false
	}
}

func resolveCORSConfig(mode string, cfg *config.CORSConfig) middleware.CORSConfig {
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowCredentials = cfg.AllowCredentials
	if cfg.MaxAge != "" {
		corsConfig.MaxAge = int(config.Duration(cfg.MaxAge, 24*time.Hour).Seconds())
	}

	if len(cfg.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowOrigins
		return corsConfig
	}

	if mode == gin.ReleaseMode {
		corsConfig.AllowOrigins = []string{}
	}

	return corsConfig
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

func resolveDebugWebFS() (fs.FS, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		webDir := filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", "web"))
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	exePath, err := os.Executable()
	if err == nil {
		webDir := filepath.Join(filepath.Dir(exePath), "web")
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	return nil, errors.New("debug web directory not found")
}

// Handler returns the configured gin engine.
func (a *App) Handler() http.Handler {
	return a.engine
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
// It performs graceful shutdown with a 5-second timeout and closes the
// database connection.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine, config.Duration(a.cfg.Server.Timeout, 60*time.Second))

	// Listen for SIGINT / SIGTERM.
	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr), slog.String("api", a.cfg.API.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	if a.db != nil {
		if err := config.Close(a.db); err != nil {
			log.Error("database close error", slog.Any("error", err))
		} else {
			log.Info("database connection closed")
		}
	}

	log.Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}

	return runErr
}
