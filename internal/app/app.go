// Package app wires configuration, logging, services and the HTTP router
// into a runnable installer daemon.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"monoinstall/internal/config"
	"monoinstall/internal/infrastructure"
	"monoinstall/internal/installer"
	"monoinstall/internal/license"
	custommw "monoinstall/internal/middleware"
	"monoinstall/internal/services"
	"monoinstall/internal/settings"
	handlers "monoinstall/internal/transport/http"
	"monoinstall/internal/updater"
	ws "monoinstall/internal/websocket"
)

const (
	// Version is the daemon version, distinct from the package's nominal
	// version recorded in settings.
	Version = "0.3.1"
	AppName = "monolithos-installerd"
)

// Application is the main application container.
type Application struct {
	Config         *config.Config
	Paths          *config.Paths
	Router         *chi.Mux
	Server         *http.Server
	SettingsStore  *settings.Store
	LicenseService services.LicenseService
	InstallService *services.InstallService
	UpdateChecker  *updater.Checker
	updateLoop     *updater.PeriodicChecker
	Hub            *ws.Hub
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
}

// NewApplication creates a fully wired application instance.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	logger.Info("paths resolved",
		slog.String("config_dir", paths.ConfigDir),
		slog.String("plugins_dir", paths.PluginsDir),
		slog.String("snippets_dir", paths.SnippetsDir),
		slog.String("settings_file", paths.SettingsFile))

	otelProviders, err := infrastructure.InitializeOTel(AppName, Version, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the service graph.
func (a *Application) initializeServices() {
	store := settings.NewStore(a.Paths.SettingsFile, a.Logger)
	a.SettingsStore = store

	verifier := license.NewVerifier(a.Config.License.VerifyURL, a.Config.License.Timeout, a.Logger)
	a.LicenseService = services.NewLicenseService(verifier, store, a.Logger)

	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.Hub = hub

	sequencer := installer.NewSequencer(
		a.Config.Package,
		a.Paths,
		installer.NewOSFileSystem(),
		store,
		a.Logger,
	)
	a.InstallService = services.NewInstallService(sequencer, store, hub, a.Logger)

	a.UpdateChecker = updater.NewChecker(
		a.Config.Package.ManifestURL,
		a.Config.License.Timeout,
		store,
		a.Logger,
	)
	a.updateLoop = updater.NewPeriodicChecker(
		a.UpdateChecker,
		hub,
		a.Config.Package.UpdateCheckInterval,
		a.Logger,
	)
	a.updateLoop.Start()
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)

	// Websocket route stays outside the wrapping middleware so the
	// upgraded connection's ResponseWriter is untouched.
	r.HandleFunc("/ws", a.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(custommw.StructuredLogger(a.Logger))
		r.Use(custommw.Recoverer(a.Logger))
		r.Use(custommw.SecurityHeaders)

		if a.Config.Security.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			r.Group(func(r chi.Router) {
				r.Use(custommw.Timeout(a.Config.Server.ReadTimeout, a.Logger))

				healthHandler := handlers.NewHealthHandler(AppName, Version)
				r.Get("/health", healthHandler.HealthCheck)
				r.Get("/version", healthHandler.Version)

				licenseHandler := handlers.NewLicenseHandler(a.LicenseService, a.Logger)
				r.Mount("/license", licenseHandler.Routes())

				updateHandler := handlers.NewUpdateHandler(a.UpdateChecker, a.Logger)
				r.Mount("/updates", updateHandler.Routes())
			})

			// The install route gets its own, much longer timeout.
			r.Group(func(r chi.Router) {
				r.Use(custommw.Timeout(a.Config.Server.InstallTimeout, a.Logger))

				installHandler := handlers.NewInstallHandler(a.InstallService, a.Logger)
				r.Mount("/install", installHandler.Routes())
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	a.Router = r
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run starts the application and blocks until interrupted.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "server listening",
			slog.String("address", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.updateLoop != nil {
		a.updateLoop.Stop()
	}
	a.Hub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry",
				slog.String("error", err.Error()))
		}
	}

	infrastructure.CloseLogFile()

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// handleWebSocket upgrades a connection and attaches it to the hub.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// The daemon serves localhost UIs only; same-host origins are fine.
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.ErrorContext(r.Context(), "websocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	client := ws.NewClient(a.Hub, conn, a.Logger)
	a.Hub.Register(client)

	a.Logger.InfoContext(r.Context(), "websocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("client_id", client.ID()))

	go client.WritePump()
	go client.ReadPump()
}
