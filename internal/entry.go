// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/webnote/internal/api"
	"github.com/starford/webnote/internal/apperr"
	"github.com/starford/webnote/internal/assistant"
	"github.com/starford/webnote/internal/i18n"
	"github.com/starford/webnote/internal/notestore"
	"github.com/starford/webnote/internal/page"
	"github.com/starford/webnote/internal/session"
	"github.com/starford/webnote/internal/sse"
	"github.com/starford/webnote/internal/storage"
	"github.com/starford/webnote/internal/tabs"
)

// NewLogger builds the JSON logger used by every command.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// OpenStore opens the configured storage backend and the note store over
// it. The caller closes the returned provider.
func OpenStore(cfg *Config, logger *slog.Logger) (*notestore.Store, storage.Provider, error) {
	kv, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	return notestore.New(kv, notestore.WithLogger(logger)), kv, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := NewLogger(cfg, app.logOutput)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("locale", cfg.I18n.Locale),
		slog.String("log_level", cfg.App.LogLevel.String()))

	notes, kv, err := OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer kv.Close()

	loc, err := i18n.New(cfg.I18n.Locale)
	if err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	if err := loc.Load(); err != nil {
		// Fallback strings keep the service usable.
		logger.Warn("Locale catalogue not loaded", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(0)
	defer broker.Close()

	g, gCtx := errgroup.WithContext(ctx)

	// Tab navigation is carried out by the extension: the bridge turns it
	// into a tab.navigate event.
	bridge := tabs.NewBridge(func(_ context.Context, tabID int, url string) error {
		if broker.ClientCount() == 0 {
			return fmt.Errorf("%w: no extension connected", apperr.ErrTabUnavailable)
		}
		broker.PublishNavigate(tabID, url)
		return nil
	})

	sess := session.New(notes, nil,
		session.WithLogger(logger),
		session.WithContext(gCtx),
		session.WithOnChange(func(st session.State) { broker.PublishSession(st) }),
	)
	tracker := tabs.NewTracker(bridge, sess.OnURLChange, logger)
	sess.SetNavigator(tracker)
	if err := tracker.Start(gCtx); err != nil {
		return fmt.Errorf("start tab tracker: %w", err)
	}
	defer tracker.Stop()

	pages := page.NewLoader(cfg.Page.Loader(), app.httpClient, logger)

	handler := api.NewHandler(api.Deps{
		Notes:     notes,
		Session:   sess,
		Tabs:      bridge,
		Pages:     pages,
		Assistant: assistant.New(notes, nil, loc, logger),
		Localizer: loc,
		Events:    broker,
	})
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := notes.ListAll(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"store unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Watch the JSON document for edits made outside this process.
	if f, ok := kv.(*storage.File); ok {
		g.Go(func() error {
			err := storage.Watch(gCtx, f, logger, func() {
				sess.Reload(gCtx)
				broker.NotesChanged("")
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Storage watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	sess.Wait()

	logger.Info("Server stopped successfully")
	return nil
}
