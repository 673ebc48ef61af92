// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/rollbook/internal/api"
	"github.com/starford/rollbook/internal/export"
	"github.com/starford/rollbook/internal/filter"
	"github.com/starford/rollbook/internal/form"
	"github.com/starford/rollbook/internal/i18n"
	"github.com/starford/rollbook/internal/mcpserver"
	"github.com/starford/rollbook/internal/recordstore"
	"github.com/starford/rollbook/internal/session"
	"github.com/starford/rollbook/internal/storage"
	"github.com/starford/rollbook/internal/web"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// logger builds the structured JSON logger and installs it as default.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openStore builds the configured provider and wraps it in a record store.
// The returned close func is never nil.
func (a *application) openStore(ctx context.Context, logger *slog.Logger) (*recordstore.Store, func(), error) {
	p, err := openProvider(ctx, a.config.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	closeFn := func() {}
	if p != nil {
		closeFn = func() {
			if err := p.Close(); err != nil {
				logger.Warn("store close failed", slog.String("error", err.Error()))
			}
		}
	}
	return recordstore.New(p, a.config.Store.Timeout, logger), closeFn, nil
}

// openProvider returns nil for the "none" kind.
func openProvider(ctx context.Context, cfg StoreConfig) (storage.Provider, error) {
	switch cfg.Kind {
	case storage.KindNone, "":
		return nil, nil
	case storage.KindCSV:
		return storage.NewCSVFile(cfg.CSV.Path)
	case storage.KindSQLite:
		return storage.OpenSQLite(cfg.SQLite.Path)
	case storage.KindSheets:
		creds, err := sheetsCredentials(cfg.Sheets)
		if err != nil {
			return nil, err
		}
		return storage.NewSheets(ctx, storage.SheetsOptions{
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			Range:           cfg.Sheets.Range,
			CredentialsJSON: creds,
		})
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

func sheetsCredentials(cfg SheetsConfig) ([]byte, error) {
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read sheets credentials: %w", err)
		}
		return data, nil
	}
	data := os.Getenv(cfg.CredentialsEnv)
	if data == "" {
		return nil, fmt.Errorf("sheets credentials: %s is not set", cfg.CredentialsEnv)
	}
	return []byte(data), nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_kind", cfg.Store.Kind),
		slog.Duration("store_timeout", cfg.Store.Timeout),
		slog.Duration("session_idle_timeout", cfg.Session.IdleTimeout),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, closeStore, err := app.openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	lang, _ := i18n.Parse(cfg.App.Language)
	forms := form.NewController(logger)
	sessions := session.NewManager(store, cfg.Session.IdleTimeout, logger)

	webRouter := web.NewRouter(web.Options{
		Sessions:      sessions,
		Forms:         forms,
		Logger:        logger,
		Language:      lang,
		CookieName:    cfg.Session.CookieName,
		CSRFKey:       []byte(cfg.Session.CSRFKey),
		SecureCookies: cfg.App.HTTP.SecureCookies,
	})
	apiRouter := api.NewRouter(session.NewPinned(store), forms, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	// Build chi router.
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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","store":%q,"sessions":%d}`, cfg.Store.Kind, sessions.Len())
	})

	r.Mount("/api", apiRouter)
	r.Mount("/", webRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

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
		if n := sessions.Len(); n > 0 {
			logger.Info("Dropping open sessions", slog.Int("sessions", n))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	store, closeStore, err := app.openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	logger.Info("MCP server starting", slog.String("store_kind", app.config.Store.Kind))
	srv := mcpserver.New(session.NewPinned(store), form.NewController(logger))
	return srv.ServeStdio()
}

// Export loads the store once and writes the records matching query as CSV
// to w. query uses the same parameters as the records page.
func Export(ctx context.Context, w io.Writer, query url.Values, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	store, closeStore, err := app.openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	c, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	crit, err := filter.Parse(query, filter.Defaults(c.Records))
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	matched := filter.Apply(c.Records, crit)
	body, err := export.ToCSV(matched)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}
	logger.Info("Exported records", slog.Int("matched", len(matched)), slog.Int("total", c.Len()))
	return nil
}
