package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/Simplici0/listprice/internal/calculator"
	"github.com/Simplici0/listprice/internal/config"
	"github.com/Simplici0/listprice/internal/db"
	"github.com/Simplici0/listprice/internal/logging"
	"github.com/Simplici0/listprice/internal/metrics"
	"github.com/Simplici0/listprice/internal/migrations"
	"github.com/Simplici0/listprice/internal/seed"
	"github.com/Simplici0/listprice/internal/setup"
	"github.com/Simplici0/listprice/internal/storage"
)

const serviceName = "listprice"

type server struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	store    *setup.Store
	validate *validator.Validate
	now      func() time.Time

	// mu serializes every access to session.
	mu      sync.Mutex
	session *calculator.Session
}

func newServer(logger *slog.Logger, m *metrics.Metrics, store *setup.Store) *server {
	return &server{
		logger:   logger,
		metrics:  m,
		store:    store,
		validate: newValidator(),
		now:      time.Now,
		session:  calculator.NewSession(),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		ServiceName: serviceName,
		Environment: cfg.Env,
		AddSource:   cfg.IsDev(),
	})
	slog.SetDefault(logger)

	database, backend := openBackend(logger, cfg)
	if database != nil {
		defer database.Close()
	}

	m := metrics.New()
	store := setup.NewStore(backend, setup.WithLogger(logger))
	srv := newServer(logger, m, store)

	ctx := context.Background()
	support := store.Probe(ctx)
	srv.recordStorageSupport(support)
	switch support {
	case setup.Full:
		logger.Warn("setup storage is full; delete saved setups to free room")
	case setup.Unavailable:
		logger.Warn("setup storage is unavailable; saving setups is disabled")
	}

	if cfg.SeedExamples && support == setup.Supported {
		stats, err := seed.Run(ctx, store)
		if err != nil {
			logger.Error("failed to seed example setups", "error", err)
		} else {
			logger.Info("seeded example setups", "inserts", stats.Inserts, "skipped", stats.Skipped)
		}
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", httpServer.Addr, "storage", support.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}

// openBackend opens the SQLite setup store. A database that cannot be opened
// or migrated leaves the calculator usable with saving disabled.
func openBackend(logger *slog.Logger, cfg config.Config) (*sql.DB, setup.Backend) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		return nil, setup.UnavailableBackend{}
	}

	if err := migrations.Up(database); err != nil {
		logger.Error("failed to run database migrations", "error", err)
		_ = database.Close()
		return nil, setup.UnavailableBackend{}
	}

	return database, storage.NewSQLiteBackend(database, cfg.StorageQuotaBytes)
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(s.recordMetrics)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/price", s.handlePrice)
		r.Post("/quick-estimate", s.handleQuickEstimate)

		r.Get("/session", s.handleSessionGet)
		r.Put("/session", s.handleSessionUpdate)
		r.Post("/session/clear", s.handleSessionClear)
		r.Post("/session/save", s.handleSessionSave)
		r.Post("/session/load/{key}", s.handleSessionLoad)
		r.Post("/session/append/{key}", s.handleSessionAppend)

		r.Get("/setups", s.handleSetupsList)
		r.Get("/setups/{key}", s.handleSetupGet)
		r.Delete("/setups/{key}", s.handleSetupDelete)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.store.Status()
	s.recordStorageSupport(status)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": status.String(),
	})
}

var storageStates = []string{setup.Supported.String(), setup.Full.String(), setup.Unavailable.String()}

func (s *server) recordStorageSupport(status setup.Support) {
	s.metrics.SetStorageSupport(status.String(), storageStates...)
}
