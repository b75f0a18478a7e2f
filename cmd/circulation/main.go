// cmd/circulation/main.go
package main

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"libracirc/internal/catalog"
	"libracirc/internal/circulation"
	"libracirc/internal/clients"
	"libracirc/internal/config"
	"libracirc/internal/eventstore"
	"libracirc/internal/httpx"
	"libracirc/internal/membership"
	"libracirc/internal/notify"
	"libracirc/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("circulation service stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := telemetry.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, "libracirc-circulation", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	shutdownMetrics, err := telemetry.SetupMetrics(ctx, "libracirc-circulation", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(flushCtx); err != nil {
			logger.Warn("failed to flush metrics", "error", err)
		}
	}()

	deps, cleanup, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	svc, err := circulation.NewObservedService(
		circulation.NewService(deps.books, deps.members, deps.notifier),
		logger,
	)
	if err != nil {
		return fmt.Errorf("instrument service: %w", err)
	}

	limiter := httpx.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(svc, limiter, logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting circulation service", "port", cfg.Port, "directory", cfg.DirectoryBackend)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down circulation service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newRouter(svc circulation.Service, limiter *httpx.RateLimiter, logger *slog.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(httpx.AccessLog(logger))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Mount("/", circulation.NewHandler(svc).Routes())
	})

	return router
}

type dependencies struct {
	books    circulation.BookDirectory
	members  circulation.MemberValidator
	notifier circulation.Notifier
}

func buildDependencies(ctx context.Context, cfg config.Config, logger *slog.Logger) (dependencies, func(), error) {
	var (
		deps    dependencies
		closers []func()
		db      *sqlx.DB
		rdb     *redis.Client
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	needsPostgres := cfg.DirectoryBackend == config.BackendPostgres
	needsRedis := cfg.DirectoryBackend == config.BackendRedis || cfg.NotifyChannel != ""

	if needsPostgres {
		var err error
		db, err = sqlx.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return deps, cleanup, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, func() { db.Close() })

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			cleanup()
			return deps, func() {}, fmt.Errorf("cannot ping database: %w", err)
		}
	}

	if needsRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		closers = append(closers, func() { rdb.Close() })
	}

	switch cfg.DirectoryBackend {
	case config.BackendPostgres:
		dir := catalog.NewPostgresDirectory(db, eventstore.NewEventStore())
		if err := dir.Migrate(ctx); err != nil {
			cleanup()
			return deps, func() {}, err
		}
		deps.books = dir
	case config.BackendRedis:
		deps.books = catalog.NewRedisDirectory(rdb)
	default:
		deps.books = catalog.NewMemoryDirectory()
	}

	switch {
	case cfg.MembershipServiceURL != "":
		deps.members = clients.NewMembershipClient(cfg.MembershipServiceURL)
	case db != nil && cfg.ValidMemberIDs == "":
		if _, err := db.ExecContext(ctx, membership.Schema); err != nil {
			cleanup()
			return deps, func() {}, fmt.Errorf("migrate members: %w", err)
		}
		deps.members = membership.NewPostgresValidator(db)
	default:
		v, err := membership.ParseStaticValidator(cfg.ValidMemberIDs)
		if err != nil {
			cleanup()
			return deps, func() {}, err
		}
		deps.members = v
	}

	notifiers := notify.Fanout{notify.NewLogNotifier(logger)}
	if cfg.NotifyChannel != "" {
		notifiers = append(notifiers, notify.NewRedisNotifier(rdb, cfg.NotifyChannel, logger))
	}
	deps.notifier = notifiers

	return deps, cleanup, nil
}
