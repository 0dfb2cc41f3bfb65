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
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/lexweave/depoflow/internal/adapter/gcs"
	dfhttp "github.com/lexweave/depoflow/internal/adapter/http"
	dfnats "github.com/lexweave/depoflow/internal/adapter/nats"
	"github.com/lexweave/depoflow/internal/adapter/otel"
	"github.com/lexweave/depoflow/internal/adapter/postgres"
	"github.com/lexweave/depoflow/internal/adapter/ristretto"
	"github.com/lexweave/depoflow/internal/config"
	"github.com/lexweave/depoflow/internal/logger"
	"github.com/lexweave/depoflow/internal/resilience"
	"github.com/lexweave/depoflow/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Otel.Enabled {
		shutdown, err := otel.Setup(ctx, cfg.Logging.Service, cfg.Otel.Endpoint)
		if err != nil {
			return fmt.Errorf("otel: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				slog.Error("otel shutdown", "error", err)
			}
		}()
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := dfnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	statsCache, err := ristretto.New(cfg.Stats.CacheSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer statsCache.Close()

	blob, err := gcs.New(ctx, cfg.Blob.Bucket, cfg.Blob.GoogleAccess, cfg.Blob.PrivateKey)
	if err != nil {
		return fmt.Errorf("blob storage: %w", err)
	}
	defer func() { _ = blob.Close() }()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)

	// --- Services ---

	store := postgres.NewStore(pool)
	firmSvc := service.NewFirmService(store, cfg.Auth.MasterEmails)
	ledgerSvc := service.NewLedgerService(store)
	intakeSvc := service.NewIntakeService(store, queue, blob, breaker, metrics,
		cfg.Intake.AllowedMimeTypes, cfg.Blob.URLTTL)
	documentSvc := service.NewDocumentService(store, blob, breaker, cfg.Blob.URLTTL)
	jobSvc := service.NewJobService(store, queue, metrics, service.RetryPolicy{
		MaxRetries: cfg.Jobs.MaxRetries,
		Base:       cfg.Jobs.RetryBase,
		Max:        cfg.Jobs.RetryMax,
	})
	objectionSvc := service.NewObjectionService(store)
	statsSvc := service.NewStatsService(store, statsCache, cfg.Stats.CacheTTL)
	auditSvc := service.NewAuditService(store)

	// Workers that report over the queue instead of HTTP land here.
	cancelResults, err := jobSvc.SubscribeResults(ctx)
	if err != nil {
		return fmt.Errorf("result subscriber: %w", err)
	}
	defer cancelResults()

	// --- HTTP ---

	handlers := &dfhttp.Handlers{
		Firms:      firmSvc,
		Ledger:     ledgerSvc,
		Intake:     intakeSvc,
		Documents:  documentSvc,
		Jobs:       jobSvc,
		Objections: objectionSvc,
		Stats:      statsSvc,
		Audit:      auditSvc,
		Queue:      queue,
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(dfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(dfhttp.SecurityHeaders)
	r.Use(dfhttp.Logger)
	if cfg.Otel.Enabled {
		r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	}

	dfhttp.MountRoutes(r, handlers, cfg.Auth.JWTSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Let in-flight queue messages settle before the HTTP listener goes.
		if err := queue.Drain(); err != nil {
			slog.Error("nats drain", "error", err)
		}
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
