package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/acoustic-health/internal/application"
	appanalysis "github.com/bryanwahyu/acoustic-health/internal/application/analysis"
	"github.com/bryanwahyu/acoustic-health/internal/application/history"
	"github.com/bryanwahyu/acoustic-health/internal/config"
	domain "github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
	"github.com/bryanwahyu/acoustic-health/internal/domain/failures"
	"github.com/bryanwahyu/acoustic-health/internal/infra/cache"
	openaicls "github.com/bryanwahyu/acoustic-health/internal/infra/classifier/openai"
	sigcls "github.com/bryanwahyu/acoustic-health/internal/infra/classifier/signal"
	"github.com/bryanwahyu/acoustic-health/internal/infra/classifier/stub"
	"github.com/bryanwahyu/acoustic-health/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/acoustic-health/internal/infra/db/mysql"
	"github.com/bryanwahyu/acoustic-health/internal/infra/db/postgres"
	"github.com/bryanwahyu/acoustic-health/internal/infra/httpserver"
	"github.com/bryanwahyu/acoustic-health/internal/infra/storage"
	"github.com/bryanwahyu/acoustic-health/internal/middleware"
)

func main() {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	checkers := map[string]middleware.HealthChecker{}

	records, ledger, db, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	checkers["storage"] = middleware.CheckFunc(store.Check)

	classifier := newClassifier(cfg, store)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := middleware.NewMetrics(registry)
	if err != nil {
		return err
	}

	snapshots := cache.NewSnapshotRepository(records, cfg.Cache.TTL)
	analysisSvc := &appanalysis.Service{
		Repo:            snapshots,
		Artifacts:       store,
		Classifier:      classifier,
		Failures:        ledger,
		Clock:           application.SystemClock{},
		Logger:          logger,
		Metrics:         metrics,
		ClassifyTimeout: cfg.Classifier.Timeout,
	}
	historySvc := history.NewService(snapshots)

	opts := httpserver.Options{
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		APIKeys:        cfg.Server.APIKeys,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Metrics:        metrics,
		HealthCheckers: checkers,
		Logger:         logger,
	}
	if cfg.Server.RateLimit.Enabled {
		opts.RateLimiter = middleware.NewRateLimiter(ctx, cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillRate)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpserver.NewRouter(analysisSvc, historySvc, opts),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.Classifier.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", addr,
			"db_driver", cfg.Database.Driver,
			"storage_driver", cfg.Storage.Driver,
			"classifier", cfg.Classifier.Driver,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config) (domain.Repository, failures.Repository, *sql.DB, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		return mysqlp.NewRecordRepository(db), mysqlp.NewFailureRepository(db), db, nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		return postgres.NewRecordRepository(db), postgres.NewFailureRepository(db), db, nil
	default:
		return memory.NewRecordRepository(), memory.NewFailureRepository(), nil, nil
	}
}

type artifactStore interface {
	domain.ArtifactStore
	Check(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config) (artifactStore, error) {
	if cfg.Storage.Driver == "minio" {
		store, err := storage.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return nil, fmt.Errorf("minio init: %w", err)
		}
		return store, nil
	}
	store, err := storage.NewLocal(cfg.Storage.LocalRoot)
	if err != nil {
		return nil, fmt.Errorf("local store init: %w", err)
	}
	return store, nil
}

func newClassifier(cfg *config.Config, artifacts domain.ArtifactReader) domain.Classifier {
	switch cfg.Classifier.Driver {
	case "signal":
		return sigcls.New(artifacts)
	case "openai":
		oc := goopenai.DefaultConfig(cfg.Classifier.APIKey)
		if cfg.Classifier.BaseURL != "" {
			oc.BaseURL = cfg.Classifier.BaseURL
		}
		return openaicls.NewClassifierWithConfig(oc, cfg.Classifier.Model, artifacts)
	default:
		return stub.New(cfg.Classifier.StubDelay)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
