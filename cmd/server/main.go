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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dochandler "fisco/internal/document/handler"
	docmetrics "fisco/internal/document/metrics"
	"fisco/internal/document/ocr"
	"fisco/internal/document/pipeline"
	docservice "fisco/internal/document/service"
	docstore "fisco/internal/document/store"
	obhandler "fisco/internal/obligation/handler"
	observice "fisco/internal/obligation/service"
	obstore "fisco/internal/obligation/store"
	"fisco/internal/platform/config"
	"fisco/internal/platform/httpserver"
	"fisco/internal/platform/kafka"
	"fisco/internal/platform/logger"
	"fisco/internal/platform/metrics"
	"fisco/internal/platform/postgres"
	"fisco/internal/platform/redis"
	"fisco/internal/reconcile/engine"
	rechandler "fisco/internal/reconcile/handler"
	recmetrics "fisco/internal/reconcile/metrics"
	recservice "fisco/internal/reconcile/service"
	recstore "fisco/internal/reconcile/store"
)

// newRouter mounts every module under its own prefix next to the operational
// endpoints. Each module brings its own middleware chain.
func newRouter(
	log *slog.Logger,
	httpMetrics *metrics.Metrics,
	documents dochandler.Service,
	obligations obhandler.Service,
	reconciles rechandler.Service,
) chi.Router {
	r := chi.NewRouter()
	dochandler.New(documents, log, httpMetrics).Register(r)
	obhandler.New(obligations, log, httpMetrics).Register(r)
	rechandler.New(reconciles, log, httpMetrics).Register(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the module packages under
// internal/.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("fisco exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres is optional; without it every store falls back to memory,
	// which is enough for local runs and demos.
	pool, err := postgres.New(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher, err := kafka.New(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
	}

	var documents docstore.Store = docstore.NewMemory()
	var obligations obstore.Store = obstore.NewMemory()
	var reports recstore.Store = recstore.NewMemory()
	if pool != nil {
		docPG := docstore.NewPostgres(pool)
		obPG := obstore.NewPostgres(pool)
		recPG := recstore.NewPostgres(pool)
		for _, ensure := range []func(context.Context) error{
			docPG.EnsureSchema, obPG.EnsureSchema, recPG.EnsureSchema,
		} {
			if err := ensure(ctx); err != nil {
				return err
			}
		}
		documents, obligations, reports = docPG, obPG, recPG
	}
	if redisClient != nil {
		reports = recstore.NewCached(reports, redisClient, cfg.Redis.ReportTTL, log)
	}

	proc, err := pipeline.New(
		ocr.NewTesseract(cfg.Pipeline.OCRLanguage),
		cfg.Pipeline,
		log,
		pipeline.WithMetrics(docmetrics.New()),
	)
	if err != nil {
		return err
	}

	docSvc := docservice.New(documents, proc, log)
	obSvc := observice.New(obligations, log)

	recOpts := []recservice.Option{recservice.WithMetrics(recmetrics.New())}
	if publisher != nil {
		recOpts = append(recOpts, recservice.WithPublisher(publisher))
	}
	recSvc := recservice.New(documents, obligations, reports, engine.New(cfg.Matching), log, recOpts...)

	r := newRouter(log, metrics.New(), docSvc, obSvc, recSvc)

	srv := httpserver.New(cfg.Addr, r)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info("fisco listening",
		"addr", cfg.Addr,
		"postgres", pool != nil,
		"redis", redisClient != nil,
		"kafka", publisher != nil,
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("fisco stopped")
	return nil
}
