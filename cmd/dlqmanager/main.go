package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/SnowDream39/vocamap-backend/internal/config"
	"github.com/SnowDream39/vocamap-backend/internal/logger"
	"github.com/SnowDream39/vocamap-backend/internal/outbox"
	httptransport "github.com/SnowDream39/vocamap-backend/internal/transport/http"
)

const defaultDLQBatchSize = 50

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	log, err := logger.Init(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	manager := outbox.NewDLQManager(pool, outbox.RetryPolicy{
		MaxRetries: cfg.DLQMaxRetries,
		BaseDelay:  cfg.DLQBaseDelay,
	}, log)

	metricsDone := make(chan struct{})
	go func() {
		defer close(metricsDone)
		if cfg.MetricsAddress == "" {
			return
		}
		err := httptransport.Run(ctx, httptransport.DefaultServerConfig(cfg.MetricsAddress), promhttp.Handler(), log.Named("metrics"))
		if err != nil {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(cfg.DLQPollInterval)
	defer ticker.Stop()

	log.Info("dlq manager started",
		zap.Duration("interval", cfg.DLQPollInterval),
		zap.Int("max_retries", cfg.DLQMaxRetries),
	)

	for {
		select {
		case <-ctx.Done():
			log.Info("dlq manager received shutdown signal")
			<-metricsDone
			return
		case <-ticker.C:
			processed, err := manager.RunOnce(ctx, defaultDLQBatchSize)
			if err != nil {
				log.Error("dlq manager error", zap.Error(err))
			} else if processed > 0 {
				log.Info("dlq manager requeued entries", zap.Int("processed", processed))
			}
		}
	}
}
