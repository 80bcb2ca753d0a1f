package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/SnowDream39/vocamap-backend/internal/api"
	"github.com/SnowDream39/vocamap-backend/internal/auth"
	"github.com/SnowDream39/vocamap-backend/internal/cache"
	"github.com/SnowDream39/vocamap-backend/internal/config"
	"github.com/SnowDream39/vocamap-backend/internal/domain"
	"github.com/SnowDream39/vocamap-backend/internal/logger"
	"github.com/SnowDream39/vocamap-backend/internal/outbox"
	"github.com/SnowDream39/vocamap-backend/internal/persistence/memory"
	"github.com/SnowDream39/vocamap-backend/internal/persistence/postgres"
	httptransport "github.com/SnowDream39/vocamap-backend/internal/transport/http"
)

const topicPartitions = 3

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

	opts := []domain.Option{domain.WithLogger(log)}
	if cfg.RedisURL != "" {
		client, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer client.Close()
		opts = append(opts, domain.WithViewCache(cache.NewRedisViewCache(client, cfg.ViewCacheTTL)))
		log.Info("read-model cache enabled", zap.Duration("ttl", cfg.ViewCacheTTL))
	}

	var (
		engine     domain.Engine
		dispatcher *outbox.Dispatcher
	)
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on exit and no events are published")
		engine = memory.New()
	default:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		engine = postgres.NewRepository(pool)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers, log)
		defer producer.Close()
		if err := producer.EnsureTopics(ctx, topicPartitions, outbox.Topics()...); err != nil {
			log.Warn("unable to ensure kafka topics", zap.Error(err))
		}

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, log, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		go dispatcher.Start(ctx)
	}

	service := domain.NewService(engine, opts...)
	router := api.NewRouter(api.RouterConfig{
		Auth:           auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		AllowedOrigins: cfg.AllowedOrigins,
	}, api.NewHandler(service, log))

	if err := httptransport.Run(ctx, httptransport.DefaultServerConfig(cfg.HTTPAddress), router, log); err != nil {
		log.Error("http server stopped", zap.Error(err))
	}
	stop()

	if dispatcher != nil {
		dispatcher.Wait()
	}
	log.Info("api stopped")
}
