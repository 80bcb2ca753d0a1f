package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/SnowDream39/vocamap-backend/internal/cache"
	"github.com/SnowDream39/vocamap-backend/internal/config"
	"github.com/SnowDream39/vocamap-backend/internal/consumer"
	"github.com/SnowDream39/vocamap-backend/internal/logger"
	httptransport "github.com/SnowDream39/vocamap-backend/internal/transport/http"
)

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

	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required: the consumer evicts cached read models")
	}
	client, err := cache.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := consumer.NewCacheHandler(cache.NewRedisViewCache(client, cfg.ViewCacheTTL), log)

	var wg sync.WaitGroup
	if cfg.MetricsAddress != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := httptransport.Run(ctx, httptransport.DefaultServerConfig(cfg.MetricsAddress), promhttp.Handler(), log.Named("metrics"))
			if err != nil {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	for _, topic := range cfg.ConsumerTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
			ErrorLogger:     kafka.LoggerFunc(log.Named("kafka").Sugar().Errorf),
		})

		proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(log))

		wg.Add(1)
		go func(topic string, r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			log.Info("consumer started", zap.String("topic", topic), zap.String("group", cfg.ConsumerGroupID))
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("consumer stopped with error", zap.String("topic", topic), zap.Error(err))
			}
		}(topic, reader)
	}

	<-ctx.Done()
	log.Info("consumer shutdown requested")
	wg.Wait()
}
