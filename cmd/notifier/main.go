package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace-orders/internal/config"
	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/notify"
	"github.com/ariefcatur/go-marketplace-orders/internal/observability"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-notifier"

	logger, err := observability.NewLogger(cfg.LogLevel, service)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redisx.New(cfg.Redis.Addr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		logger.Fatal("redis.unavailable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	deliverer, err := notify.NewDeliverer(notify.DelivererDeps{
		Web:    redisx.NewWebInbox(rdb),
		Email:  notify.LogEmailSink{Logger: logger.Named("email")},
		Dedup:  redisx.NewDedup(rdb, service),
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("notifier.init", zap.Error(err))
	}

	consumer := kafkax.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, cfg.Kafka.NotificationsTopic, cfg.Kafka.Workers, logger)
	logger.Info("notifier.started",
		zap.String("topic", cfg.Kafka.NotificationsTopic),
		zap.String("group", cfg.Kafka.ConsumerGroup),
		zap.Int("workers", cfg.Kafka.Workers),
	)
	if err := consumer.Start(ctx, deliverer.Handle); err != nil {
		logger.Error("notifier.exit", zap.Error(err))
		return
	}
	logger.Info("notifier.stopped")
}
