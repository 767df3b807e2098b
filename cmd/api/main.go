package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-marketplace-orders/internal/app"
	"github.com/ariefcatur/go-marketplace-orders/internal/config"
	"github.com/ariefcatur/go-marketplace-orders/internal/escrow"
	"github.com/ariefcatur/go-marketplace-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/memstore"
	"github.com/ariefcatur/go-marketplace-orders/internal/notify"
	"github.com/ariefcatur/go-marketplace-orders/internal/observability"
	"github.com/ariefcatur/go-marketplace-orders/internal/outbox"
	"github.com/ariefcatur/go-marketplace-orders/internal/postgres"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api.exit", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := escrow.ParseFeePolicy(cfg.Escrow.FeeRate, cfg.Escrow.PerItemFee)
	if err != nil {
		return err
	}

	stores, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	comps, err := app.Build(stores, app.Options{
		NotificationsTopic: cfg.Kafka.NotificationsTopic,
		Producer:           cfg.ServiceName,
		FeePolicy:          &policy,
		Logger:             logger,
	})
	if err != nil {
		return err
	}
	if mem, ok := stores.(*memstore.Store); ok && cfg.Store.SeedDemo {
		if err := seedDemo(ctx, mem, comps); err != nil {
			return err
		}
		logger.Info("api.seeded_demo_data")
	}

	rdb := redisx.New(cfg.Redis.Addr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		logger.Warn("redis.unavailable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	producer, err := kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.WriteTimeout)
	if err != nil {
		return err
	}
	defer producer.Close()
	publisher, err := notify.NewKafkaPublisher(producer)
	if err != nil {
		return err
	}
	relay, err := outbox.NewRelay(outbox.RelayDeps{
		Repo:        comps.Outbox,
		Publisher:   publisher,
		UnitOfWork:  comps.UoW,
		BatchSize:   cfg.Outbox.BatchSize,
		MaxAttempts: cfg.Outbox.MaxAttempts,
		Logger:      logger.Named("outbox"),
	})
	if err != nil {
		return err
	}

	router := httpx.NewRouter(logger)
	(&httpx.OrdersHandler{
		Service:     comps.Service,
		Cache:       redisx.NewStatusCache(rdb, cfg.Redis.StatusTTL),
		Idempotency: redisx.NewIdempotency(rdb, cfg.Redis.IdempotencyTTL),
		Timeout:     cfg.Server.RequestTimeout,
	}).Register(router)
	(&httpx.InventoryHandler{Ledger: comps.Ledger, Timeout: cfg.Server.RequestTimeout}).Register(router)
	srv := httpx.NewServer(cfg.Server.Addr, router, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http.listening", zap.String("addr", cfg.Server.Addr), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("api.shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return relay.Run(gctx, cfg.Outbox.PollInterval)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Store, logger *zap.Logger) (app.Stores, func(), error) {
	if cfg.Driver == config.DriverMemory {
		return memstore.New(), func() {}, nil
	}
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.MaxConns)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return postgres.NewStore(pool, cfg.TxAttempts, logger.Named("postgres")), pool.Close, nil
}
