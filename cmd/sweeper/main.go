// 过期清扫进程。独立于 API 进程部署，可多副本运行：
// 条件更新保证同一灾害只被一个副本落成终态。
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	hazardapp "github.com/wyfcoding/hazardwatch/internal/hazard/application"
	hazardmessaging "github.com/wyfcoding/hazardwatch/internal/hazard/infrastructure/messaging"
	hazardmysql "github.com/wyfcoding/hazardwatch/internal/hazard/infrastructure/persistence/mysql"
	hazardredis "github.com/wyfcoding/hazardwatch/internal/hazard/infrastructure/persistence/redis"
	"github.com/wyfcoding/pkg/cache"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/database"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/messagequeue/outbox"
	"github.com/wyfcoding/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

var (
	configPath = flag.String("config", "configs/sweeper/config.toml", "config file path")
	interval   = flag.Duration("interval", time.Minute, "sweep interval")
)

func main() {
	flag.Parse()

	// 1. Config
	var cfg config.Config
	if err := config.Load(*configPath, &cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger
	logCfg := &logging.Config{Service: cfg.Server.Name, Level: cfg.Log.Level}
	logger := logging.NewFromConfig(logCfg)
	slog.SetDefault(logger.Logger)

	// 3. Metrics
	metricsImpl := metrics.NewMetrics(cfg.Server.Name)
	if cfg.Metrics.Enabled {
		go metricsImpl.ExposeHTTP(cfg.Metrics.Port)
	}

	// 4. Database
	db, err := database.NewDB(cfg.Data.Database, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}

	// 5. Kafka & Outbox
	kafkaProducer := kafka.NewProducer(&cfg.MessageQueue.Kafka, logger, metricsImpl)
	outboxMgr := outbox.NewManager(db.RawDB(), logger.Logger)
	pusher := func(ctx context.Context, topic, key string, payload []byte) error {
		return kafkaProducer.PublishToTopic(ctx, topic, []byte(key), payload)
	}
	outboxProcessor := outbox.NewProcessor(outboxMgr, pusher, 100, 2*time.Second)

	// 6. Redis
	redisCache, err := cache.NewRedisCache(&cfg.Data.Redis, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	// 7. Sweep service
	hazardRepo := hazardmysql.NewHazardRepository(db.RawDB())
	auditRepo := hazardmysql.NewAuditRepository(db.RawDB())
	hazardReadRepo := hazardredis.NewHazardRedisRepository(redisCache.GetClient())
	publisher := hazardmessaging.NewOutboxPublisher(outboxMgr)

	sweeper := hazardapp.NewExpirationSweepService(hazardRepo, auditRepo, publisher, hazardReadRepo, logger.Logger)

	// 8. Run
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		outboxProcessor.Start()
		<-ctx.Done()
		outboxProcessor.Stop()
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		slog.Info("expiration sweeper starting", "interval", *interval)
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				if _, err := sweeper.ExpireOverdueHazards(ctx, now); err != nil {
					slog.Error("expiration sweep failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down sweeper...")
			return context.Canceled
		case <-ctx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		slog.Error("sweeper exited with error", "error", err)
	}
}
