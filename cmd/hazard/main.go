package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	kafkago "github.com/segmentio/kafka-go"
	hazardapp "github.com/wyfcoding/hazardwatch/internal/hazard/application"
	hazarddomain "github.com/wyfcoding/hazardwatch/internal/hazard/domain"
	hazardmessaging "github.com/wyfcoding/hazardwatch/internal/hazard/infrastructure/messaging"
	hazardmysql "github.com/wyfcoding/hazardwatch/internal/hazard/infrastructure/persistence/mysql"
	hazardredis "github.com/wyfcoding/hazardwatch/internal/hazard/infrastructure/persistence/redis"
	"github.com/wyfcoding/hazardwatch/internal/hazard/infrastructure/trustbridge"
	hazardconsumer "github.com/wyfcoding/hazardwatch/internal/hazard/interfaces/consumer"
	hazardhttp "github.com/wyfcoding/hazardwatch/internal/hazard/interfaces/http"
	trustapp "github.com/wyfcoding/hazardwatch/internal/trust/application"
	trustdomain "github.com/wyfcoding/hazardwatch/internal/trust/domain"
	trustmessaging "github.com/wyfcoding/hazardwatch/internal/trust/infrastructure/messaging"
	trustmysql "github.com/wyfcoding/hazardwatch/internal/trust/infrastructure/persistence/mysql"
	trustredis "github.com/wyfcoding/hazardwatch/internal/trust/infrastructure/persistence/redis"
	trustconsumer "github.com/wyfcoding/hazardwatch/internal/trust/interfaces/consumer"
	trusthttp "github.com/wyfcoding/hazardwatch/internal/trust/interfaces/http"
	"github.com/wyfcoding/hazardwatch/pkg/middleware"
	"github.com/wyfcoding/hazardwatch/pkg/ratelimit"
	"github.com/wyfcoding/pkg/cache"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/database"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/messagequeue/outbox"
	"github.com/wyfcoding/pkg/metrics"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var configPath = flag.String("config", "configs/hazard/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. Config
	var cfg config.Config
	if err := config.Load(*configPath, &cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger
	logCfg := &logging.Config{
		Service:    cfg.Server.Name,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}
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

	if cfg.Server.Environment == "dev" {
		if err := db.RawDB().AutoMigrate(
			&trustdomain.TrustScore{},
			&trustdomain.TrustScoreEvent{},
			&trustdomain.ActionConfig{},
			&hazarddomain.Hazard{},
			&hazarddomain.Vote{},
			&hazarddomain.ResolutionReport{},
			&hazarddomain.ResolutionConfirmation{},
			&hazarddomain.AuditEntry{},
			&hazarddomain.ExpirationSetting{},
			&outbox.Message{},
		); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
		seedDefaults(context.Background(), db.RawDB())
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
	redisClient := redisCache.GetClient()

	// 7. Trust context
	scoreRepo := trustmysql.NewScoreRepository(db.RawDB())
	eventRepo := trustmysql.NewEventRepository(db.RawDB())
	configRepo := trustmysql.NewConfigRepository(db.RawDB())
	scoreReadRepo := trustredis.NewScoreRedisRepository(redisClient)
	trustPublisher := trustmessaging.NewOutboxPublisher(outboxMgr)

	configCache := trustdomain.NewConfigCache(configRepo)
	if err := configCache.Reload(context.Background()); err != nil {
		slog.Error("failed to load trust action config", "error", err)
		os.Exit(1)
	}

	trustCmd := trustapp.NewTrustCommandService(scoreRepo, eventRepo, configCache, scoreReadRepo, trustPublisher, db.RawDB(), logger.Logger)
	trustQuery := trustapp.NewTrustQueryService(scoreRepo, eventRepo, scoreReadRepo)
	trustSvc := trustapp.NewTrustService(trustCmd, trustQuery)
	scoreProjection := trustapp.NewScoreProjectionService(scoreRepo, scoreReadRepo, logger.Logger)

	// 8. Hazard context
	hazardRepo := hazardmysql.NewHazardRepository(db.RawDB())
	voteRepo := hazardmysql.NewVoteRepository(db.RawDB())
	resolutionRepo := hazardmysql.NewResolutionRepository(db.RawDB())
	auditRepo := hazardmysql.NewAuditRepository(db.RawDB())
	settingRepo := hazardmysql.NewSettingRepository(db.RawDB())
	hazardReadRepo := hazardredis.NewHazardRedisRepository(redisClient)
	hazardPublisher := hazardmessaging.NewOutboxPublisher(outboxMgr)
	trustRecorder := trustbridge.NewRecorder(trustCmd)

	hazardCmd := hazardapp.NewHazardCommandService(hazardRepo, settingRepo, auditRepo, trustRecorder, hazardPublisher, hazardReadRepo, logger.Logger)
	voteCmd := hazardapp.NewVoteCommandService(hazardRepo, voteRepo, auditRepo, trustRecorder, hazardReadRepo, logger.Logger)
	resolutionCmd := hazardapp.NewResolutionCommandService(hazardRepo, resolutionRepo, auditRepo, trustRecorder, hazardPublisher, hazardReadRepo, logger.Logger)
	hazardQuery := hazardapp.NewHazardQueryService(hazardRepo, voteRepo, resolutionRepo, auditRepo, hazardPublisher, hazardReadRepo, logger.Logger)
	hazardSvc := hazardapp.NewHazardService(hazardCmd, voteCmd, resolutionCmd, hazardQuery)

	// 9. Consumers
	projectionHandler := trustconsumer.NewScoreProjectionHandler(scoreProjection, logger.Logger)
	startConsumer(&cfg, logger, metricsImpl, trustdomain.TrustScoreChangedEventType, "hazardwatch-score-projection", projectionHandler.Handle)

	moderationHandler := hazardconsumer.NewModerationHandler(hazardSvc, logger.Logger)
	startConsumer(&cfg, logger, metricsImpl, hazardconsumer.ModerationDecisionTopic, "hazardwatch-moderation", moderationHandler.Handle)

	// 10. HTTP
	limiter := ratelimit.NewRedisLimiter(redisClient)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(logger.Logger))
	r.Use(middleware.RequestLogging(logger.Logger))

	api := r.Group("/api")
	api.Use(middleware.RateLimit(limiter, "hazardwatch:api", ratelimit.PerMinute(120), logger.Logger))

	hazardhttp.NewHazardHandler(hazardSvc).RegisterRoutes(api)
	trusthttp.NewTrustHandler(trustSvc).RegisterRoutes(api)

	// 11. Start
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		outboxProcessor.Start()
		<-ctx.Done()
		outboxProcessor.Stop()
		return nil
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.HTTP.Port)
		server := &http.Server{Addr: addr, Handler: r}
		slog.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down servers...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}

func startConsumer(cfg *config.Config, logger *logging.Logger, metricsImpl *metrics.Metrics, topic, groupID string, handle func(context.Context, kafkago.Message) error) {
	consumerCfg := cfg.MessageQueue.Kafka
	consumerCfg.Topic = topic
	if consumerCfg.GroupID == "" {
		consumerCfg.GroupID = groupID
	}
	consumer := kafka.NewConsumer(&consumerCfg, logger, metricsImpl)
	consumer.Start(context.Background(), 3, handle)
}

// seedDefaults dev 环境补齐分值表与类目默认配置
func seedDefaults(ctx context.Context, db *gorm.DB) {
	configRepo := trustmysql.NewConfigRepository(db)
	for _, ac := range trustdomain.DefaultActionConfigs() {
		if err := configRepo.Upsert(ctx, &ac); err != nil {
			slog.Warn("failed to seed action config", "action", ac.ActionKey, "error", err)
		}
	}

	settingRepo := hazardmysql.NewSettingRepository(db)
	for _, es := range hazarddomain.DefaultExpirationSettings() {
		if err := settingRepo.Upsert(ctx, &es); err != nil {
			slog.Warn("failed to seed expiration setting", "category", es.Category, "error", err)
		}
	}
}
