package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viraj-gavade/Thriftify-sub000/internal/cache"
	"github.com/viraj-gavade/Thriftify-sub000/internal/config"
	"github.com/viraj-gavade/Thriftify-sub000/internal/database"
	"github.com/viraj-gavade/Thriftify-sub000/internal/events"
	"github.com/viraj-gavade/Thriftify-sub000/internal/repository"
	"github.com/viraj-gavade/Thriftify-sub000/internal/server"
	"github.com/viraj-gavade/Thriftify-sub000/internal/storage"
	"github.com/viraj-gavade/Thriftify-sub000/internal/utils"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("THRIFTIFY_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logger, err := utils.NewLogger(cfg.App.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	deps := server.Dependencies{Config: cfg, Logger: logger}

	// storage
	var mc *mongo.Client
	switch cfg.App.Storage {
	case "memory":
		logger.Warn("using in-memory storage, data is lost on restart")
		deps.Users = repository.NewMemoryUserRepo()
		deps.Listings = repository.NewMemoryListingRepo()
		deps.Convs = repository.NewMemoryConversationRepo()
		deps.Msgs = repository.NewMemoryMessageRepo()
	default:
		var db *mongo.Database
		db, mc, err = database.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, logger)
		if err != nil {
			logger.Fatal("mongo init", zap.Error(err))
		}
		if deps.Users, err = repository.NewMongoUserRepo(ctx, db); err != nil {
			logger.Fatal("users collection", zap.Error(err))
		}
		if deps.Listings, err = repository.NewMongoListingRepo(ctx, db); err != nil {
			logger.Fatal("listings collection", zap.Error(err))
		}
		if deps.Convs, err = repository.NewMongoConversationRepo(ctx, db); err != nil {
			logger.Fatal("conversations collection", zap.Error(err))
		}
		if deps.Msgs, err = repository.NewMongoMessageRepo(ctx, db); err != nil {
			logger.Fatal("messages collection", zap.Error(err))
		}
	}

	// presence
	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis init", zap.Error(err))
		}
		deps.Presence = cache.NewRedisPresence(rdb, cfg.Redis.Prefix)
	} else {
		deps.Presence = cache.NewMemoryPresence()
	}

	// domain events
	if cfg.KafkaEnabled() {
		deps.Publisher = events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:    cfg.Kafka.Brokers,
			TopicChat:  cfg.Kafka.TopicChat,
			TopicStore: cfg.Kafka.TopicStore,
		}, logger)
	} else {
		deps.Publisher = events.NopPublisher{}
	}

	if cfg.S3Enabled() {
		presigner, err := storage.NewS3Presigner(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.PublicBaseURL, cfg.PresignTTL)
		if err != nil {
			logger.Fatal("s3 init", zap.Error(err))
		}
		deps.Uploads = presigner
	}

	srv := server.New(deps)

	go func() {
		if err := srv.App.Listen(cfg.Addr()); err != nil {
			logger.Fatal("server listen", zap.Error(err))
		}
	}()
	logger.Info("thriftify started",
		zap.String("addr", cfg.Addr()),
		zap.String("storage", cfg.App.Storage),
		zap.Bool("redis", cfg.RedisEnabled()),
		zap.Bool("kafka", cfg.KafkaEnabled()),
		zap.Bool("uploads", cfg.S3Enabled()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if mc != nil {
		_ = mc.Disconnect(shutdownCtx)
	}
	logger.Info("thriftify stopped")
}
