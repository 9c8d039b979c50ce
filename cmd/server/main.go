package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/KhanMaytok/pixl-interview/internal/api"
	"github.com/KhanMaytok/pixl-interview/internal/auth"
	"github.com/KhanMaytok/pixl-interview/internal/config"
	"github.com/KhanMaytok/pixl-interview/internal/events"
	"github.com/KhanMaytok/pixl-interview/internal/hub"
	"github.com/KhanMaytok/pixl-interview/internal/kafka"
	"github.com/KhanMaytok/pixl-interview/internal/logger"
	"github.com/KhanMaytok/pixl-interview/internal/metrics"
	"github.com/KhanMaytok/pixl-interview/internal/presence"
	"github.com/KhanMaytok/pixl-interview/internal/repository"
	"github.com/KhanMaytok/pixl-interview/internal/service"
	"github.com/KhanMaytok/pixl-interview/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(logger.Config{Development: cfg.App.Development()})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	mc, err := repository.NewMongoClient(cfg.Mongo.URI)
	if err != nil {
		zlog.Fatalw("mongo init", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	db := mc.Database(cfg.Mongo.DB)
	msgRepo := repository.NewMessageRepository(db, zlog)
	trashRepo := repository.NewTrashRepository(db, zlog)

	pub, err := events.NewPublisher(cfg.NATS.URL, zlog)
	if err != nil {
		zlog.Fatalw("nats init", "err", err)
	}
	defer pub.Close()

	svc := service.NewMessageService(msgRepo, trashRepo, pub, zlog)

	registry := hub.NewHub()
	pres := presence.NewStore(rdb, cfg.Redis.Prefix)

	// Every instance publishes to and consumes from the same relay topic
	// under its own consumer group; the ws server filters out envelopes it
	// published itself.
	instanceID := uuid.NewString()
	kprod := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	kcons := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupPrefix+"-"+instanceID, zlog)

	wsrv := ws.NewServer(registry, svc, kprod, pres, cfg.WS, instanceID, zlog)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	go kcons.Start(consumerCtx, wsrv.HandleEventMessage)

	jv, err := auth.NewValidator(cfg.JWT)
	if err != nil {
		zlog.Fatalw("jwt init", "err", err)
	}

	metrics.Init()
	go func() {
		if err := http.ListenAndServe(":"+cfg.App.MetricsPortString(), metrics.Handler()); err != nil {
			zlog.Warnw("metrics listener", "err", err)
		}
	}()

	app := api.NewServer(svc, wsrv, pres, jv)

	go func() {
		if err := app.Listen(":" + cfg.App.PortString()); err != nil {
			zlog.Fatalw("server listen", "err", err)
		}
	}()
	zlog.Infow("chat backend started", "port", cfg.App.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout())
	defer cancel()

	stopConsumer()
	_ = app.ShutdownWithContext(ctx)
	_ = kprod.Close(ctx)
	_ = kcons.Close(ctx)
	zlog.Info("chat backend stopped")
}
