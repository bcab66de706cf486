package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"livechat/backend/internal/api/handler"
	"livechat/backend/internal/chathub"
	"livechat/backend/internal/config"
	"livechat/backend/internal/events"
	"livechat/backend/internal/intake"
	"livechat/backend/internal/localization"
	"livechat/backend/internal/realtime"
	"livechat/backend/internal/storage"
	"livechat/backend/internal/telegram"
	"livechat/backend/internal/worker"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	if err := storage.Migrate(db, cfg.FeedDriver == config.FeedPostgres); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

// setupFeed returns the change feed and, when the application itself must announce
// writes, the publisher storage reports to.
func setupFeed(cfg *config.Config, rdb *redis.Client) (realtime.ChangeFeed, realtime.Publisher) {
	switch cfg.FeedDriver {
	case config.FeedPostgres:
		return realtime.NewPostgresFeed(cfg.DatabaseDSN), nil
	case config.FeedMemory:
		feed := realtime.NewMemory()
		return feed, feed
	default:
		feed := realtime.NewRedisFeed(rdb)
		return feed, feed
	}
}

func setupEvents(cfg *config.Config) events.Sink {
	if !cfg.KafkaEnabled() {
		return events.Nop{}
	}
	sink, err := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Printf("WARN: CRM events disabled: %v", err)
		return events.Nop{}
	}
	return sink
}

func main() {
	log.Println("Starting live chat backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, rdb := setupDependencies(cfg)
	feed, publisher := setupFeed(cfg, rdb)
	s := storage.NewStorageService(db, rdb, publisher)

	sink := setupEvents(cfg)
	if closer, ok := sink.(*events.KafkaSink); ok {
		defer closer.Close()
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	scheduler := worker.NewScheduler(redisOpt)
	defer scheduler.Close()
	processor := worker.NewProcessor(redisOpt, s)

	functions := intake.NewService(s, scheduler, sink, cfg.WaitingAbandonAfter)

	localizer, err := localization.NewDefault()
	if err != nil {
		log.Fatalf("Failed to load locales: %v", err)
	}

	hub := chathub.NewManager(chathub.ConsoleDeps{
		Backend:         s,
		Functions:       functions,
		Feed:            feed,
		Events:          sink,
		DefaultMaxChats: cfg.DefaultMaxChats,
	})

	go hub.Run(ctx)
	go func() {
		if err := processor.Run(ctx); err != nil {
			log.Printf("ERROR: %v", err)
		}
	}()

	if cfg.TelegramEnabled() {
		botService, err := telegram.NewBotService(cfg.TelegramBotToken, cfg.TelegramOpsChatID, s, feed, localizer, cfg.Locale)
		if err != nil {
			log.Printf("WARN: Telegram alerts disabled: %v", err)
		} else {
			go botService.Run(ctx)
		}
	}

	h := handler.NewHandler(hub, s, functions, []byte(cfg.JWTSecret), localizer, cfg.Locale)
	r := handler.NewRouter(h)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("INFO: Listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: HTTP shutdown: %v", err)
	}
}
