package main

import (
	"context"
	"flag"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"socialnet/internal/auth"
	"socialnet/internal/chat"
	"socialnet/internal/config"
	"socialnet/internal/db"
	"socialnet/internal/notification"
)

func main() {
	addr := flag.String("addr", ":8080", "http service address")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("❌ Config error: %v", err)
	}

	database, err := db.NewDatabase(cfg.DSN)
	if err != nil {
		sugar.Fatalf("❌ Failed to connect to DB: %v", err)
	}
	sugar.Info("✅ Connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		sugar.Fatalf("❌ Migration failed: %v", err)
	}
	sugar.Info("✅ Database Schema Initialized")

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			sugar.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		sugar.Info("✅ Connected to Redis")
	}

	gate := auth.NewGate(cfg.JWTSecret, cfg.SocketSecret)

	ctx := context.Background()

	chatRepo := chat.NewRepository(database.Conn)
	chatHub := chat.NewHub(redisClient, logger)
	go chatHub.Run(ctx)
	go chatHub.SubscribeToRedis(ctx)
	chatHandler := chat.NewHandler(chatHub, gate, chatRepo, logger)

	notifRepo := notification.NewRepository(database.Conn)
	notifHub := notification.NewHub(notifRepo, redisClient, logger)
	go notifHub.Run(ctx)
	go notifHub.SubscribeToRedis(ctx)
	notifHandler := notification.NewHandler(notifHub, gate, logger)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ws/chats/{chat_id}", chatHandler.ServeWS)
	r.Get("/ws/notifications", notifHandler.ServeWS)

	sugar.Infof("🚀 Server starting on %s", *addr)
	if err := http.ListenAndServe(*addr, r); err != nil {
		sugar.Fatal(err)
	}
}
