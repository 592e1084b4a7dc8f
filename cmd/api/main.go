package main

import (
	"context"
	"log"
	"time"

	"cargo-connect-api-server/config"
	"cargo-connect-api-server/internal/api/routes"
	"cargo-connect-api-server/internal/auth"
	"cargo-connect-api-server/internal/database"
	"cargo-connect-api-server/internal/lifecycle"
	"cargo-connect-api-server/internal/notify"
	"cargo-connect-api-server/internal/s3"
	"cargo-connect-api-server/internal/socket"
	"cargo-connect-api-server/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load configuration (.env is optional, config.yaml + env vars win)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	// 2. Connect MongoDB and prepare collections
	db, err := database.Connect(cfg.Mongo)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Client().Disconnect(ctx); err != nil {
			log.Printf("Failed to disconnect MongoDB: %v", err)
		}
	}()

	indexCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.EnsureIndexes(indexCtx, db); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
	if err := database.SeedAdmin(db); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	// 3. Token manager
	accessTTL := parseDuration(cfg.JWT.AccessExpiration, 15*time.Minute)
	refreshTTL := parseDuration(cfg.JWT.RefreshExpiration, 7*24*time.Hour)
	tokens := auth.NewManager(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, accessTTL, refreshTTL)

	// 4. S3 uploader for offer photos and vehicle documents
	uploader, err := s3.NewUploader(cfg.S3)
	if err != nil {
		log.Fatalf("Failed to initialize S3 uploader: %v", err)
	}

	// 5. Realtime plumbing and the lifecycle service
	hub := socket.NewHub()
	broker := socket.NewTopicBroker()
	defer broker.Close()

	lifecycleStore := store.NewMongoStore(db)
	notifier := notify.New(db, hub, broker)
	lifecycleSvc := lifecycle.NewService(lifecycleStore, notifier)

	// 6. Router
	router := routes.SetupRouter(db, tokens, lifecycleSvc, uploader, hub, broker)

	// 7. Start server
	log.Printf("Starting API server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %q, using %s", s, fallback)
		return fallback
	}
	return d
}
