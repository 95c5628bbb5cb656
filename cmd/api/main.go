package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/viadrive/lance/internal/adapters/api"
	"github.com/viadrive/lance/internal/adapters/database"
	"github.com/viadrive/lance/internal/domain/auctions"
	"github.com/viadrive/lance/internal/domain/bids"
	"github.com/viadrive/lance/internal/domain/notifications"
	"github.com/viadrive/lance/internal/fipe"
	"github.com/viadrive/lance/internal/livefeed"
	"github.com/viadrive/lance/internal/mailer"
	"github.com/viadrive/lance/internal/storage"
	"github.com/viadrive/lance/pkg/auth"
	pkgdb "github.com/viadrive/lance/pkg/database"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load environment variables (local overrides .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	ctx := context.Background()

	// 1. Initialize Postgres Connection Pool
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Error("DATABASE_URL is not set")
		os.Exit(1)
	}

	dbConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		logger.Error("Unable to parse database config", "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		logger.Error("Unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if pingErr := pool.Ping(ctx); pingErr != nil {
		logger.Error("Unable to ping database", "error", pingErr)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	// 2. Initialize RabbitMQ (only the worker consumes; the API checks
	// connectivity because the outbox is useless without a broker)
	rabbitURL := os.Getenv("RABBITMQ_URL")
	if rabbitURL == "" {
		logger.Error("RABBITMQ_URL is not set")
		os.Exit(1)
	}

	amqpConn, err := amqp091.Dial(rabbitURL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()
	logger.Info("RabbitMQ Connected")

	// 3. Initialize Redis (live feed + FIPE cache)
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		logger.Error("REDIS_URL is not set")
		os.Exit(1)
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisURL})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	logger.Info("Redis Connected")

	// 4. Initialize token validation
	publicKeyPEM := []byte(os.Getenv("JWT_PUBLIC_KEY"))
	if len(publicKeyPEM) == 0 {
		logger.Error("JWT_PUBLIC_KEY is not set")
		os.Exit(1)
	}
	signer, err := auth.NewSignerFromPublicKey(publicKeyPEM, os.Getenv("JWT_ISSUER"))
	if err != nil {
		logger.Error("Failed to load JWT public key", "error", err)
		os.Exit(1)
	}

	// 5. Initialize Repositories (Infrastructure Layer)
	txManager := pkgdb.NewPostgresTransactionManager(pool, 3*time.Second)
	vehicleRepo := database.NewPostgresVehicleRepository(pool)
	bidRepo := database.NewPostgresBidRepository(pool)
	notificationRepo := database.NewPostgresNotificationRepository(pool)
	outboxRepo := database.NewPostgresOutboxRepository(pool)

	// 6. Initialize Services (Domain Layer)
	auctionService := auctions.NewService(txManager, vehicleRepo, bidRepo, outboxRepo, logger)
	bidService := bids.NewService(txManager, bidRepo, vehicleRepo, outboxRepo)
	// The API only reads and flags notifications; dispatching lives in the worker.
	profileRepo := database.NewPostgresProfileRepository(pool)
	notificationService := notifications.NewService(notificationRepo, profileRepo, mailer.NopMailer{}, logger)

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	publicBaseURL := os.Getenv("PUBLIC_BASE_URL")
	if publicBaseURL == "" {
		publicBaseURL = "http://localhost:8080"
	}
	store, err := storage.NewLocalStore(uploadDir, publicBaseURL+"/uploads")
	if err != nil {
		logger.Error("Failed to initialize upload storage", "error", err)
		os.Exit(1)
	}

	fipeClient := fipe.NewClient(os.Getenv("FIPE_BASE_URL"), rdb, logger)
	hub := livefeed.NewHub(rdb)

	// 7. Assemble HTTP surface
	router := api.NewRouter(api.RouterConfig{
		Signer:           signer,
		Bids:             api.NewBidHandler(bidService, logger),
		Vehicles:         api.NewVehicleHandler(auctionService, bidService, logger),
		Notifications:    api.NewNotificationHandler(notificationService, logger),
		Cron:             api.NewCronHandler(auctionService, os.Getenv("CRON_SECRET"), logger),
		Upload:           api.NewUploadHandler(store, logger),
		Fipe:             api.NewFipeHandler(fipeClient, logger),
		Live:             livefeed.NewSSEHandler(hub, logger),
		StaticUploadsDir: store.Dir(),
	})

	// 8. Start Server
	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Info("Starting auction API", "addr", addr)

	// Use h2c for HTTP/2 without TLS (common for internal services / local dev)
	srv := &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(router, &http2.Server{}),
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
