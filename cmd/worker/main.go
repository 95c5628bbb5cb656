package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/viadrive/lance/internal/adapters/database"
	adapterevents "github.com/viadrive/lance/internal/adapters/events"
	"github.com/viadrive/lance/internal/domain/auctions"
	"github.com/viadrive/lance/internal/domain/notifications"
	"github.com/viadrive/lance/internal/livefeed"
	"github.com/viadrive/lance/internal/mailer"
	"github.com/viadrive/lance/internal/scheduler"
	pkgdb "github.com/viadrive/lance/pkg/database"
	pkgevents "github.com/viadrive/lance/pkg/events"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load environment variables (local overrides .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Postgres Connection Pool
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Error("DATABASE_URL is not set")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, dbURL)
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

	// 2. Initialize RabbitMQ
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

	publisher, err := pkgevents.NewRabbitMQPublisher(amqpConn)
	if err != nil {
		logger.Error("Failed to create RabbitMQ publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// 3. Initialize Redis (live feed fan-out)
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

	// 4. Repositories and services
	txManager := pkgdb.NewPostgresTransactionManager(pool, 3*time.Second)
	vehicleRepo := database.NewPostgresVehicleRepository(pool)
	bidRepo := database.NewPostgresBidRepository(pool)
	notificationRepo := database.NewPostgresNotificationRepository(pool)
	profileRepo := database.NewPostgresProfileRepository(pool)
	outboxRepo := database.NewPostgresOutboxRepository(pool)

	auctionService := auctions.NewService(txManager, vehicleRepo, bidRepo, outboxRepo, logger)

	var outbidMailer notifications.Mailer = mailer.NopMailer{}
	if apiKey := os.Getenv("RESEND_API_KEY"); apiKey != "" {
		from := os.Getenv("MAIL_FROM")
		if from == "" {
			logger.Error("MAIL_FROM is not set")
			os.Exit(1)
		}
		outbidMailer = mailer.NewResendMailer(apiKey, from)
	} else {
		logger.Warn("RESEND_API_KEY not set, outbid emails disabled")
	}

	notificationService := notifications.NewService(notificationRepo, profileRepo, outbidMailer, logger)

	// 5. Background processes
	relay := pkgevents.NewOutboxRelay(
		outboxRepo,
		publisher,
		txManager,
		10,                 // batch size
		1*time.Second,      // interval
		pkgevents.Exchange, // exchange
		logger,
	)

	dispatcher := adapterevents.NewDispatcherConsumer(amqpConn, notificationService, logger)
	bridge := adapterevents.NewLivefeedBridge(amqpConn, livefeed.NewHub(rdb), logger)

	sweepInterval := scheduler.DefaultInterval
	if v := os.Getenv("SCHEDULER_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			logger.Error("Invalid SCHEDULER_INTERVAL", "value", v, "error", err)
			os.Exit(1)
		}
		sweepInterval = d
	}
	sched := scheduler.New(auctionService, sweepInterval, logger)

	// 6. Run everything until a signal or the first fatal error
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting Outbox Relay...")
		return relay.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting Notification Dispatcher...")
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting Livefeed Bridge...")
		return bridge.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting Auction Scheduler...", "interval", sweepInterval)
		return sched.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shut down cleanly")
}
