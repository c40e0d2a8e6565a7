package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"pricebot/internal/app"
	"pricebot/internal/config"
	"pricebot/internal/storage/ch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("Starting ClickHouse testcontainer...")

	clickhouseContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:latest",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword("devpassword"),
		clickhouse.WithDatabase("default"),
	)
	if err != nil {
		log.Fatalf("Failed to start ClickHouse container: %v", err)
	}

	// Ensure container cleanup on exit
	defer func() {
		log.Println("Stopping ClickHouse container...")
		if err := clickhouseContainer.Terminate(context.Background()); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}()

	host, err := clickhouseContainer.Host(ctx)
	if err != nil {
		log.Printf("Failed to get container host: %v", err)
		return
	}
	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	if err != nil {
		log.Printf("Failed to get container port: %v", err)
		return
	}
	log.Printf("ClickHouse started at %s:%s", host, port.Port())

	// Point the application at the container
	os.Setenv("CLICKHOUSE_HOST", host)
	os.Setenv("CLICKHOUSE_PORT", port.Port())
	os.Setenv("CLICKHOUSE_DATABASE", "default")
	os.Setenv("CLICKHOUSE_USER", "default")
	os.Setenv("CLICKHOUSE_PASSWORD", "devpassword")
	os.Setenv("CLICKHOUSE_USE_TLS", "false")
	os.Setenv("USE_MOCK_DB", "false")
	os.Setenv("WEBHOOK_MODE", "false")
	if os.Getenv("STATE_PATH") == "" {
		os.Setenv("STATE_PATH", "pricebot-dev.db")
	}
	if os.Getenv("LOG_LEVEL") == "" {
		os.Setenv("LOG_LEVEL", "debug")
	}

	if os.Getenv("TELEGRAM_BOT_TOKEN") == "" || os.Getenv("ADMIN_CHAT_ID") == "" {
		log.Println("⚠️  TELEGRAM_BOT_TOKEN and ADMIN_CHAT_ID must be set in your environment.")
		return
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return
	}

	log.Println("Applying migrations...")
	if err := ch.Migrate(cfg.ClickHouse(), "up"); err != nil {
		log.Printf("Failed to apply migrations: %v", err)
		return
	}

	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return
	}
	defer logger.Sync()

	log.Println("Starting application with ClickHouse backend...")
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Printf("Failed to create application: %v", err)
		return
	}

	if err := application.Run(ctx); err != nil {
		log.Printf("Application error: %v", err)
	}
}
