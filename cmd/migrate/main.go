package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"pricebot/internal/config"
	"pricebot/internal/storage/ch"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using existing environment variables")
	}

	// Get command from arguments (default to "up")
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	opts, err := config.LoadClickHouse(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if opts.Host == "" {
		log.Fatal("CLICKHOUSE_HOST is not set")
	}

	log.Printf("Running migrations against %s/%s: %s", opts.Addr(), opts.Database, command)
	if err := ch.Migrate(opts, command); err != nil {
		log.Fatalf("Migration %s failed: %v", command, err)
	}
	log.Printf("Migration %s completed successfully", command)
}
