package ch

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pricebot/internal/models"
	"pricebot/internal/storage"
)

var _ storage.Journal = (*ClickHouseDB)(nil)

// Options holds the connection settings
type Options struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	UseTLS   bool
}

// Addr returns host:port
func (o Options) Addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// DSN returns the database/sql data source name used by goose
func (o Options) DSN() string {
	dsn := fmt.Sprintf("clickhouse://%s:%s@%s/%s?dial_timeout=10s&max_execution_time=60",
		o.User, o.Password, o.Addr(), o.Database)
	if o.UseTLS {
		dsn += "&secure=true"
	}
	return dsn
}

// ClickHouseDB is the quote and question journal
type ClickHouseDB struct {
	conn clickhouse.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(ctx context.Context, opts Options) (*ClickHouseDB, error) {
	options := &clickhouse.Options{
		Addr:     []string{opts.Addr()},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.User,
			Password: opts.Password,
		},
		DialTimeout: 10 * time.Second,
	}

	if opts.UseTLS {
		options.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Initialize is a no-op - tables are managed via migrations
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	return nil
}

// RecordQuote appends a quote to the journal
func (db *ClickHouseDB) RecordQuote(ctx context.Context, rec models.QuoteRecord) error {
	// item_count is UInt16
	if rec.ItemCount < 0 || rec.ItemCount > math.MaxUint16 {
		return fmt.Errorf("item count %d out of range", rec.ItemCount)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	batch, err := db.conn.PrepareBatch(ctx, `INSERT INTO quotes (id, created_at, user_id, amount, rate, total, item_count)`)
	if err != nil {
		return fmt.Errorf("failed to prepare quote batch: %w", err)
	}
	if err := batch.Append(rec.ID, rec.CreatedAt.UTC(), rec.UserID, rec.Amount, rec.Rate, rec.Total, uint16(rec.ItemCount)); err != nil {
		batch.Abort()
		return fmt.Errorf("failed to append quote: %w", err)
	}
	err = batch.Send()
	if err != nil {
		return fmt.Errorf("failed to record quote: %w", err)
	}
	return nil
}

// RecordQuestion appends a question to the journal
func (db *ClickHouseDB) RecordQuestion(ctx context.Context, rec models.QuestionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	batch, err := db.conn.PrepareBatch(ctx, `INSERT INTO questions (id, created_at, user_id, relay_message_id)`)
	if err != nil {
		return fmt.Errorf("failed to prepare question batch: %w", err)
	}
	if err := batch.Append(rec.ID, rec.CreatedAt.UTC(), rec.UserID, int64(rec.RelayMessageID)); err != nil {
		batch.Abort()
		return fmt.Errorf("failed to append question: %w", err)
	}
	err = batch.Send()
	if err != nil {
		return fmt.Errorf("failed to record question: %w", err)
	}
	return nil
}

// LastQuotes returns the last N quotes, newest first
func (db *ClickHouseDB) LastQuotes(ctx context.Context, limit int) ([]models.QuoteRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := db.conn.Query(ctx,
		`SELECT id, created_at, user_id, amount, rate, total, item_count FROM quotes ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get last quotes: %w", err)
	}
	defer rows.Close()

	var quotes []models.QuoteRecord
	for rows.Next() {
		var (
			rec       models.QuoteRecord
			itemCount uint16
		)
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.UserID, &rec.Amount, &rec.Rate, &rec.Total, &itemCount); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		rec.ItemCount = int(itemCount)
		quotes = append(quotes, rec)
	}
	return quotes, rows.Err()
}

// GetStats aggregates quotes and questions recorded at or after since
func (db *ClickHouseDB) GetStats(ctx context.Context, since time.Time) (models.Stats, error) {
	var (
		quotes, questions uint64
		total             decimal.Decimal
	)

	row := db.conn.QueryRow(ctx, `SELECT count(), sum(total) FROM quotes WHERE created_at >= ?`, since.UTC())
	if err := row.Scan(&quotes, &total); err != nil {
		return models.Stats{}, fmt.Errorf("failed to aggregate quotes: %w", err)
	}

	row = db.conn.QueryRow(ctx, `SELECT count() FROM questions WHERE created_at >= ?`, since.UTC())
	if err := row.Scan(&questions); err != nil {
		return models.Stats{}, fmt.Errorf("failed to aggregate questions: %w", err)
	}

	return models.Stats{
		Quotes:    int(quotes),
		Questions: int(questions),
		TotalSum:  total,
	}, nil
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
