package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"rental-scraper/models"
	"rental-scraper/utils"
)

const insertBatchSize = 50

// PostgresWriter mirrors listing records into PostgreSQL. The sparse fields
// are kept as one JSONB document per listing.
type PostgresWriter struct {
	db *sqlx.DB
}

type listingRow struct {
	URL        string    `db:"listing_url"`
	CapturedAt time.Time `db:"captured_at"`
	Fields     string    `db:"fields"`
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter. The first ping is retried with
// back-off while the database comes up.
func NewPostgresWriter(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := waitForDB(ctx, db, retry); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func waitForDB(ctx context.Context, db pinger, retry *utils.RetryConfig) error {
	return retry.Do(ctx, "ping", func() error {
		return db.PingContext(ctx)
	})
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			listing_url TEXT        PRIMARY KEY,
			captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			fields      JSONB       NOT NULL DEFAULT '{}'::jsonb
		);

		CREATE INDEX IF NOT EXISTS idx_listings_captured_at ON listings(captured_at);
	`)
	return err
}

// Write inserts records in batches. Listings already present are left alone.
func (pw *PostgresWriter) Write(ctx context.Context, records []*models.Record) error {
	rows, err := toRows(records, time.Now())
	if err != nil {
		return err
	}

	for i := 0; i < len(rows); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := pw.db.NamedExecContext(ctx, `
			INSERT INTO listings (listing_url, captured_at, fields)
			VALUES (:listing_url, :captured_at, :fields)
			ON CONFLICT (listing_url) DO NOTHING
		`, rows[i:end]); err != nil {
			return fmt.Errorf("postgres: insert batch: %w", err)
		}
	}
	return nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

func toRows(records []*models.Record, now time.Time) ([]listingRow, error) {
	rows := make([]listingRow, 0, len(records))
	for _, rec := range records {
		fields, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("postgres: encode %s: %w", rec.URL(), err)
		}
		captured, ok := rec.CapturedAt()
		if !ok {
			captured = now
		}
		rows = append(rows, listingRow{
			URL:        rec.URL(),
			CapturedAt: captured,
			Fields:     string(fields),
		})
	}
	return rows, nil
}
