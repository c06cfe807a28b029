package storage

import (
	"context"

	"rental-scraper/models"
)

// ListingStore is the append-only cache keyed by listing URL.
type ListingStore interface {
	Contains(url string) bool
	Append(rec *models.Record) error
	Save() error
	Len() int
}

// RecordWriter mirrors newly stored records to a secondary backend.
type RecordWriter interface {
	Write(ctx context.Context, records []*models.Record) error
	Close() error
}
