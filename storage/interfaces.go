package storage

import (
	"context"

	"lianjia-rentals/models"
)

// ListingWriter is the interface any storage backend must satisfy.
// InsertBatch reports how many records were new; records whose link is
// already stored are ignored.
type ListingWriter interface {
	InsertBatch(ctx context.Context, records []models.ListingRecord) (int, error)
	Close() error
}

// ListingReader loads every stored record for the report stage.
type ListingReader interface {
	LoadAll(ctx context.Context) ([]models.ListingRecord, error)
	Close() error
}

// RawRecordWriter is the interface for exporting scraped rows outside the database.
type RawRecordWriter interface {
	WriteRecords(records []models.ListingRecord) error
	Close() error
}
