package database

import "context"

// HistoryStore is an append-only log of JSON records. Records come back in
// insertion order and are never modified after Append.
type HistoryStore interface {
	// ListAll returns every record; an empty or missing store yields an empty slice.
	ListAll(ctx context.Context) ([]Record, error)
	// Append stamps record with the current time and persists it.
	Append(ctx context.Context, record Record) (Record, error)
	// Clear removes all records.
	Clear(ctx context.Context) error
	Close() error
}
