// Package domain contains the durable flight backlog models.
package domain

import (
	"context"
	"time"
)

// FlightQueueEntry is one flight awaiting processing. Entries are written by
// the upstream ingestion source and removed only after the per-item pipeline
// succeeds, so an entry is never in the queue and processed at the same time.
type FlightQueueEntry struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	FlightID   int64     `gorm:"not null;index"`
	EnqueuedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_flight_queue_enqueued_at,priority:1"`
}

// TableName sets the database table name.
func (FlightQueueEntry) TableName() string { return "flight_queue" }

type Repository interface {
	// FetchBatch returns up to limit entries ordered oldest first.
	FetchBatch(ctx context.Context, limit int) ([]FlightQueueEntry, error)
	// DeleteByIDs removes the given entries in one batch operation.
	DeleteByIDs(ctx context.Context, ids []int64) error
	Enqueue(ctx context.Context, flightID int64, enqueuedAt time.Time) error
	Count(ctx context.Context) (int64, error)
}
