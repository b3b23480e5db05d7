package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/overflight/internal/queue/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) FetchBatch(ctx context.Context, limit int) ([]domain.FlightQueueEntry, error) {
	var entries []domain.FlightQueueEntry
	err := r.db.WithContext(ctx).
		Order("enqueued_at asc, id asc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&domain.FlightQueueEntry{}).Error
}

func (r *repo) Enqueue(ctx context.Context, flightID int64, enqueuedAt time.Time) error {
	entry := domain.FlightQueueEntry{
		FlightID:   flightID,
		EnqueuedAt: enqueuedAt,
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *repo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.FlightQueueEntry{}).
		Count(&count).Error
	return count, err
}
