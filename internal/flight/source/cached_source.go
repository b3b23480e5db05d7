package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/overflight/internal/flight/domain"
	"go.uber.org/zap"
)

const defaultRecordTTL = 30 * time.Minute

// cachedSource fronts another Source with a redis cache so a queue entry
// retried after a downstream failure does not hit the telemetry service
// again for the same flight.
type cachedSource struct {
	next   domain.Source
	client *redis.Client
	log    *zap.Logger
	ttl    time.Duration
}

// WithCache wraps next with a redis-backed record cache. A nil client
// returns next unchanged.
func WithCache(next domain.Source, client *redis.Client, log *zap.Logger) domain.Source {
	if client == nil {
		return next
	}
	return &cachedSource{
		next:   next,
		client: client,
		log:    log.Named("flight.cache"),
		ttl:    defaultRecordTTL,
	}
}

func (s *cachedSource) Fetch(ctx context.Context, flightID int64) (*domain.FlightRecord, error) {
	key := cacheKey(flightID)

	if raw, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var record domain.FlightRecord
		if err := json.Unmarshal(raw, &record); err == nil {
			return &record, nil
		}
		// Corrupt entry, fall through to the source.
		s.client.Del(ctx, key)
	}

	record, err := s.next.Fetch(ctx, flightID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(record); err == nil {
		if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
			s.log.Debug("cache write failed", zap.Int64("flight_id", flightID), zap.Error(err))
		}
	}
	return record, nil
}

func cacheKey(flightID int64) string {
	return fmt.Sprintf("flight:%d", flightID)
}
