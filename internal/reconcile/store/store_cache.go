package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	platformredis "fisco/internal/platform/redis"
	"fisco/internal/reconcile/models"
	"fisco/pkg/domain"
)

// CachedStore fronts a report store with a redis cache. Reports are
// immutable, so entries never need invalidation, only expiry. Cache failures
// degrade to the inner store and are logged, never surfaced.
type CachedStore struct {
	inner  Store
	redis  *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps inner with a redis cache.
func NewCached(inner Store, redis *platformredis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{inner: inner, redis: redis, ttl: ttl, logger: logger}
}

func cacheKey(id domain.ReportID) string {
	return "fisco:report:" + id.String()
}

func (s *CachedStore) Save(ctx context.Context, report models.Report) error {
	if err := s.inner.Save(ctx, report); err != nil {
		return err
	}
	s.put(ctx, report)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, id domain.ReportID) (models.Report, error) {
	raw, err := s.redis.Get(ctx, cacheKey(id)).Bytes()
	if err == nil {
		var report models.Report
		if err := json.Unmarshal(raw, &report); err == nil {
			return report, nil
		}
		// Undecodable entry: fall through and repopulate.
	} else if !errors.Is(err, goredis.Nil) {
		s.logger.WarnContext(ctx, "report cache read failed",
			"report_id", id.String(),
			"error", err.Error(),
		)
	}

	report, err := s.inner.Get(ctx, id)
	if err != nil {
		return models.Report{}, err
	}
	s.put(ctx, report)
	return report, nil
}

func (s *CachedStore) ListByPeriod(ctx context.Context, period domain.Period) ([]models.Report, error) {
	// Listings go straight to the inner store: new reports appear in a
	// period at any time.
	return s.inner.ListByPeriod(ctx, period)
}

func (s *CachedStore) put(ctx context.Context, report models.Report) {
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(report.ID), raw, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "report cache write failed",
			"report_id", report.ID.String(),
			"error", err.Error(),
		)
	}
}
