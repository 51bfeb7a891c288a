package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/i474232898/weather-tracker/internal/cache"
	"github.com/i474232898/weather-tracker/internal/metrics"
)

var (
	// ErrEmptyCity is returned when a submitted city is blank after trimming.
	ErrEmptyCity = errors.New("empty city name")

	// ErrFetch wraps provider failures; they are logged inside Fetch.
	ErrFetch = errors.New("weather fetch failed")
)

// Service orchestrates the provider lookup, its memoization, and persistence.
type Service struct {
	store    Store
	provider Provider
	memo     *cache.TTL[Reading]
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewService creates a new Service. memo holds successful readings keyed by
// city; m may be nil.
func NewService(store Store, provider Provider, memo *cache.TTL[Reading], logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		provider: provider,
		memo:     memo,
		logger:   logger,
		metrics:  m,
	}
}

// Fetch returns the current reading for city. A successful reading is reused
// for the lifetime of the memo entry; failures are never cached.
func (s *Service) Fetch(ctx context.Context, city string) (Reading, error) {
	if r, ok := s.memo.Get(city); ok {
		s.metrics.Fetch("hit")
		return r, nil
	}

	r, err := s.provider.Fetch(ctx, city)
	if err != nil {
		s.metrics.Fetch("error")
		s.logger.Error("error fetching weather data",
			zap.String("city", city),
			zap.String("provider", s.provider.Name()),
			zap.Error(err))
		return Reading{}, err
	}

	s.metrics.Fetch("ok")
	s.memo.Set(city, r)
	return r, nil
}

// AddCity fetches the weather for a submitted city and appends one
// observation. Blank input returns ErrEmptyCity without touching the provider
// or the store.
func (s *Service) AddCity(ctx context.Context, raw string) (Observation, error) {
	city := strings.TrimSpace(raw)
	if city == "" {
		s.logger.Warn("empty city name submitted")
		return Observation{}, ErrEmptyCity
	}

	r, err := s.Fetch(ctx, city)
	if err != nil {
		return Observation{}, fmt.Errorf("%w for %q: %w", ErrFetch, city, err)
	}

	obs, err := s.store.Insert(ctx, city, r)
	if err != nil {
		s.logger.Error("error saving to database", zap.String("city", city), zap.Error(err))
		return Observation{}, fmt.Errorf("save %q: %w", city, err)
	}

	s.logger.Info("successfully added weather data", zap.String("city", city), zap.Int64("id", obs.ID))
	return obs, nil
}

// Recent returns up to limit observations, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Observation, error) {
	return s.store.ListRecent(ctx, limit)
}
