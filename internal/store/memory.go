package store

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/weather-tracker/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory observation log used by the
// service and handler tests in place of a database file.
type MemoryStore struct {
	mu sync.RWMutex

	rows   []weather.Observation
	nextID int64
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, now: func() time.Time { return time.Now().UTC() }}
}

// Insert appends a row with a store-assigned id and timestamp.
func (s *MemoryStore) Insert(_ context.Context, city string, r weather.Reading) (weather.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obs := weather.Observation{
		ID:          s.nextID,
		City:        city,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Description: r.Description,
		Timestamp:   s.now(),
	}
	s.nextID++
	s.rows = append(s.rows, obs)
	return obs, nil
}

// ListRecent returns up to limit rows, newest first.
func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]weather.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.rows)
	if limit > 0 && limit < n {
		n = limit
	}

	// Rows are appended in timestamp order, so walking backwards is newest first.
	result := make([]weather.Observation, 0, n)
	for i := len(s.rows) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, s.rows[i])
	}
	return result, nil
}
