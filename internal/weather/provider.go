package weather

import (
	"context"
)

// Provider abstracts the upstream weather source (OpenWeatherMap).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, city string) (Reading, error)
}

// Store is the contract the observation table must satisfy.
type Store interface {
	Insert(ctx context.Context, city string, r Reading) (Observation, error)
	ListRecent(ctx context.Context, limit int) ([]Observation, error)
}
