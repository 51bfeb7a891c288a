package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/i474232898/weather-tracker/internal/weather"
)

const schema = `
CREATE TABLE IF NOT EXISTS weather (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	city TEXT NOT NULL,
	temperature REAL,
	humidity INTEGER,
	description TEXT,
	timestamp DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_weather_timestamp ON weather(timestamp);
`

// SQLiteStore keeps observations in a single-file SQLite table. It holds no
// open handle: every operation opens the file and closes it before returning.
type SQLiteStore struct {
	path string
	now  func() time.Time
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path, now: time.Now}
}

func (s *SQLiteStore) open(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", s.path+"?_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

// withDB runs fn against a freshly opened handle and releases it on every
// exit path.
func (s *SQLiteStore) withDB(ctx context.Context, fn func(*sqlx.DB) error) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

// EnsureSchema creates the observation table if it does not exist.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	return s.withDB(ctx, func(db *sqlx.DB) error {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	})
}

// Insert appends one row; the timestamp is taken here, never from the caller.
func (s *SQLiteStore) Insert(ctx context.Context, city string, r weather.Reading) (weather.Observation, error) {
	obs := weather.Observation{
		City:        city,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Description: r.Description,
		Timestamp:   s.now().UTC(),
	}

	err := s.withDB(ctx, func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO weather (city, temperature, humidity, description, timestamp)
			 VALUES (?, ?, ?, ?, ?)`,
			obs.City, obs.Temperature, obs.Humidity, obs.Description, obs.Timestamp)
		if err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
		obs.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return weather.Observation{}, err
	}
	return obs, nil
}

// ListRecent returns up to limit rows ordered by timestamp descending.
// A non-positive limit returns every row.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]weather.Observation, error) {
	if limit <= 0 {
		limit = -1
	}

	var rows []weather.Observation
	err := s.withDB(ctx, func(db *sqlx.DB) error {
		return db.SelectContext(ctx, &rows,
			`SELECT id, city, temperature, humidity, description, timestamp
			 FROM weather
			 ORDER BY timestamp DESC, id DESC
			 LIMIT ?`, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	return rows, nil
}
