package weather

import (
	"time"
)

// Reading is the normalized result of one provider lookup.
type Reading struct {
	Temperature float64 `json:"temperature"` // Celsius
	Humidity    int     `json:"humidity"`    // percent
	Description string  `json:"description"`
}

// Observation is one stored reading. ID and Timestamp are assigned by the
// store on insert; rows are never updated.
type Observation struct {
	ID          int64     `db:"id" json:"id"`
	City        string    `db:"city" json:"city"`
	Temperature float64   `db:"temperature" json:"temperature"`
	Humidity    int       `db:"humidity" json:"humidity"`
	Description string    `db:"description" json:"description"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
}
