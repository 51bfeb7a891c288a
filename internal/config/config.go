package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// DefaultSecretKey is the placeholder used when SECRET_KEY is not set.
const DefaultSecretKey = "your-secret-key-here"

type AppConfig struct {
	SecretKey         string `validate:"required"`
	OpenWeatherAPIKey string

	Port   string `validate:"required,numeric"`
	DBFile string `validate:"required"`

	// Rotating log file.
	LogFile       string `validate:"required"`
	AccessLogFile string // empty disables the HTTP access log
	LogMaxSizeMB  int    `validate:"gt=0"`
	LogMaxBackups int    `validate:"gte=0"`

	// HTTPTimeout bounds the single outbound provider call.
	HTTPTimeout time.Duration `validate:"gt=0"`

	FetchCacheTTL      time.Duration `validate:"gt=0"` // memoized provider results
	ListCacheTTL       time.Duration `validate:"gt=0"` // GET /weather response
	PlotCacheTTL       time.Duration `validate:"gt=0"` // GET /plot response
	CacheSweepInterval time.Duration `validate:"gt=0"`

	BodyLimit          int `validate:"gt=0"`
	TrustedProxyHeader string
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.SecretKey = getenvDefault("SECRET_KEY", DefaultSecretKey)
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.Port = getenvDefault("PORT", "5001")
	cfg.DBFile = getenvDefault("DB_FILE", "weather_data.db")

	cfg.LogFile = getenvDefault("LOG_FILE", "logs/app.log")
	cfg.AccessLogFile = getenvDefault("ACCESS_LOG_FILE", "logs/access.log")
	cfg.LogMaxSizeMB = getenvInt("LOG_MAX_SIZE_MB", 10)
	cfg.LogMaxBackups = getenvInt("LOG_MAX_BACKUPS", 5)

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", "5s", &cfg.HTTPTimeout},
		{"FETCH_CACHE_TTL", "5m", &cfg.FetchCacheTTL},
		{"LIST_CACHE_TTL", "60s", &cfg.ListCacheTTL},
		{"PLOT_CACHE_TTL", "5m", &cfg.PlotCacheTTL},
		{"CACHE_SWEEP_INTERVAL", "1m", &cfg.CacheSweepInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	cfg.BodyLimit = getenvInt("BODY_LIMIT_BYTES", 10*1024*1024)
	cfg.TrustedProxyHeader = getenvDefault("TRUSTED_PROXY_HEADER", "X-Forwarded-For")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// UsesDefaultSecret reports whether SECRET_KEY was left at its placeholder.
func (c *AppConfig) UsesDefaultSecret() bool {
	return c.SecretKey == DefaultSecretKey
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
