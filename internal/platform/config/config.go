package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Source store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	errMissingDSN     = errors.New("POSTGRES_DSN is required for the postgres driver")
	errUnknownDriver  = errors.New("unknown SOURCE_DRIVER")
	errRefreshPeriod  = errors.New("REFRESH_INTERVAL must be positive")
	errRateLimit      = errors.New("API_RATE_LIMIT_RPS and API_RATE_LIMIT_BURST must be positive")
	errRebuildTimeout = errors.New("REBUILD_TIMEOUT must not be negative")
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Database DatabaseConfig
	Refresh  RefreshConfig
	HTTP     HTTPConfig

	TopN int `env:"TOP_N" envDefault:"10"`
	// CollegeColors pins chart colors per college, e.g. "CCS:#1f77b4,CBA:#ff7f0e".
	CollegeColors map[string]string `env:"COLLEGE_COLORS" envSeparator:"," envKeyValSeparator:":"`
}

// DatabaseConfig holds source store connection settings.
type DatabaseConfig struct {
	Driver            string        `env:"SOURCE_DRIVER" envDefault:"postgres"`
	PostgresDSN       string        `env:"POSTGRES_DSN"`
	SQLitePath        string        `env:"SQLITE_PATH" envDefault:"research.db"`
	MaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	MinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	RunMigrations     bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
}

// RefreshConfig holds snapshot rebuild settings.
type RefreshConfig struct {
	Interval       time.Duration `env:"REFRESH_INTERVAL" envDefault:"1s"`
	RebuildTimeout time.Duration `env:"REBUILD_TIMEOUT" envDefault:"30s"`
}

// HTTPConfig holds API server settings.
type HTTPConfig struct {
	Port           int     `env:"HTTP_PORT" envDefault:"8080"`
	RateLimitRPS   float64 `env:"API_RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int     `env:"API_RATE_LIMIT_BURST" envDefault:"100"`
	// RateLimitClients caps the per-client limiters kept in memory.
	RateLimitClients int `env:"API_RATE_LIMIT_CLIENTS" envDefault:"10000"`
	// TrustProxyHeaders keys rate limits by X-Forwarded-For behind a reverse proxy.
	TrustProxyHeaders bool `env:"API_TRUST_PROXY_HEADERS" envDefault:"false"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports settings that parse but cannot run.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.PostgresDSN == "" {
			errs = append(errs, errMissingDSN)
		}
	case DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", errUnknownDriver, c.Database.Driver))
	}

	if c.Refresh.Interval <= 0 {
		errs = append(errs, errRefreshPeriod)
	}

	if c.Refresh.RebuildTimeout < 0 {
		errs = append(errs, errRebuildTimeout)
	}

	if c.HTTP.RateLimitRPS <= 0 || c.HTTP.RateLimitBurst <= 0 {
		errs = append(errs, errRateLimit)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// IsLocal reports whether the service runs in a developer environment.
func (c *Config) IsLocal() bool {
	return c.AppEnv == "local"
}
