package config

import (
	"os"
	"testing"
	"time"
)

// Test environment variable keys.
const (
	testEnvDriver      = "SOURCE_DRIVER"
	testEnvPostgresDSN = "POSTGRES_DSN"
	testEnvRefresh     = "REFRESH_INTERVAL"
	testEnvColors      = "COLLEGE_COLORS"
)

// Test values.
const (
	testPostgresDSN = "postgres://localhost/test"
	testErrLoad     = "Load() error = %v"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv(testEnvDriver, DriverPostgres)
	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
}

func TestLoad_MissingDSN(t *testing.T) {
	t.Setenv(testEnvDriver, DriverPostgres)
	t.Setenv(testEnvPostgresDSN, "")

	_, err := Load()
	if err == nil {
		t.Error("expected error for postgres driver without DSN")
	}
}

func TestLoad_SQLiteNeedsNoDSN(t *testing.T) {
	t.Setenv(testEnvDriver, DriverSQLite)
	t.Setenv(testEnvPostgresDSN, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Driver = %q, want %q", cfg.Database.Driver, DriverSQLite)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)

	// Explicitly unset variables that might be in .env to test actual defaults
	for _, key := range []string{"APP_ENV", "HTTP_PORT", testEnvRefresh, "REBUILD_TIMEOUT", "TOP_N", "DB_MAX_CONNECTIONS", "RUN_MIGRATIONS", "API_TRUST_PROXY_HEADERS", "API_RATE_LIMIT_CLIENTS"} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.AppEnv != "local" || !cfg.IsLocal() {
		t.Errorf("AppEnv default = %q, want local", cfg.AppEnv)
	}

	if cfg.HTTP.Port != 8080 {
		t.Errorf("HTTP.Port default = %d, want %d", cfg.HTTP.Port, 8080)
	}

	if cfg.Refresh.Interval != time.Second {
		t.Errorf("Refresh.Interval default = %s, want 1s", cfg.Refresh.Interval)
	}

	if cfg.Refresh.RebuildTimeout != 30*time.Second {
		t.Errorf("Refresh.RebuildTimeout default = %s, want 30s", cfg.Refresh.RebuildTimeout)
	}

	if cfg.TopN != 10 {
		t.Errorf("TopN default = %d, want %d", cfg.TopN, 10)
	}

	if cfg.Database.MaxConnections != 10 {
		t.Errorf("MaxConnections default = %d, want %d", cfg.Database.MaxConnections, 10)
	}

	if !cfg.Database.RunMigrations {
		t.Error("RunMigrations should default to true")
	}

	if cfg.HTTP.TrustProxyHeaders {
		t.Error("TrustProxyHeaders should default to false")
	}

	if cfg.HTTP.RateLimitClients != 10000 {
		t.Errorf("RateLimitClients default = %d, want %d", cfg.HTTP.RateLimitClients, 10000)
	}
}

func TestLoad_CollegeColors(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvColors, "CCS:#1f77b4,CBA:#ff7f0e")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if len(cfg.CollegeColors) != 2 {
		t.Fatalf("CollegeColors length = %d, want %d", len(cfg.CollegeColors), 2)
	}

	if got := cfg.CollegeColors["CBA"]; got != "#ff7f0e" {
		t.Errorf("CollegeColors[CBA] = %q, want %q", got, "#ff7f0e")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvRefresh, "soon")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid REFRESH_INTERVAL")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database: DatabaseConfig{Driver: DriverPostgres, PostgresDSN: testPostgresDSN},
			Refresh:  RefreshConfig{Interval: time.Second},
			HTTP:     HTTPConfig{RateLimitRPS: 1, RateLimitBurst: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "zero refresh", mutate: func(c *Config) { c.Refresh.Interval = 0 }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.Refresh.RebuildTimeout = -time.Second }, wantErr: true},
		{name: "zero burst", mutate: func(c *Config) { c.HTTP.RateLimitBurst = 0 }, wantErr: true},
		{name: "sqlite without dsn", mutate: func(c *Config) {
			c.Database.Driver = DriverSQLite
			c.Database.PostgresDSN = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
