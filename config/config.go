/*
Package config reads the server configuration.

SOURCES (later wins):
  1. Built-in defaults (envDefault tags)
  2. .env file in the working directory, when present
  3. Process environment
  4. Command-line flags (-port, -db)

ENVIRONMENT:
  PORT                      HTTP port (8080)
  DB_PATH                   SQLite path, ":memory:" for a throwaway database
  LOG_LEVEL                 debug | info | warn | error
  MAX_ACCUMULATION_PERIODS  Upper bound on periods per accumulation request
  DEFAULT_BASE_DAYS         Base day count when a period has none configured
  CLOSE_CHECK_INTERVAL      How often the close scheduler runs (0 disables it)
  CLOSE_GRACE               How long after its end a PROCESSED period stays open
  ALLOWED_ORIGINS           Comma separated CORS origins
  COMPANY_NAME              Printed on payslips
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the server settings.
type Config struct {
	Port                   int           `env:"PORT" envDefault:"8080"`
	DBPath                 string        `env:"DB_PATH" envDefault:"payroll.db"`
	LogLevel               string        `env:"LOG_LEVEL" envDefault:"info"`
	MaxAccumulationPeriods int           `env:"MAX_ACCUMULATION_PERIODS" envDefault:"6"`
	DefaultBaseDays        float64       `env:"DEFAULT_BASE_DAYS" envDefault:"30"`
	CloseCheckInterval     time.Duration `env:"CLOSE_CHECK_INTERVAL" envDefault:"1h"`
	CloseGrace             time.Duration `env:"CLOSE_GRACE" envDefault:"240h"`
	AllowedOrigins         []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8080"`
	CompanyName            string        `env:"COMPANY_NAME" envDefault:"Obras del Sur S.A.C."`
}

// Parse loads .env (if any), the environment and the given command-line
// arguments, in that order, and validates the result.
func Parse(args []string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db path is empty"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if c.MaxAccumulationPeriods < 1 {
		errs = append(errs, fmt.Errorf("max accumulation periods must be positive, got %d", c.MaxAccumulationPeriods))
	}
	if c.DefaultBaseDays < 1 || c.DefaultBaseDays > 31 {
		errs = append(errs, fmt.Errorf("default base days must be within 1..31, got %v", c.DefaultBaseDays))
	}
	if c.CloseCheckInterval < 0 || c.CloseGrace < 0 {
		errs = append(errs, errors.New("scheduler durations must not be negative"))
	}
	return errors.Join(errs...)
}
