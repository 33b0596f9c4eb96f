// Package config loads bloomctl settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jcalabro/bloomset"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix, e.g. BLOOMSET_LOG_LEVEL.
const Prefix = "BLOOMSET"

// Config validation errors
var (
	ErrInvalidLogFormat = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel  = errors.New("log_level must be debug, info, warn, or error")
	ErrInvalidListen    = errors.New("listen_addr cannot be empty")
	ErrInvalidSnapshot  = errors.New("snapshot_interval cannot be negative")
)

// Config holds settings shared by all bloomctl commands. Flags override
// these values.
type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	// Sizing for newly created filters
	ExpectedItems     uint64  `envconfig:"EXPECTED_ITEMS" default:"1000000"`
	FalsePositiveRate float64 `envconfig:"FALSE_POSITIVE_RATE" default:"0.01"`

	// Membership service
	ListenAddr       string        `envconfig:"LISTEN_ADDR" default:"127.0.0.1:8080"`
	FilterPath       string        `envconfig:"FILTER_PATH" default:"filter.bloom"`
	SnapshotInterval time.Duration `envconfig:"SNAPSHOT_INTERVAL" default:"1m"`
}

// Load reads an optional .env file from envFile (ignored when it does not
// exist) and then populates a Config from the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func Validate(cfg *Config) error {
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	if _, _, err := bloomset.OptimalParams(cfg.ExpectedItems, cfg.FalsePositiveRate); err != nil {
		return err
	}
	if cfg.ListenAddr == "" {
		return ErrInvalidListen
	}
	if cfg.SnapshotInterval < 0 {
		return ErrInvalidSnapshot
	}
	return nil
}
