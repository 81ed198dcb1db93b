// Package config loads the gains configuration from TOML files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/robinvdvleuten/gains/ledger"
)

// File holds everything that can be set in a gains.toml file.
type File struct {
	Method       string `toml:"method"`
	LongTermDays int    `toml:"long_term_days"`
	Boundary     string `toml:"boundary"` // "inclusive" or "exclusive"
	Precision    int32  `toml:"precision"`
	Workers      int    `toml:"workers"`

	// Known values accepted in the input file. Empty lists accept anything.
	Assets    []string `toml:"assets"`
	Exchanges []string `toml:"exchanges"`
	Holders   []string `toml:"holders"`

	Logging LoggingConfig `toml:"logging"`
	Server  ServerConfig  `toml:"server"`
	Archive ArchiveConfig `toml:"archive"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// ServerConfig holds configuration for gains serve.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ArchiveConfig holds the location of the SQLite archive.
type ArchiveConfig struct {
	Path string `toml:"path"`
}

// Default returns a File with the default settings.
func Default() *File {
	return &File{
		Method:       ledger.MethodFIFO,
		LongTermDays: int(ledger.DefaultLongTermThreshold / (24 * time.Hour)),
		Boundary:     ledger.Inclusive.String(),
		Precision:    ledger.DefaultPrecision,
		Logging:      LoggingConfig{Level: "info"},
		Server:       ServerConfig{Host: "127.0.0.1", Port: 8080},
	}
}

// Load reads and merges the given files in order, later files overriding
// earlier ones. Empty paths and missing files are skipped. Environment
// overrides are applied last.
func Load(paths ...string) (*File, error) {
	cfg := Default()

	for _, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies GAINS_* environment variables to cfg.
func applyEnvOverrides(cfg *File) {
	if level := os.Getenv("GAINS_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if workers := os.Getenv("GAINS_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			cfg.Workers = n
		}
	}

	if path := os.Getenv("GAINS_ARCHIVE"); path != "" {
		cfg.Archive.Path = path
	}

	if boundary := os.Getenv("GAINS_BOUNDARY"); boundary != "" {
		cfg.Boundary = strings.ToLower(boundary)
	}
}

// Ledger converts the file settings into an engine configuration.
func (f *File) Ledger() (*ledger.Config, error) {
	cfg := ledger.NewConfig()

	if f.Method != "" {
		cfg.Method = strings.ToUpper(f.Method)
	}
	if f.LongTermDays < 0 {
		return nil, fmt.Errorf("long_term_days must be positive, got %d", f.LongTermDays)
	}
	if f.LongTermDays > 0 {
		cfg.LongTermThreshold = time.Duration(f.LongTermDays) * 24 * time.Hour
	}

	boundary, err := ledger.ParseBoundary(f.Boundary)
	if err != nil {
		return nil, err
	}
	cfg.Boundary = boundary

	cfg.Precision = f.Precision
	if f.Workers > 0 {
		cfg.Workers = f.Workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
