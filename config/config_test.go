package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/phuslu/log"

	"github.com/robinvdvleuten/gains/ledger"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults without files", func(t *testing.T) {
		cfg, err := Load()
		assert.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("missing file is skipped", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"), "")
		assert.NoError(t, err)
		assert.Equal(t, 365, cfg.LongTermDays)
	})

	t.Run("file values", func(t *testing.T) {
		path := writeFile(t, "gains.toml", `
method = "fifo"
long_term_days = 730
boundary = "exclusive"
precision = 4
workers = 2
assets = ["BTC", "ETH"]
exchanges = ["Coinbase"]
holders = ["Alice", "Bob"]

[logging]
level = "debug"

[server]
port = 9090

[archive]
path = "gains.db"
`)
		cfg, err := Load(path)
		assert.NoError(t, err)
		assert.Equal(t, "fifo", cfg.Method)
		assert.Equal(t, 730, cfg.LongTermDays)
		assert.Equal(t, "exclusive", cfg.Boundary)
		assert.Equal(t, int32(4), cfg.Precision)
		assert.Equal(t, []string{"BTC", "ETH"}, cfg.Assets)
		assert.Equal(t, []string{"Alice", "Bob"}, cfg.Holders)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
		assert.Equal(t, "gains.db", cfg.Archive.Path)
	})

	t.Run("later files override earlier ones", func(t *testing.T) {
		base := writeFile(t, "base.toml", "precision = 2\nworkers = 8\n")
		local := writeFile(t, "local.toml", "precision = 6\n")
		cfg, err := Load(base, local)
		assert.NoError(t, err)
		assert.Equal(t, int32(6), cfg.Precision)
		assert.Equal(t, 8, cfg.Workers)
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := writeFile(t, "broken.toml", "precision = \n")
		_, err := Load(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("GAINS_LOG_LEVEL", "warn")
		t.Setenv("GAINS_WORKERS", "3")
		t.Setenv("GAINS_ARCHIVE", "/tmp/a.db")
		t.Setenv("GAINS_BOUNDARY", "Exclusive")

		cfg, err := Load()
		assert.NoError(t, err)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, 3, cfg.Workers)
		assert.Equal(t, "/tmp/a.db", cfg.Archive.Path)
		assert.Equal(t, "exclusive", cfg.Boundary)
	})
}

func TestFile_Ledger(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Default().Ledger()
		assert.NoError(t, err)
		assert.Equal(t, ledger.MethodFIFO, cfg.Method)
		assert.Equal(t, ledger.DefaultLongTermThreshold, cfg.LongTermThreshold)
		assert.Equal(t, ledger.Inclusive, cfg.Boundary)
		assert.Equal(t, ledger.DefaultPrecision, cfg.Precision)
		assert.True(t, cfg.Workers > 0)
	})

	t.Run("custom values", func(t *testing.T) {
		f := Default()
		f.Method = "fifo"
		f.LongTermDays = 30
		f.Boundary = "exclusive"
		f.Precision = 2
		f.Workers = 5

		cfg, err := f.Ledger()
		assert.NoError(t, err)
		assert.Equal(t, "FIFO", cfg.Method)
		assert.Equal(t, 30*24*time.Hour, cfg.LongTermThreshold)
		assert.Equal(t, ledger.Exclusive, cfg.Boundary)
		assert.Equal(t, int32(2), cfg.Precision)
		assert.Equal(t, 5, cfg.Workers)
	})

	tests := []struct {
		name   string
		mutate func(f *File)
	}{
		{name: "unsupported method", mutate: func(f *File) { f.Method = "LIFO" }},
		{name: "negative days", mutate: func(f *File) { f.LongTermDays = -1 }},
		{name: "unknown boundary", mutate: func(f *File) { f.Boundary = "half" }},
		{name: "negative precision", mutate: func(f *File) { f.Precision = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Default()
			tt.mutate(f)
			_, err := f.Ledger()
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, log.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, log.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, log.InfoLevel, ParseLevel("nonsense"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf, false)

	logger.Debug().Msg("hidden")
	logger.Info().Str("asset", "BTC").Msg("computed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "computed")
	assert.Contains(t, out, "asset=BTC")
}
