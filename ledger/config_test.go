package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestConfig_IsLongTerm(t *testing.T) {
	cfg := NewConfig()
	threshold := cfg.LongTermThreshold

	assert.False(t, cfg.IsLongTerm(threshold-time.Nanosecond))
	assert.True(t, cfg.IsLongTerm(threshold))
	assert.True(t, cfg.IsLongTerm(threshold+time.Nanosecond))

	cfg.Boundary = Exclusive
	assert.False(t, cfg.IsLongTerm(threshold))
	assert.True(t, cfg.IsLongTerm(threshold+time.Nanosecond))
}

func TestParseBoundary(t *testing.T) {
	tests := []struct {
		in      string
		want    Boundary
		wantErr bool
	}{
		{in: "", want: Inclusive},
		{in: "inclusive", want: Inclusive},
		{in: " Exclusive ", want: Exclusive},
		{in: "open", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBoundary(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "lowercase method", mutate: func(c *Config) { c.Method = "fifo" }},
		{name: "unsupported method", mutate: func(c *Config) { c.Method = "HIFO" }, wantErr: `unsupported accounting method "HIFO", expected FIFO`},
		{name: "zero threshold", mutate: func(c *Config) { c.LongTermThreshold = 0 }, wantErr: "long-term threshold must be positive, got 0s"},
		{name: "negative precision", mutate: func(c *Config) { c.Precision = -1 }, wantErr: "precision must not be negative, got -1"},
		{name: "unknown boundary", mutate: func(c *Config) { c.Boundary = 7 }, wantErr: "invalid boundary 7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestConfigFromContext(t *testing.T) {
	fallback := ConfigFromContext(context.Background())
	assert.Equal(t, MethodFIFO, fallback.Method)
	assert.Equal(t, DefaultPrecision, fallback.Precision)

	cfg := NewConfig()
	cfg.Precision = 2
	ctx := cfg.WithContext(context.Background())
	assert.Equal(t, cfg, ConfigFromContext(ctx))
}

func TestComputeUsesConfigFromContext(t *testing.T) {
	cfg := NewConfig()
	cfg.Boundary = Exclusive
	ctx := cfg.WithContext(context.Background())

	acq := buy(t, 1, epoch, "1", "100", "0")
	d := sell(t, 2, epoch.Add(cfg.LongTermThreshold), "1", "150", "0")

	set, err := Compute(ctx, nil, Input{Asset: "BTC", Acquisitions: acquisitions(acq), Disposals: disposals(d)})
	assert.NoError(t, err)
	assert.False(t, set.Records()[0].LongTerm)

	set, err = Compute(context.Background(), nil, Input{Asset: "BTC", Acquisitions: acquisitions(acq), Disposals: disposals(d)})
	assert.NoError(t, err)
	assert.True(t, set.Records()[0].LongTerm)
}
