package telemetry

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestFromContextWithoutCollector(t *testing.T) {
	collector := FromContext(context.Background())
	if _, ok := collector.(noOpCollector); !ok {
		t.Fatalf("expected noOpCollector, got %T", collector)
	}

	timer := StartTimer(context.Background(), "ignored")
	timer.Child("child").End()
	timer.End()

	var buf bytes.Buffer
	collector.Report(&buf)
	if buf.Len() != 0 {
		t.Errorf("no-op collector should not write, got: %s", buf.String())
	}
}

func TestWithCollector(t *testing.T) {
	collector := NewTimingCollector()
	ctx := WithCollector(context.Background(), collector)

	got, ok := FromContext(ctx).(*TimingCollector)
	if !ok || got != collector {
		t.Error("FromContext should return the collector added with WithCollector")
	}
}

func TestStartTimerUsesRootTimer(t *testing.T) {
	collector := NewTimingCollector()
	ctx := WithCollector(context.Background(), collector)

	root := StartTimer(ctx, "compute 2 assets")
	ctx = WithRootTimer(ctx, root)

	btc := StartTimer(ctx, "asset BTC")
	btc.Child("register lots").End()
	btc.End()

	eth := StartTimer(ctx, "asset ETH")
	eth.End()
	root.End()

	var buf bytes.Buffer
	collector.Report(&buf)
	output := buf.String()

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), output)
	}
	if !strings.HasPrefix(lines[0], "compute 2 assets: ") {
		t.Errorf("unexpected root line: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "├─ asset BTC: ") {
		t.Errorf("unexpected BTC line: %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "│  └─ register lots: ") {
		t.Errorf("unexpected nested line: %s", lines[2])
	}
	if !strings.HasPrefix(lines[3], "└─ asset ETH: ") {
		t.Errorf("unexpected ETH line: %s", lines[3])
	}
}

func TestChildTimersFromGoroutines(t *testing.T) {
	collector := NewTimingCollector()
	root := collector.Start("batch")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			child := root.Child("asset")
			child.Child("match").End()
			child.End()
		}()
	}
	wg.Wait()
	root.End()

	var buf bytes.Buffer
	collector.Report(&buf)

	if got := strings.Count(buf.String(), "asset"); got != 8 {
		t.Errorf("expected 8 asset timers, got %d:\n%s", got, buf.String())
	}
}

func TestStartNestsUnderCurrent(t *testing.T) {
	collector := NewTimingCollector()

	outer := collector.Start("outer")
	inner := collector.Start("inner")
	inner.End()
	sibling := collector.Start("sibling")
	sibling.End()
	outer.End()

	var buf bytes.Buffer
	collector.Report(&buf)
	output := buf.String()

	if !strings.Contains(output, "├─ inner") || !strings.Contains(output, "└─ sibling") {
		t.Errorf("inner and sibling should both be children of outer, got:\n%s", output)
	}
}

func TestEndIsIdempotent(t *testing.T) {
	collector := NewTimingCollector()
	timer := collector.Start("once")
	timer.End()
	timer.End()

	var buf bytes.Buffer
	collector.Report(&buf)
	if !strings.HasPrefix(buf.String(), "once: ") {
		t.Errorf("unexpected report: %s", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{0, "0ms"},
		{1 * time.Millisecond, "1ms"},
		{999 * time.Millisecond, "999ms"},
		{1 * time.Second, "1.00s"},
		{1500 * time.Millisecond, "1.50s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.duration); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.duration, got, tt.want)
		}
	}
}

func TestEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	NewTimingCollector().Report(&buf)
	if buf.Len() != 0 {
		t.Errorf("empty collector should produce no output, got: %s", buf.String())
	}
}
