package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/shopspring/decimal"
)

func TestNewStyles(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(&buf)

	if styles == nil {
		t.Fatal("NewStyles should return non-nil Styles")
	}

	if styles.Output() == nil {
		t.Error("Styles should have non-nil output")
	}
}

func TestStylesContainText(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(&buf)

	tests := []struct {
		name   string
		result string
		want   string
	}{
		{"Success", styles.Success("ok"), "ok"},
		{"Error", styles.Error("failed"), "failed"},
		{"FilePath", styles.FilePath("/path/to/ledger.csv"), "/path/to/ledger.csv"},
		{"Asset", styles.Asset("BTC"), "BTC"},
		{"Keyword", styles.Keyword("compute"), "compute"},
		{"Dim", styles.Dim("line 4"), "line 4"},
		{"Warning", styles.Warning("careful"), "careful"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.result, tt.want) {
				t.Errorf("%s() result should contain %q, got: %s", tt.name, tt.want, tt.result)
			}
		})
	}
}

func TestPlainStylesHaveNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	styles := NewPlainStyles(&buf)

	if got := styles.Gain("12.5000", decimal.NewFromFloat(12.5)); got != "12.5000" {
		t.Errorf("Gain() = %q, want plain text", got)
	}
	if got := styles.Gain("-1.0000", decimal.NewFromInt(-1)); got != "-1.0000" {
		t.Errorf("Gain() = %q, want plain text", got)
	}
	if got := styles.Term(true); got != "LONG" {
		t.Errorf("Term(true) = %q, want LONG", got)
	}
	if got := styles.Term(false); got != "SHORT" {
		t.Errorf("Term(false) = %q, want SHORT", got)
	}
}

func TestGainColorsBySign(t *testing.T) {
	var buf bytes.Buffer
	styles := &Styles{output: termenv.NewOutput(&buf, termenv.WithProfile(termenv.ANSI))}

	gain := styles.Gain("1", decimal.NewFromInt(1))
	loss := styles.Gain("1", decimal.NewFromInt(-1))
	zero := styles.Gain("0", decimal.Zero)

	if gain == loss {
		t.Errorf("gains and losses should be styled differently, both %q", gain)
	}
	if !strings.Contains(gain, "\x1b[") {
		t.Errorf("gain should carry an escape sequence, got %q", gain)
	}
	if zero != "0" {
		t.Errorf("zero should be unstyled, got %q", zero)
	}
}
