package token

import (
	"math"
	"strings"
	"testing"
)

func TestCharCounter_Count(t *testing.T) {
	c := NewCharCounter() // 4.0 chars per token

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single word", "word", 2},        // 4/4.0 + 1
		{"forty chars", strings.Repeat("a", 40), 11}, // 40/4.0 + 1
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Count(tt.text); got != tt.want {
				t.Errorf("Count(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestCharCounter_CountMultibyte(t *testing.T) {
	c := NewCharCounter()
	// 10 runes, 30 bytes. The rune bound (10/2+1 = 6) loses to the byte
	// estimate (30/4+1 = 8) here; verify the larger bound wins.
	text := strings.Repeat("語", 10)
	if got := c.Count(text); got != 8 {
		t.Errorf("Count(%q) = %d, want 8", text, got)
	}

	// Dense multibyte text after calibrating to a very loose ratio: the
	// rune floor keeps the estimate from collapsing.
	loose := NewCharCounterRatio(100)
	if got := loose.Count(text); got != 6 {
		t.Errorf("Count(%q) = %d, want the runes/2+1 floor of 6", text, got)
	}
}

func TestForModel(t *testing.T) {
	tests := []struct {
		model     string
		wantRatio float64
	}{
		{"gpt-4o", 4.0},
		{"o1", 4.0},
		{"claude-sonnet-4-20250514", 3.8},
		{"deepseek-chat", 3.6},
		{"some-unknown-model", 4.0}, // lenient fallback
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			c, ok := ForModel(tt.model).(*CharCounter)
			if !ok {
				t.Fatalf("ForModel(%q) returned %T, want *CharCounter", tt.model, ForModel(tt.model))
			}
			if c.Ratio() != tt.wantRatio {
				t.Errorf("Ratio() = %v, want %v", c.Ratio(), tt.wantRatio)
			}
		})
	}
}

func TestCharCounter_Calibrate(t *testing.T) {
	c := NewCharCounter()

	// First observation replaces the default outright.
	c.Calibrate(strings.Repeat("a", 30), 10) // observed 3.0
	if got := c.Ratio(); got != 3.0 {
		t.Fatalf("Ratio() after first observation = %v, want 3.0", got)
	}

	// Later observations blend: 0.3*5.0 + 0.7*3.0 = 3.6.
	c.Calibrate(strings.Repeat("a", 50), 10)
	if got := c.Ratio(); math.Abs(got-3.6) > 1e-9 {
		t.Fatalf("Ratio() after second observation = %v, want 3.6", got)
	}

	// Degenerate observations are ignored.
	c.Calibrate("", 10)
	c.Calibrate("abc", 0)
	c.Calibrate("abc", -1)
	if got := c.Ratio(); math.Abs(got-3.6) > 1e-9 {
		t.Errorf("Ratio() moved on degenerate input: %v, want 3.6", got)
	}
}

func TestNewCharCounterRatio_RejectsNonPositive(t *testing.T) {
	for _, ratio := range []float64{0, -1} {
		c := NewCharCounterRatio(ratio)
		if c.Ratio() != 4.0 {
			t.Errorf("NewCharCounterRatio(%v).Ratio() = %v, want the 4.0 default", ratio, c.Ratio())
		}
	}
}
