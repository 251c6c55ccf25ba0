package components

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func TestDeadlineBarFraction(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	bar := NewDeadlineBar(10, 30*time.Second)

	if got := bar.Fraction(start); got != 0 {
		t.Errorf("Fraction before start = %v, want 0", got)
	}

	bar.Start(start)

	tests := []struct {
		offset time.Duration
		want   float64
	}{
		{0, 0},
		{15 * time.Second, 0.5},
		{30 * time.Second, 1},
		{45 * time.Second, 1},
		{-time.Second, 0},
	}

	for _, tt := range tests {
		if got := bar.Fraction(start.Add(tt.offset)); got != tt.want {
			t.Errorf("Fraction(+%v) = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestDeadlineBarRender(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	bar := NewDeadlineBar(10, 30*time.Second)
	bar.Color = false
	bar.SetLabel("Analyzing")
	bar.Start(start)

	out := bar.Render(start.Add(15 * time.Second))

	if !strings.HasPrefix(out, "Analyzing\n") {
		t.Errorf("Expected label line, got %q", out)
	}
	if !strings.Contains(out, "[█████░░░░░]") {
		t.Errorf("Expected half filled bar, got %q", out)
	}
	if !strings.Contains(out, "15s / 30s") {
		t.Errorf("Expected elapsed and timeout, got %q", out)
	}
}

func TestSpinnerTick(t *testing.T) {
	s := NewSpinner()
	for i := 0; i < len(spinnerFrames); i++ {
		s.Tick()
	}
	if s.Frame != 0 {
		t.Errorf("Spinner should wrap around, frame = %d", s.Frame)
	}

	s.SetLabel("Working")
	if got := s.Render(lipgloss.NewStyle()); got != spinnerFrames[0]+" Working" {
		t.Errorf("Render() = %q", got)
	}
}
