package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DeadlineBar shows how much of an attempt's timeout has elapsed
type DeadlineBar struct {
	Width     int
	Timeout   time.Duration
	StartTime time.Time
	Label     string
	Color     bool
}

// NewDeadlineBar creates a new deadline bar
func NewDeadlineBar(width int, timeout time.Duration) *DeadlineBar {
	return &DeadlineBar{
		Width:   width,
		Timeout: timeout,
		Color:   true,
	}
}

// Start restarts the bar at the given time
func (p *DeadlineBar) Start(at time.Time) {
	p.StartTime = at
}

// SetLabel sets the bar label
func (p *DeadlineBar) SetLabel(label string) {
	p.Label = label
}

// Fraction returns the elapsed share of the timeout in [0, 1]
func (p *DeadlineBar) Fraction(now time.Time) float64 {
	if p.Timeout <= 0 || p.StartTime.IsZero() {
		return 0
	}
	f := float64(now.Sub(p.StartTime)) / float64(p.Timeout)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Render renders the bar as of now
func (p *DeadlineBar) Render(now time.Time) string {
	fraction := p.Fraction(now)

	filledWidth := int(float64(p.Width) * fraction)
	filled := strings.Repeat("█", filledWidth)
	empty := strings.Repeat("░", p.Width-filledWidth)

	if p.Color {
		color := lipgloss.AdaptiveColor{Light: "#059669", Dark: "#10B981"}
		if fraction > 0.75 {
			color = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#F59E0B"}
		}
		filled = lipgloss.NewStyle().Foreground(color).Bold(true).Render(filled)
		empty = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Render(empty)
	}

	elapsed := now.Sub(p.StartTime)
	if p.StartTime.IsZero() || elapsed < 0 {
		elapsed = 0
	}

	result := fmt.Sprintf("[%s] %s / %s", filled+empty, formatDuration(elapsed), formatDuration(p.Timeout))

	if p.Label != "" {
		result = p.Label + "\n" + result
	}

	return result
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner represents a spinning progress indicator
type Spinner struct {
	Frame int
	Label string
}

// NewSpinner creates a new spinner
func NewSpinner() *Spinner {
	return &Spinner{}
}

// SetLabel sets the spinner label
func (s *Spinner) SetLabel(label string) {
	s.Label = label
}

// Tick advances the spinner animation
func (s *Spinner) Tick() {
	s.Frame = (s.Frame + 1) % len(spinnerFrames)
}

// Render renders the spinner
func (s *Spinner) Render(style lipgloss.Style) string {
	spinner := style.Render(spinnerFrames[s.Frame])

	if s.Label != "" {
		return fmt.Sprintf("%s %s", spinner, s.Label)
	}

	return spinner
}
