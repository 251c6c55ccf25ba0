package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/yildizm/DiagScan/internal/formatter"
)

// Theme represents a color theme for the TUI
type Theme struct {
	Name string

	// Primary colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Accent    lipgloss.AdaptiveColor

	// Semantic colors
	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Info    lipgloss.AdaptiveColor

	// UI colors
	Border   lipgloss.AdaptiveColor
	Muted    lipgloss.AdaptiveColor
	Selected lipgloss.AdaptiveColor
}

// buildTheme creates a theme from [light, dark] color pairs
func buildTheme(name string, primary, secondary, accent, success, warning, errorColor, info, border, muted, selected [2]string) Theme {
	return Theme{
		Name:      name,
		Primary:   lipgloss.AdaptiveColor{Light: primary[0], Dark: primary[1]},
		Secondary: lipgloss.AdaptiveColor{Light: secondary[0], Dark: secondary[1]},
		Accent:    lipgloss.AdaptiveColor{Light: accent[0], Dark: accent[1]},
		Success:   lipgloss.AdaptiveColor{Light: success[0], Dark: success[1]},
		Warning:   lipgloss.AdaptiveColor{Light: warning[0], Dark: warning[1]},
		Error:     lipgloss.AdaptiveColor{Light: errorColor[0], Dark: errorColor[1]},
		Info:      lipgloss.AdaptiveColor{Light: info[0], Dark: info[1]},
		Border:    lipgloss.AdaptiveColor{Light: border[0], Dark: border[1]},
		Muted:     lipgloss.AdaptiveColor{Light: muted[0], Dark: muted[1]},
		Selected:  lipgloss.AdaptiveColor{Light: selected[0], Dark: selected[1]},
	}
}

// Available themes
var (
	DefaultTheme = buildTheme("default",
		[2]string{"#1E40AF", "#3B82F6"}, [2]string{"#6B7280", "#9CA3AF"}, [2]string{"#0F766E", "#14B8A6"},
		[2]string{"#059669", "#10B981"}, [2]string{"#D97706", "#F59E0B"}, [2]string{"#DC2626", "#EF4444"},
		[2]string{"#0891B2", "#06B6D4"}, [2]string{"#D1D5DB", "#374151"}, [2]string{"#6B7280", "#9CA3AF"},
		[2]string{"#DBEAFE", "#1E3A8A"})

	HighContrastTheme = buildTheme("high-contrast",
		[2]string{"#000000", "#FFFFFF"}, [2]string{"#666666", "#BBBBBB"}, [2]string{"#000080", "#8080FF"},
		[2]string{"#006600", "#00FF00"}, [2]string{"#CC6600", "#FFAA00"}, [2]string{"#CC0000", "#FF4444"},
		[2]string{"#0066CC", "#4499FF"}, [2]string{"#000000", "#FFFFFF"}, [2]string{"#666666", "#BBBBBB"},
		[2]string{"#CCCCCC", "#333333"})

	MinimalTheme = buildTheme("minimal",
		[2]string{"#2D3748", "#E2E8F0"}, [2]string{"#718096", "#A0AEC0"}, [2]string{"#4A5568", "#CBD5E0"},
		[2]string{"#2F855A", "#68D391"}, [2]string{"#C05621", "#F6AD55"}, [2]string{"#C53030", "#FC8181"},
		[2]string{"#2B6CB0", "#63B3ED"}, [2]string{"#E2E8F0", "#2D3748"}, [2]string{"#A0AEC0", "#718096"},
		[2]string{"#EDF2F7", "#2D3748"})
)

// ThemeByName returns the named theme
func ThemeByName(name string) (Theme, bool) {
	switch name {
	case "", "default":
		return DefaultTheme, true
	case "high-contrast":
		return HighContrastTheme, true
	case "minimal":
		return MinimalTheme, true
	default:
		return Theme{}, false
	}
}

// GetAvailableThemes returns list of available theme names
func GetAvailableThemes() []string {
	return []string{"default", "high-contrast", "minimal"}
}

// IsColorDisabled checks if colors should be disabled
func IsColorDisabled() bool {
	return os.Getenv("NO_COLOR") != ""
}

// Styles contains all the styled components
type Styles struct {
	Theme   Theme
	NoColor bool

	Title  lipgloss.Style
	Header lipgloss.Style
	Body   lipgloss.Style
	Muted  lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	Input   lipgloss.Style
	Focused lipgloss.Style
	Box     lipgloss.Style
	Key     lipgloss.Style
}

// NewStyles builds the styles for a theme. With noColor set, every style
// renders text unchanged apart from layout.
func NewStyles(theme Theme, noColor bool) *Styles {
	s := &Styles{Theme: theme, NoColor: noColor}

	plain := lipgloss.NewStyle()
	color := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		if noColor {
			return plain
		}
		return plain.Foreground(c)
	}

	s.Title = color(theme.Primary).Bold(true).Padding(0, 1)
	s.Header = color(theme.Primary).Bold(true)
	s.Body = plain
	s.Muted = color(theme.Muted)

	s.Success = color(theme.Success).Bold(true)
	s.Warning = color(theme.Warning).Bold(true)
	s.Error = color(theme.Error).Bold(true)
	s.Info = color(theme.Info)

	s.Input = plain.Border(lipgloss.NormalBorder()).Padding(0, 1)
	s.Focused = plain.Border(lipgloss.RoundedBorder()).Padding(0, 1)
	s.Box = plain.Border(lipgloss.RoundedBorder()).Padding(1, 2)
	s.Key = color(theme.Accent).Bold(true)

	if !noColor {
		s.Input = s.Input.BorderForeground(theme.Border)
		s.Focused = s.Focused.BorderForeground(theme.Primary)
		s.Box = s.Box.BorderForeground(theme.Border)
	}

	return s
}

// Tier returns the style for a confidence tier
func (s *Styles) Tier(tier formatter.ConfidenceTier) lipgloss.Style {
	if s.NoColor {
		return lipgloss.NewStyle().Bold(true)
	}
	return formatter.TierStyle(tier)
}
