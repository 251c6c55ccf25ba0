package formatter

import (
	"html"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatByteSize renders a byte count with base-1024 scaling and at most
// two decimals, e.g. 1536 -> "1.5 KB".
func FormatByteSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}

	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}

	rounded := math.Round(value*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + sizeUnits[unit]
}

// FormatConfidencePercent converts a [0,1] score to a whole percentage
func FormatConfidencePercent(score float64) int {
	return int(math.Round(score * 100))
}

// ConfidenceTier is a display emphasis bucket; it drives no decisions
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// ConfidenceTierFor buckets a percentage: >=80 high, >=60 medium, else low
func ConfidenceTierFor(percent int) ConfidenceTier {
	switch {
	case percent >= 80:
		return TierHigh
	case percent >= 60:
		return TierMedium
	default:
		return TierLow
	}
}

// Label returns the human readable tier name
func (t ConfidenceTier) Label() string {
	switch t {
	case TierHigh:
		return "High"
	case TierMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// SanitizeText drops terminal escape sequences and control characters from
// server-supplied text. Tabs become spaces.
func SanitizeText(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			if r == '\t' {
				return ' '
			}
			return -1
		}
		return r
	}, ansi.Strip(text))
}

// EscapeForDisplay sanitizes text and entity-escapes markup significant
// characters (& < > " ').
func EscapeForDisplay(text string) string {
	return html.EscapeString(SanitizeText(text))
}
