package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yildizm/DiagScan/internal/common"
	"github.com/yildizm/DiagScan/internal/emoji"
	"github.com/yildizm/go-termfmt"
)

// terminalFormatter formats output as plain text for terminal display using go-termfmt
type terminalFormatter struct {
	opts *termfmt.TerminalOptions
}

// NewTerminal creates a new terminal formatter with optional color support
func NewTerminal(color bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = !emoji.IsEmojiDisabled()
	return &terminalFormatter{opts: opts}
}

func (f *terminalFormatter) Format(result *common.PredictionResult) ([]byte, error) {
	var b strings.Builder

	f.writeHeader(&b)
	f.writePrediction(&b, result)

	return []byte(b.String()), nil
}

// writeHeader writes a box drawn header
func (f *terminalFormatter) writeHeader(b *strings.Builder) {
	header := "Image Analysis Result"
	headerLen := len(header)

	b.WriteString("╔" + strings.Repeat("═", headerLen+2) + "╗\n")
	b.WriteString("║ " + header + " ║\n")
	b.WriteString("╚" + strings.Repeat("═", headerLen+2) + "╝\n\n")
}

// writePrediction writes the prediction tree with a confidence bar
func (f *terminalFormatter) writePrediction(b *strings.Builder, result *common.PredictionResult) {
	percent := FormatConfidencePercent(result.ConfidenceScore)
	tier := ConfidenceTierFor(percent)

	symbol := termfmt.GetEmoji(tierEmojiKey(tier), f.opts)
	b.WriteString(symbol + " " + SanitizeText(result.PredictedClass) + "\n")

	confidence := fmt.Sprintf("%d%% (%s)", percent, tier.Label())
	if f.opts.Color {
		confidence = TierStyle(tier).Render(confidence)
	}

	items := []termfmt.TreeItem{
		{
			Label: "Confidence",
			Value: confidence,
			Children: []termfmt.TreeItem{
				{Label: termfmt.CreateConfidenceBar(result.ConfidenceScore, f.opts), Value: "", Last: true},
			},
		},
	}

	if result.HasFilename() {
		items = append(items, termfmt.TreeItem{Label: "File", Value: SanitizeText(*result.Filename)})
	}
	if result.HasProcessingTime() {
		items = append(items, termfmt.TreeItem{Label: "Processing Time", Value: FormatProcessingTime(*result.ProcessingTimeMs)})
	}
	items[len(items)-1].Last = true

	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n")
}

// FormatProcessingTime renders a millisecond duration for display
func FormatProcessingTime(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2f s", ms/1000)
	}
	return fmt.Sprintf("%.0f ms", ms)
}

// TierStyle returns the emphasis style for a confidence tier
func TierStyle(tier ConfidenceTier) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch tier {
	case TierHigh:
		return style.Foreground(lipgloss.AdaptiveColor{Light: "#059669", Dark: "#10B981"})
	case TierMedium:
		return style.Foreground(lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#F59E0B"})
	default:
		return style.Foreground(lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"})
	}
}

func tierEmojiKey(tier ConfidenceTier) string {
	switch tier {
	case TierHigh:
		return "insight"
	case TierMedium:
		return "warning"
	default:
		return "error"
	}
}
