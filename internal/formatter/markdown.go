package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/yildizm/DiagScan/internal/common"
)

// markdownFormatter formats output as Markdown
type markdownFormatter struct {
	now func() time.Time
}

// NewMarkdown creates a new Markdown formatter
func NewMarkdown() Formatter {
	return &markdownFormatter{now: time.Now}
}

func (f *markdownFormatter) Format(result *common.PredictionResult) ([]byte, error) {
	var b strings.Builder

	b.WriteString("# Image Analysis Result\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", f.now().Format("2006-01-02 15:04:05"))

	percent := FormatConfidencePercent(result.ConfidenceScore)

	b.WriteString("| Field | Value |\n")
	b.WriteString("|-------|-------|\n")
	fmt.Fprintf(&b, "| Prediction | %s |\n", escapeMarkdownCell(result.PredictedClass))
	fmt.Fprintf(&b, "| Confidence | %d%% (%s) |\n", percent, ConfidenceTierFor(percent).Label())
	if result.HasFilename() {
		fmt.Fprintf(&b, "| File | %s |\n", escapeMarkdownCell(*result.Filename))
	}
	if result.HasProcessingTime() {
		fmt.Fprintf(&b, "| Processing Time | %s |\n", FormatProcessingTime(*result.ProcessingTimeMs))
	}

	return []byte(b.String()), nil
}

func escapeMarkdownCell(s string) string {
	return strings.ReplaceAll(EscapeForDisplay(s), "|", "\\|")
}
