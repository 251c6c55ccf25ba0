package formatter

import (
	"fmt"

	"github.com/yildizm/DiagScan/internal/common"
)

// Formatter defines the interface for output formatting
type Formatter interface {
	Format(result *common.PredictionResult) ([]byte, error)
}

// New returns the formatter for the named output format
func New(format string, color bool) (Formatter, error) {
	switch format {
	case "", "text":
		return NewTerminal(color), nil
	case "json":
		return NewJSON(), nil
	case "markdown":
		return NewMarkdown(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (use text, json or markdown)", format)
	}
}
