package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yildizm/DiagScan/internal/common"
	"github.com/yildizm/DiagScan/internal/formatter"
)

// Placeholder stands in for optional fields the service did not return
const Placeholder = "Not available"

// Disclaimer is appended to every report
const Disclaimer = `DISCLAIMER
This report was produced by an automated image classification service.
It is not a medical diagnosis and must not replace the judgement of a
qualified healthcare professional. Always consult a licensed clinician
before making any decision based on these results.`

const title = "DIAGNOSTIC IMAGE ANALYSIS REPORT"

// Build assembles the plain-text report for a successful prediction
func Build(result *common.PredictionResult, generatedAt time.Time) string {
	var b strings.Builder

	rule := strings.Repeat("=", len(title))
	b.WriteString(rule + "\n")
	b.WriteString(title + "\n")
	b.WriteString(rule + "\n\n")

	fmt.Fprintf(&b, "Generated:        %s\n\n", generatedAt.Format("2006-01-02 15:04:05 MST"))

	filename := Placeholder
	if result.HasFilename() {
		filename = *result.Filename
	}

	percent := formatter.FormatConfidencePercent(result.ConfidenceScore)
	tier := formatter.ConfidenceTierFor(percent)

	processing := Placeholder
	if result.HasProcessingTime() {
		processing = formatter.FormatProcessingTime(*result.ProcessingTimeMs)
	}

	b.WriteString("RESULTS\n")
	b.WriteString("-------\n")
	fmt.Fprintf(&b, "File:             %s\n", filename)
	fmt.Fprintf(&b, "Predicted class:  %s\n", result.PredictedClass)
	fmt.Fprintf(&b, "Confidence:       %d%% (%s)\n", percent, tier.Label())
	fmt.Fprintf(&b, "Processing time:  %s\n\n", processing)

	b.WriteString(Disclaimer + "\n")

	return b.String()
}

// FileName returns the report file name for the given day
func FileName(t time.Time) string {
	return fmt.Sprintf("diagnosis-report-%s.txt", t.Format("2006-01-02"))
}

// maxNameAttempts bounds the numbered names Save tries for one day
const maxNameAttempts = 1000

// Save writes the report into dir and returns the file path. An existing
// report is never replaced: later reports of the same day are numbered
// diagnosis-report-YYYY-MM-DD-2.txt, -3 and so on.
func Save(dir string, result *common.PredictionResult, now time.Time) (string, error) {
	if result == nil {
		return "", fmt.Errorf("no analysis result to save")
	}
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	data := []byte(Build(result, now))
	base := strings.TrimSuffix(FileName(now), ".txt")

	for n := 1; n <= maxNameAttempts; n++ {
		name := base + ".txt"
		if n > 1 {
			name = fmt.Sprintf("%s-%d.txt", base, n)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to write report: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("failed to write report: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to write report: %w", err)
		}
		return path, nil
	}

	return "", fmt.Errorf("failed to write report: no free file name for %s", base)
}
