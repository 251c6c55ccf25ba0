package formatter

import (
	"encoding/json"

	"github.com/yildizm/DiagScan/internal/common"
)

// jsonFormatter formats output as JSON
type jsonFormatter struct{}

// NewJSON creates a new JSON formatter
func NewJSON() Formatter {
	return &jsonFormatter{}
}

// ResultOutput is the JSON document written for a prediction
type ResultOutput struct {
	PredictedClass    string   `json:"predicted_class"`
	ConfidenceScore   float64  `json:"confidence_score"`
	ConfidencePercent int      `json:"confidence_percent"`
	ConfidenceTier    string   `json:"confidence_tier"`
	Filename          *string  `json:"filename,omitempty"`
	ProcessingTimeMs  *float64 `json:"processing_time_ms,omitempty"`
}

func (f *jsonFormatter) Format(result *common.PredictionResult) ([]byte, error) {
	percent := FormatConfidencePercent(result.ConfidenceScore)

	output := &ResultOutput{
		PredictedClass:    result.PredictedClass,
		ConfidenceScore:   result.ConfidenceScore,
		ConfidencePercent: percent,
		ConfidenceTier:    string(ConfidenceTierFor(percent)),
		Filename:          result.Filename,
		ProcessingTimeMs:  result.ProcessingTimeMs,
	}

	return json.MarshalIndent(output, "", "  ")
}
