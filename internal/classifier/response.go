package classifier

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/yildizm/DiagScan/internal/common"
)

// Response field names of the classification service
const (
	FieldPredictedClass  = "predicted_class"
	FieldConfidenceScore = "confidence_score"
	FieldFilename        = "filename"
	FieldProcessingTime  = "processing_time"
)

// ParsePrediction validates a success body against the response contract.
// Required fields must be present with the right type; optional fields may be
// absent or null but are rejected when present with the wrong type.
func ParsePrediction(body []byte) (*common.PredictionResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, NewSchemaError("body", "response body is not a JSON object")
	}

	var raw map[string]any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &RequestError{
			Type:    ErrTypeSchema,
			Message: "response body is not valid JSON",
			Field:   "body",
			Cause:   err,
		}
	}

	class, ok := raw[FieldPredictedClass].(string)
	if !ok || class == "" {
		return nil, NewSchemaError(FieldPredictedClass, describeInvalid(raw, FieldPredictedClass, "string"))
	}

	score, ok := raw[FieldConfidenceScore].(float64)
	if !ok {
		return nil, NewSchemaError(FieldConfidenceScore, describeInvalid(raw, FieldConfidenceScore, "number"))
	}

	result := &common.PredictionResult{
		PredictedClass:  class,
		ConfidenceScore: score,
	}

	if v, present := raw[FieldFilename]; present && v != nil {
		name, ok := v.(string)
		if !ok {
			return nil, NewSchemaError(FieldFilename, describeInvalid(raw, FieldFilename, "string"))
		}
		result.Filename = &name
	}

	if v, present := raw[FieldProcessingTime]; present && v != nil {
		ms, ok := v.(float64)
		if !ok {
			return nil, NewSchemaError(FieldProcessingTime, describeInvalid(raw, FieldProcessingTime, "number"))
		}
		result.ProcessingTimeMs = &ms
	}

	return result, nil
}

func describeInvalid(raw map[string]any, field, want string) string {
	v, present := raw[field]
	if !present || v == nil {
		return fmt.Sprintf("missing required field %q", field)
	}
	return fmt.Sprintf("field %q must be a %s, got %T", field, want, v)
}
