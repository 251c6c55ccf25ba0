package common

import "fmt"

// Candidate describes a payload offered for selection, before validation.
// MediaType is the declared type and is trusted as-is.
type Candidate struct {
	Name      string
	MediaType string
	Size      int64
	Data      []byte
}

// InputArtifact is an accepted image payload. It is replaced wholesale on a
// new selection and never mutated in place.
type InputArtifact struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
	Data      []byte `json:"-"`
}

// PredictionResult is the classification returned by the remote service
type PredictionResult struct {
	PredictedClass   string   `json:"predicted_class"`
	ConfidenceScore  float64  `json:"confidence_score"`
	Filename         *string  `json:"filename,omitempty"`
	ProcessingTimeMs *float64 `json:"processing_time,omitempty"`
}

// HasFilename reports whether the service echoed a filename
func (r *PredictionResult) HasFilename() bool {
	return r.Filename != nil && *r.Filename != ""
}

// HasProcessingTime reports whether the service returned a processing time
func (r *PredictionResult) HasProcessingTime() bool {
	return r.ProcessingTimeMs != nil
}

// RequestState is the lifecycle state of one analysis attempt
type RequestState int

const (
	StateIdle RequestState = iota
	StateInFlight
	StateSucceeded
	StateFailed
	StateTimedOut
)

// String returns string representation of request state
func (s RequestState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInFlight:
		return "in_flight"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// IsTerminal reports whether the state ends an attempt
func (s RequestState) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateTimedOut
}
