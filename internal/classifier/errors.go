package classifier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/yildizm/DiagScan/internal/validator"
)

// GenericFailureMessage is shown for failures that have no specific message
const GenericFailureMessage = "An unexpected error occurred. Please try again."

// ErrorType represents the type of request failure
type ErrorType string

const (
	// ErrTypeHTTPStatus indicates the service answered outside the 2xx range
	ErrTypeHTTPStatus ErrorType = "http_status"

	// ErrTypeSchema indicates a success response with an invalid body
	ErrTypeSchema ErrorType = "schema"

	// ErrTypeNetwork indicates a transport level failure
	ErrTypeNetwork ErrorType = "network"

	// ErrTypeTimeout indicates the request did not finish in time
	ErrTypeTimeout ErrorType = "timeout"

	// ErrTypeInternal indicates internal client errors
	ErrTypeInternal ErrorType = "internal"
)

// RequestError represents a failed classification request
type RequestError struct {
	// Type categorizes the error
	Type ErrorType `json:"type"`

	// Message provides human-readable error description
	Message string `json:"message"`

	// StatusCode for HTTP status failures
	StatusCode int `json:"status_code,omitempty"`

	// Body is the best-effort response body of an HTTP status failure
	Body string `json:"body,omitempty"`

	// Field names the missing or invalid field of a schema failure
	Field string `json:"field,omitempty"`

	// Underlying error that caused this error
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *RequestError) Error() string {
	parts := []string{fmt.Sprintf("type=%s", e.Type)}

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%s", e.Cause.Error()))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying error
func (e *RequestError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error type
func (e *RequestError) Is(target error) bool {
	if re, ok := target.(*RequestError); ok {
		return e.Type == re.Type
	}
	return false
}

// ConfigurationError represents configuration-related errors
type ConfigurationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("classifier configuration error, field '%s': %s", e.Field, e.Message)
}

// Error constructors

// NewHTTPStatusError creates an error for a non-success status. An empty
// body falls back to a message carrying the status code.
func NewHTTPStatusError(statusCode int, body string) *RequestError {
	message := strings.TrimSpace(body)
	if message == "" {
		message = fmt.Sprintf("server returned status %d", statusCode)
	}
	return &RequestError{
		Type:       ErrTypeHTTPStatus,
		Message:    message,
		StatusCode: statusCode,
		Body:       body,
	}
}

// NewSchemaError creates an error naming the missing or invalid field
func NewSchemaError(field, message string) *RequestError {
	return &RequestError{
		Type:    ErrTypeSchema,
		Message: message,
		Field:   field,
	}
}

// NewNetworkError creates a transport failure error
func NewNetworkError(message string, cause error) *RequestError {
	return &RequestError{
		Type:    ErrTypeNetwork,
		Message: message,
		Cause:   cause,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(message string, cause error) *RequestError {
	return &RequestError{
		Type:    ErrTypeTimeout,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *RequestError {
	return &RequestError{
		Type:    ErrTypeInternal,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}

func hasType(err error, errType ErrorType) bool {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Type == errType
	}
	return false
}

// IsHTTPStatusError checks if an error is an HTTP status failure
func IsHTTPStatusError(err error) bool {
	return hasType(err, ErrTypeHTTPStatus)
}

// IsSchemaError checks if an error is a response schema failure
func IsSchemaError(err error) bool {
	return hasType(err, ErrTypeSchema)
}

// IsNetworkError checks if an error is a transport failure
func IsNetworkError(err error) bool {
	return hasType(err, ErrTypeNetwork)
}

// IsTimeoutError checks if an error is a timeout
func IsTimeoutError(err error) bool {
	return hasType(err, ErrTypeTimeout)
}

// maxDisplayBody bounds how much of an error body is shown to the user
const maxDisplayBody = 200

// DisplayMessage maps any error to the message shown to the user
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}

	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}

	var re *RequestError
	if !errors.As(err, &re) {
		return GenericFailureMessage
	}

	switch re.Type {
	case ErrTypeHTTPStatus:
		body := strings.TrimSpace(re.Body)
		if body == "" {
			return fmt.Sprintf("Analysis failed: server returned status %d.", re.StatusCode)
		}
		// Truncate by display cells, never inside a multi-byte character
		body = ansi.Truncate(body, maxDisplayBody, "...")
		return fmt.Sprintf("Analysis failed (status %d): %s", re.StatusCode, body)
	case ErrTypeSchema:
		return fmt.Sprintf("Invalid response from server: missing or invalid field '%s'.", re.Field)
	case ErrTypeNetwork:
		return "Network error: unable to reach the analysis service. Please check your connection and try again."
	case ErrTypeTimeout:
		return "The analysis request timed out. Please try again."
	default:
		return GenericFailureMessage
	}
}

// Kind returns the short failure classification used for metrics and logs
func Kind(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return string(re.Type)
	}
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		return string(ve.Kind)
	}
	return string(ErrTypeInternal)
}
