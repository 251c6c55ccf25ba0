package validator

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/yildizm/DiagScan/internal/common"
)

// MaxUploadBytes is the largest payload accepted for upload (10 MiB)
const MaxUploadBytes int64 = 10 * 1024 * 1024

// DefaultAllowedTypes lists the declared media types accepted for upload.
// Matching is exact and case-sensitive.
var DefaultAllowedTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif"}

// Kind categorizes a validation failure
type Kind string

const (
	// UnsupportedType indicates the declared media type is outside the allow-set
	UnsupportedType Kind = "unsupported_type"

	// TooLarge indicates the payload exceeds the size limit
	TooLarge Kind = "too_large"
)

// ValidationError represents a rejected candidate
type ValidationError struct {
	Kind      Kind   `json:"kind"`
	MediaType string `json:"media_type,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Limit     int64  `json:"limit,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	switch e.Kind {
	case UnsupportedType:
		return fmt.Sprintf("unsupported file type %q: please select a JPEG, PNG or GIF image", e.MediaType)
	case TooLarge:
		return fmt.Sprintf("file is too large (%d bytes): maximum size is %d bytes", e.Size, e.Limit)
	default:
		return fmt.Sprintf("validation failed: %s", e.Kind)
	}
}

// Is matches validation errors by kind
func (e *ValidationError) Is(target error) bool {
	if ve, ok := target.(*ValidationError); ok {
		return e.Kind == ve.Kind
	}
	return false
}

// IsUnsupportedType checks if an error is an unsupported type rejection
func IsUnsupportedType(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Kind == UnsupportedType
}

// IsTooLarge checks if an error is a size rejection
func IsTooLarge(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Kind == TooLarge
}

// Validator gates candidates before they reach the selection state
type Validator struct {
	allowed  map[string]bool
	maxBytes int64
}

// New creates a validator with the given allow-set and size limit.
// Empty or non-positive arguments fall back to the defaults.
func New(allowedTypes []string, maxBytes int64) *Validator {
	if len(allowedTypes) == 0 {
		allowedTypes = DefaultAllowedTypes
	}
	if maxBytes <= 0 {
		maxBytes = MaxUploadBytes
	}

	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = true
	}

	return &Validator{allowed: allowed, maxBytes: maxBytes}
}

// Default returns a validator with the built-in allow-set and limit
func Default() *Validator {
	return New(nil, 0)
}

// Validate checks the candidate and builds an artifact from it.
// The type rule is checked before the size rule.
func (v *Validator) Validate(c common.Candidate) (*common.InputArtifact, error) {
	if !v.allowed[c.MediaType] {
		return nil, &ValidationError{Kind: UnsupportedType, MediaType: c.MediaType}
	}

	if c.Size > v.maxBytes {
		return nil, &ValidationError{Kind: TooLarge, Size: c.Size, Limit: v.maxBytes}
	}

	return &common.InputArtifact{
		Name:      c.Name,
		MediaType: c.MediaType,
		Size:      c.Size,
		Data:      c.Data,
	}, nil
}

// Validate checks a candidate against the default rules
func Validate(c common.Candidate) (*common.InputArtifact, error) {
	return Default().Validate(c)
}

// DeclaredType derives the declared media type of a file from its extension,
// the same way a browser fills in File.type. Content is never inspected.
func DeclaredType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return ""
	}
	t := mime.TypeByExtension(ext)
	if i := strings.Index(t, ";"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// CandidateFromFile builds a candidate from a file on disk. A non-empty
// mediaType overrides the extension-derived declared type.
//
// The size rule is checked against the stat size before the bytes are read,
// so oversized files are never loaded.
func (v *Validator) CandidateFromFile(path, mediaType string) (common.Candidate, error) {
	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		return common.Candidate{}, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return common.Candidate{}, fmt.Errorf("%s is a directory, not a file", path)
	}

	if mediaType == "" {
		mediaType = DeclaredType(cleanPath)
	}

	c := common.Candidate{
		Name:      filepath.Base(cleanPath),
		MediaType: mediaType,
		Size:      info.Size(),
	}
	if !v.allowed[c.MediaType] || c.Size > v.maxBytes {
		return c, nil
	}

	// #nosec G304 - path is supplied by the user selecting a file
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return common.Candidate{}, fmt.Errorf("failed to read file: %w", err)
	}
	c.Data = data
	c.Size = int64(len(data))

	return c, nil
}

// LoadFile builds a candidate from disk and validates it
func (v *Validator) LoadFile(path, mediaType string) (*common.InputArtifact, error) {
	c, err := v.CandidateFromFile(path, mediaType)
	if err != nil {
		return nil, err
	}
	return v.Validate(c)
}
