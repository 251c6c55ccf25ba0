package classifier

import (
	"net/url"
	"time"
)

// Config holds classification endpoint configuration
type Config struct {
	// Endpoint is the full URL the image is posted to
	Endpoint string `json:"endpoint"`

	// Timeout for the whole request
	Timeout time.Duration `json:"timeout"`

	// UserAgent sent with each request
	UserAgent string `json:"user_agent"`

	// MaxResponseBytes bounds how much of a response body is read
	MaxResponseBytes int64 `json:"max_response_bytes"`
}

// DefaultTimeout is the client-side request timeout
const DefaultTimeout = 30 * time.Second

// DefaultConfig returns a default endpoint configuration
func DefaultConfig() *Config {
	return &Config{
		Endpoint:         "http://localhost:8000/predict",
		Timeout:          DefaultTimeout,
		UserAgent:        "diagscan",
		MaxResponseBytes: 1 << 20,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return NewConfigurationError("endpoint", "endpoint URL is required")
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return NewConfigurationError("endpoint", "invalid endpoint URL: "+err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewConfigurationError("endpoint", "endpoint URL must use http or https")
	}
	if u.Host == "" {
		return NewConfigurationError("endpoint", "endpoint URL must include a host")
	}

	if c.Timeout <= 0 {
		return NewConfigurationError("timeout", "timeout must be positive")
	}

	if c.MaxResponseBytes <= 0 {
		return NewConfigurationError("max_response_bytes", "max response bytes must be positive")
	}

	return nil
}
