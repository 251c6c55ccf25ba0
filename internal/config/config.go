package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the complete application configuration
type Config struct {
	Version    string           `yaml:"version" json:"version"`
	Endpoint   EndpointConfig   `yaml:"endpoint" json:"endpoint"`
	Upload     UploadConfig     `yaml:"upload" json:"upload"`
	Controller ControllerConfig `yaml:"controller" json:"controller"`
	Report     ReportConfig     `yaml:"report" json:"report"`
	Output     OutputConfig     `yaml:"output" json:"output"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// EndpointConfig configures the remote classification service
type EndpointConfig struct {
	URL              string        `yaml:"url" json:"url"`                               // full predict URL
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`                       // per-attempt timeout
	UserAgent        string        `yaml:"user_agent" json:"user_agent"`                 // User-Agent header
	MaxResponseBytes int64         `yaml:"max_response_bytes" json:"max_response_bytes"` // response body cap
}

// UploadConfig configures input validation
type UploadConfig struct {
	MaxBytes     int64    `yaml:"max_bytes" json:"max_bytes"`
	AllowedTypes []string `yaml:"allowed_types" json:"allowed_types"`
}

// ControllerConfig configures the request lifecycle
type ControllerConfig struct {
	AbortOnReset bool `yaml:"abort_on_reset" json:"abort_on_reset"`
}

// ReportConfig configures report export
type ReportConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// OutputConfig configures output formatting and display
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" json:"default_format"` // text|json|markdown
	ColorMode     string `yaml:"color_mode" json:"color_mode"`         // auto|always|never
	Verbose       bool   `yaml:"verbose" json:"verbose"`
	Theme         string `yaml:"theme" json:"theme"` // default|high-contrast|minimal
	Emoji         bool   `yaml:"emoji" json:"emoji"`
}

// TelemetryConfig configures tracing
type TelemetryConfig struct {
	Trace bool `yaml:"trace" json:"trace"` // export spans to stderr
}

// ServerConfig configures the development classification endpoint
type ServerConfig struct {
	Address string   `yaml:"address" json:"address"`
	Mode    string   `yaml:"mode" json:"mode"` // debug|release|test
	Classes []string `yaml:"classes" json:"classes"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Endpoint: EndpointConfig{
			URL:              "http://localhost:8000/predict",
			Timeout:          30 * time.Second,
			UserAgent:        "diagscan",
			MaxResponseBytes: 1 << 20,
		},
		Upload: UploadConfig{
			MaxBytes:     10 * 1024 * 1024,
			AllowedTypes: []string{"image/jpeg", "image/jpg", "image/png", "image/gif"},
		},
		Controller: ControllerConfig{
			AbortOnReset: false,
		},
		Report: ReportConfig{
			Directory: ".",
		},
		Output: OutputConfig{
			DefaultFormat: "text",
			ColorMode:     "auto",
			Verbose:       false,
			Theme:         "default",
			Emoji:         true,
		},
		Telemetry: TelemetryConfig{
			Trace: false,
		},
		Server: ServerConfig{
			Address: ":8000",
			Mode:    "release",
			Classes: []string{"normal", "benign", "malignant"},
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateEndpointConfig(); err != nil {
		return err
	}
	if err := c.validateUploadConfig(); err != nil {
		return err
	}
	if err := c.validateOutputConfig(); err != nil {
		return err
	}
	if err := c.validateServerConfig(); err != nil {
		return err
	}
	return nil
}

// validateEndpointConfig validates endpoint-related configuration
func (c *Config) validateEndpointConfig() error {
	if c.Endpoint.URL == "" {
		return fmt.Errorf("endpoint url is required")
	}
	u, err := url.Parse(c.Endpoint.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid endpoint url: %s (must be an absolute http or https URL)", c.Endpoint.URL)
	}
	if c.Endpoint.Timeout <= 0 {
		return fmt.Errorf("endpoint timeout must be positive")
	}
	if c.Endpoint.MaxResponseBytes < 1 {
		return fmt.Errorf("max_response_bytes must be greater than 0")
	}
	return nil
}

// validateUploadConfig validates upload-related configuration
func (c *Config) validateUploadConfig() error {
	if c.Upload.MaxBytes < 1 {
		return fmt.Errorf("upload max_bytes must be greater than 0")
	}
	if len(c.Upload.AllowedTypes) == 0 {
		return fmt.Errorf("upload allowed_types must not be empty")
	}
	return nil
}

// validateOutputConfig validates output-related configuration
func (c *Config) validateOutputConfig() error {
	if c.Output.DefaultFormat != "" {
		validFormats := map[string]bool{
			"json":     true,
			"text":     true,
			"markdown": true,
		}
		if !validFormats[c.Output.DefaultFormat] {
			return fmt.Errorf("invalid output format: %s (must be one of: json, text, markdown)", c.Output.DefaultFormat)
		}
	}
	if c.Output.ColorMode != "" {
		validColorModes := map[string]bool{
			"auto":   true,
			"always": true,
			"never":  true,
		}
		if !validColorModes[c.Output.ColorMode] {
			return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
		}
	}
	if c.Output.Theme != "" {
		validThemes := map[string]bool{
			"default":       true,
			"high-contrast": true,
			"minimal":       true,
		}
		if !validThemes[c.Output.Theme] {
			return fmt.Errorf("invalid theme: %s (must be one of: default, high-contrast, minimal)", c.Output.Theme)
		}
	}
	return nil
}

// validateServerConfig validates dev server configuration
func (c *Config) validateServerConfig() error {
	if c.Server.Mode != "" {
		validModes := map[string]bool{
			"debug":   true,
			"release": true,
			"test":    true,
		}
		if !validModes[c.Server.Mode] {
			return fmt.Errorf("invalid server mode: %s (must be one of: debug, release, test)", c.Server.Mode)
		}
	}
	if len(c.Server.Classes) == 0 {
		return fmt.Errorf("server classes must not be empty")
	}
	return nil
}
