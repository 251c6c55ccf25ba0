package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.diagscan.yaml",               // Project-specific config (highest priority)
	"~/.config/diagscan/config.yaml", // User config
	"/etc/diagscan/config.yaml",      // System config (lowest priority)
}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
	loaded      []string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return NewLoaderWithPaths(ConfigPaths...)
}

// NewLoaderWithPaths creates a loader searching only the given paths,
// highest priority first
func NewLoaderWithPaths(paths ...string) *Loader {
	return &Loader{
		configPaths: paths,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables (DIAGSCAN_*)
// 3. ./.diagscan.yaml
// 4. ~/.config/diagscan/config.yaml
// 5. /etc/diagscan/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()
	l.loaded = nil

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
		l.loaded = append(l.loaded, customPath)
	} else {
		// Lowest priority first so later files win
		for _, path := range slices.Backward(l.configPaths) {
			expandedPath := expandPath(path)
			if !fileExists(expandedPath) {
				continue
			}
			if err := l.loadFromFile(config, expandedPath); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
				continue
			}
			l.loaded = append(l.loaded, expandedPath)
		}
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadedFiles returns the files applied by the last LoadConfig call, in the
// order they were applied
func (l *Loader) LoadedFiles() []string {
	return slices.Clone(l.loaded)
}

// loadFromFile loads a YAML file over the existing config. Keys absent from
// the file keep their current values.
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() or comes from ConfigPaths
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// Endpoint Config
		"DIAGSCAN_ENDPOINT_URL":                func(v string) error { config.Endpoint.URL = v; return nil },
		"DIAGSCAN_ENDPOINT_TIMEOUT":            func(v string) error { return parseDuration(v, &config.Endpoint.Timeout) },
		"DIAGSCAN_ENDPOINT_USER_AGENT":         func(v string) error { config.Endpoint.UserAgent = v; return nil },
		"DIAGSCAN_ENDPOINT_MAX_RESPONSE_BYTES": func(v string) error { return parseInt64(v, &config.Endpoint.MaxResponseBytes) },

		// Upload Config
		"DIAGSCAN_UPLOAD_MAX_BYTES": func(v string) error { return parseInt64(v, &config.Upload.MaxBytes) },

		// Controller Config
		"DIAGSCAN_CONTROLLER_ABORT_ON_RESET": func(v string) error { return parseBool(v, &config.Controller.AbortOnReset) },

		// Report Config
		"DIAGSCAN_REPORT_DIRECTORY": func(v string) error { config.Report.Directory = v; return nil },

		// Output Config
		"DIAGSCAN_OUTPUT_DEFAULT_FORMAT": func(v string) error { config.Output.DefaultFormat = v; return nil },
		"DIAGSCAN_OUTPUT_COLOR_MODE":     func(v string) error { config.Output.ColorMode = v; return nil },
		"DIAGSCAN_OUTPUT_VERBOSE":        func(v string) error { return parseBool(v, &config.Output.Verbose) },
		"DIAGSCAN_OUTPUT_THEME":          func(v string) error { config.Output.Theme = v; return nil },
		"DIAGSCAN_OUTPUT_EMOJI":          func(v string) error { return parseBool(v, &config.Output.Emoji) },

		// Telemetry Config
		"DIAGSCAN_TELEMETRY_TRACE": func(v string) error { return parseBool(v, &config.Telemetry.Trace) },

		// Server Config
		"DIAGSCAN_SERVER_ADDRESS": func(v string) error { config.Server.Address = v; return nil },
		"DIAGSCAN_SERVER_MODE":    func(v string) error { config.Server.Mode = v; return nil },
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	// Comma-separated lists
	if types := os.Getenv("DIAGSCAN_UPLOAD_ALLOWED_TYPES"); types != "" {
		config.Upload.AllowedTypes = splitList(types)
	}
	if classes := os.Getenv("DIAGSCAN_SERVER_CLASSES"); classes != "" {
		config.Server.Classes = splitList(classes)
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, expandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// Helper functions

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	// Clean the path to resolve any ".." components
	cleanPath := filepath.Clean(path)

	// Check for path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	// Ensure it's a YAML file
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	// Convert to absolute path for additional validation
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	// Basic sanity check - ensure it's not in sensitive system directories
	if strings.HasPrefix(absPath, "/etc/passwd") ||
		strings.HasPrefix(absPath, "/etc/shadow") ||
		strings.HasPrefix(absPath, "/proc/") ||
		strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// splitList splits a comma-separated list and trims each element
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Type conversion helpers

func parseInt64(s string, dst *int64) error {
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
