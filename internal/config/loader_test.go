package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("NewLoader returned nil")
	}
	if len(loader.configPaths) != 3 {
		t.Errorf("Expected 3 config paths, got %d", len(loader.configPaths))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	loader := NewLoaderWithPaths(filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := loader.LoadConfig("")
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}
	if cfg.Endpoint.URL != "http://localhost:8000/predict" {
		t.Errorf("Expected default endpoint, got %s", cfg.Endpoint.URL)
	}
	if len(loader.LoadedFiles()) != 0 {
		t.Errorf("Expected no loaded files, got %v", loader.LoadedFiles())
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	configPath := writeConfig(t, t.TempDir(), "test-config.yaml", `version: "1.0"
endpoint:
  url: "https://classifier.example.com/predict"
  timeout: 45s
controller:
  abort_on_reset: true
output:
  default_format: "json"
  verbose: true
`)

	loader := NewLoader()
	cfg, err := loader.LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config from file: %v", err)
	}

	if cfg.Endpoint.URL != "https://classifier.example.com/predict" {
		t.Errorf("Expected endpoint from file, got %s", cfg.Endpoint.URL)
	}
	if cfg.Endpoint.Timeout != 45*time.Second {
		t.Errorf("Expected timeout 45s, got %v", cfg.Endpoint.Timeout)
	}
	if !cfg.Controller.AbortOnReset {
		t.Errorf("Expected abort_on_reset to be true")
	}
	if cfg.Output.DefaultFormat != "json" {
		t.Errorf("Expected output format json, got %s", cfg.Output.DefaultFormat)
	}
	if !cfg.Output.Verbose {
		t.Errorf("Expected verbose to be true")
	}

	// Keys absent from the file keep their defaults
	if !cfg.Output.Emoji {
		t.Errorf("Expected emoji to remain true")
	}
	if cfg.Upload.MaxBytes != 10485760 {
		t.Errorf("Expected max bytes to remain default, got %d", cfg.Upload.MaxBytes)
	}
}

func TestLoadConfigPriority(t *testing.T) {
	dir := t.TempDir()
	high := writeConfig(t, dir, "high.yaml", `endpoint:
  url: "http://high:8000/predict"
`)
	low := writeConfig(t, dir, "low.yaml", `endpoint:
  url: "http://low:8000/predict"
  timeout: 5s
report:
  directory: "/tmp/reports"
`)

	loader := NewLoaderWithPaths(high, low)
	cfg, err := loader.LoadConfig("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Endpoint.URL != "http://high:8000/predict" {
		t.Errorf("Expected higher priority url, got %s", cfg.Endpoint.URL)
	}
	if cfg.Endpoint.Timeout != 5*time.Second {
		t.Errorf("Expected timeout from lower priority file, got %v", cfg.Endpoint.Timeout)
	}
	if cfg.Report.Directory != "/tmp/reports" {
		t.Errorf("Expected report directory from lower priority file, got %s", cfg.Report.Directory)
	}

	loaded := loader.LoadedFiles()
	if len(loaded) != 2 || loaded[0] != low || loaded[1] != high {
		t.Errorf("Expected files applied low then high, got %v", loaded)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	configPath := writeConfig(t, t.TempDir(), "invalid-config.yaml", `endpoint:
  url: "http://localhost:8000/predict
  timeout: 30s
`)

	loader := NewLoader()
	if _, err := loader.LoadConfig(configPath); err == nil {
		t.Error("Expected error loading invalid YAML config, but got none")
	}
}

func TestLoadConfigFailsValidation(t *testing.T) {
	configPath := writeConfig(t, t.TempDir(), "bad.yaml", `output:
  color_mode: "sometimes"
`)

	loader := NewLoader()
	_, err := loader.LoadConfig(configPath)
	if err == nil {
		t.Fatal("Expected validation error, but got none")
	}
	if !strings.Contains(err.Error(), "invalid color mode") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DIAGSCAN_ENDPOINT_URL", "http://gpu-box:9000/predict")
	t.Setenv("DIAGSCAN_ENDPOINT_TIMEOUT", "10s")
	t.Setenv("DIAGSCAN_UPLOAD_MAX_BYTES", "2048")
	t.Setenv("DIAGSCAN_CONTROLLER_ABORT_ON_RESET", "true")
	t.Setenv("DIAGSCAN_OUTPUT_EMOJI", "false")
	t.Setenv("DIAGSCAN_UPLOAD_ALLOWED_TYPES", "image/png, image/gif ,")
	t.Setenv("DIAGSCAN_SERVER_CLASSES", "cat,dog")

	loader := NewLoader()
	cfg := DefaultConfig()

	if err := loader.applyEnvOverrides(cfg); err != nil {
		t.Fatalf("Failed to apply env overrides: %v", err)
	}

	if cfg.Endpoint.URL != "http://gpu-box:9000/predict" {
		t.Errorf("Expected endpoint override, got %s", cfg.Endpoint.URL)
	}
	if cfg.Endpoint.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", cfg.Endpoint.Timeout)
	}
	if cfg.Upload.MaxBytes != 2048 {
		t.Errorf("Expected max bytes 2048, got %d", cfg.Upload.MaxBytes)
	}
	if !cfg.Controller.AbortOnReset {
		t.Errorf("Expected abort_on_reset to be true")
	}
	if cfg.Output.Emoji {
		t.Errorf("Expected emoji to be false")
	}

	expectedTypes := []string{"image/png", "image/gif"}
	if len(cfg.Upload.AllowedTypes) != len(expectedTypes) {
		t.Fatalf("Expected %d allowed types, got %v", len(expectedTypes), cfg.Upload.AllowedTypes)
	}
	for i, want := range expectedTypes {
		if cfg.Upload.AllowedTypes[i] != want {
			t.Errorf("Expected allowed type %s, got %s", want, cfg.Upload.AllowedTypes[i])
		}
	}
	if len(cfg.Server.Classes) != 2 {
		t.Errorf("Expected 2 server classes, got %v", cfg.Server.Classes)
	}
}

func TestApplyEnvOverridesInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
		value  string
	}{
		{"invalid int", "DIAGSCAN_UPLOAD_MAX_BYTES", "not-a-number"},
		{"invalid bool", "DIAGSCAN_OUTPUT_VERBOSE", "not-a-bool"},
		{"invalid duration", "DIAGSCAN_ENDPOINT_TIMEOUT", "not-a-duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.value)

			loader := NewLoader()
			if err := loader.applyEnvOverrides(DefaultConfig()); err == nil {
				t.Error("Expected error for invalid env var value, but got none")
			}
		})
	}
}

func TestParseHelpers(t *testing.T) {
	var duration time.Duration
	if err := parseDuration("30s", &duration); err != nil || duration != 30*time.Second {
		t.Errorf("parseDuration(30s) = %v, %v", duration, err)
	}
	if err := parseDuration("invalid", &duration); err == nil {
		t.Error("Expected error for invalid duration, but got none")
	}

	var value int64
	if err := parseInt64("42", &value); err != nil || value != 42 {
		t.Errorf("parseInt64(42) = %d, %v", value, err)
	}
	if err := parseInt64("not-a-number", &value); err == nil {
		t.Error("Expected error for invalid int, but got none")
	}

	var flag bool
	if err := parseBool("true", &flag); err != nil || !flag {
		t.Errorf("parseBool(true) = %v, %v", flag, err)
	}
	if err := parseBool("not-a-bool", &flag); err == nil {
		t.Error("Expected error for invalid bool, but got none")
	}
}

func TestFileExists(t *testing.T) {
	if fileExists("/path/that/does/not/exist") {
		t.Error("Expected file to not exist, but fileExists returned true")
	}

	tempFile := filepath.Join(t.TempDir(), "test-file")
	if err := os.WriteFile(tempFile, []byte("test"), 0o600); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if !fileExists(tempFile) {
		t.Error("Expected file to exist, but fileExists returned false")
	}
}

func TestValidateConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
		errMsg  string
	}{
		{name: "valid yaml file", path: "config.yaml"},
		{name: "valid yml file", path: "config.yml"},
		{name: "path traversal attempt", path: "../../../etc/passwd", wantErr: true, errMsg: "path traversal not allowed"},
		{name: "non-yaml file", path: "config.txt", wantErr: true, errMsg: "config file must have .yaml or .yml extension"},
		{name: "system file access", path: "/etc/passwd.yaml", wantErr: true, errMsg: "access to system files not allowed"},
		{name: "proc filesystem access", path: "/proc/version.yaml", wantErr: true, errMsg: "access to system files not allowed"},
		{name: "relative path with valid extension", path: "./configs/app.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigPath(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Expected error message to contain '%s', got '%s'", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
