package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runConfigCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	oldCfgFile, oldNoEmoji := cfgFile, noEmoji
	t.Cleanup(func() { cfgFile, noEmoji = oldCfgFile, oldNoEmoji })

	root := NewRootCommand("dev", "none", "unknown")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--no-emoji"))

	err := root.Execute()
	return out.String(), err
}

func TestConfigValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagscan.yaml")
	content := `endpoint:
  url: "http://scanner.internal:9000/predict"
  timeout: 12s
controller:
  abort_on_reset: true
output:
  default_format: "json"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	out, err := runConfigCommand(t, "config", "validate", "--config", path)
	if err != nil {
		t.Fatalf("config validate failed: %v\n%s", err, out)
	}

	for _, want := range []string{
		"Configuration is valid",
		"Source: " + path,
		"Endpoint: http://scanner.internal:9000/predict",
		"Timeout: 12s",
		"Abort On Reset: true",
		"Output Format: json",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestConfigValidateCommandRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagscan.yaml")
	if err := os.WriteFile(path, []byte("output:\n  color_mode: \"sometimes\"\n"), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	out, err := runConfigCommand(t, "config", "validate", "--config", path)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(out, "Configuration validation failed") || !strings.Contains(out, "invalid color mode") {
		t.Errorf("Expected failure details, got:\n%s", out)
	}
}

func TestConfigInitThenShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "diagscan.yaml")

	out, err := runConfigCommand(t, "config", "init", "--minimal", "--output", path)
	if err != nil {
		t.Fatalf("config init failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration file created at: "+path) {
		t.Errorf("Unexpected init output:\n%s", out)
	}

	if _, err := runConfigCommand(t, "config", "init", "--output", path); err == nil {
		t.Error("Expected init to refuse an existing file without --force")
	}

	out, err = runConfigCommand(t, "config", "show", "--format", "json", "--config", path)
	if err != nil {
		t.Fatalf("config show failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "http://localhost:8000/predict") {
		t.Errorf("Expected endpoint in JSON output:\n%s", out)
	}

	if _, err := runConfigCommand(t, "config", "show", "--format", "toml", "--config", path); err == nil {
		t.Error("Expected error for unsupported show format")
	}
}

func TestConfigPathCommand(t *testing.T) {
	out, err := runConfigCommand(t, "config", "path")
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if !strings.Contains(out, ".diagscan.yaml") || !strings.Contains(out, "DIAGSCAN_") {
		t.Errorf("Unexpected path output:\n%s", out)
	}
}
