package cli

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yildizm/DiagScan/internal/classifier"
	"github.com/yildizm/DiagScan/internal/common"
	"github.com/yildizm/DiagScan/internal/config"
	"github.com/yildizm/DiagScan/internal/devserver"
	"github.com/yildizm/DiagScan/internal/formatter"
	"github.com/yildizm/DiagScan/internal/validator"
)

// syncBuffer is a bytes.Buffer safe for the controller goroutine to write to
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newDevEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := devserver.New(devserver.Options{
		Classes: []string{"normal", "benign", "malignant"},
		Mode:    gin.TestMode,
	})
	if err != nil {
		t.Fatalf("Failed to create dev server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func testConfig(endpoint string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Endpoint.URL = endpoint
	cfg.Endpoint.Timeout = 5 * time.Second
	return cfg
}

func writePNG(t *testing.T, dir, name string, gray uint8) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.NRGBA{R: gray, G: gray, B: gray, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func TestAnalyzeFileSuccessWithReport(t *testing.T) {
	ts := newDevEndpoint(t)
	dir := t.TempDir()
	path := writePNG(t, dir, "scan.png", 255)
	reportDir := filepath.Join(dir, "reports")

	var out, errOut syncBuffer
	err := analyzeFile(testConfig(ts.URL+"/predict"), analyzeOptions{
		Path:       path,
		SaveReport: true,
		ReportDir:  reportDir,
		Format:     "json",
		Now:        fixedNow,
	}, &out, &errOut)
	if err != nil {
		t.Fatalf("analyzeFile failed: %v (stderr: %s)", err, errOut.String())
	}

	if !strings.Contains(out.String(), `"predicted_class": "malignant"`) {
		t.Errorf("Expected JSON result for malignant, got: %s", out.String())
	}
	if !strings.Contains(errOut.String(), "Analyzing scan.png") {
		t.Errorf("Expected progress line, got: %s", errOut.String())
	}

	data, err := os.ReadFile(filepath.Join(reportDir, "diagnosis-report-2026-03-14.txt"))
	if err != nil {
		t.Fatalf("Expected report file: %v", err)
	}
	if !strings.Contains(string(data), "malignant") {
		t.Errorf("Expected report to name the predicted class, got:\n%s", data)
	}
}

func TestAnalyzeFileRejectsBeforeNetwork(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer ts.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	var out, errOut syncBuffer
	err := analyzeFile(testConfig(ts.URL), analyzeOptions{Path: path, Format: "text", Now: fixedNow}, &out, &errOut)
	if !validator.IsUnsupportedType(err) {
		t.Fatalf("Expected unsupported type error, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("Expected no request for a rejected file, got %d", hits.Load())
	}
	if !strings.Contains(errOut.String(), "application/pdf") {
		t.Errorf("Expected rejection message naming the type, got: %s", errOut.String())
	}
}

func TestAnalyzeFileServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	dir := t.TempDir()
	path := writePNG(t, dir, "scan.png", 10)
	reportDir := filepath.Join(dir, "reports")

	var out, errOut syncBuffer
	err := analyzeFile(testConfig(ts.URL), analyzeOptions{
		Path:       path,
		SaveReport: true,
		ReportDir:  reportDir,
		Format:     "text",
		Now:        fixedNow,
	}, &out, &errOut)
	if !errors.Is(err, errAnalysisFailed) {
		t.Fatalf("Expected errAnalysisFailed, got %v", err)
	}
	if !strings.Contains(errOut.String(), "status 503") || !strings.Contains(errOut.String(), "model not loaded") {
		t.Errorf("Expected status and body in failure message, got: %s", errOut.String())
	}
	if out.String() != "" {
		t.Errorf("Expected no result output, got: %s", out.String())
	}
	if _, err := os.Stat(reportDir); !os.IsNotExist(err) {
		t.Error("Expected no report after a failed analysis")
	}
}

func TestAnalyzeFileUnknownFormat(t *testing.T) {
	var out, errOut syncBuffer
	err := analyzeFile(testConfig("http://localhost:1/predict"), analyzeOptions{Path: "x.png", Format: "xml"}, &out, &errOut)
	if err == nil {
		t.Fatal("Expected error for unsupported output format")
	}
}

func TestLineSink(t *testing.T) {
	var out, errOut syncBuffer
	sink := newLineSink(&out, &errOut, formatter.NewJSON())

	sink.Label("scan\x1b[31m.png")
	sink.OnBeforeStart()
	if strings.Contains(errOut.String(), "\x1b[31m") {
		t.Errorf("Expected escape sequences stripped from label, got %q", errOut.String())
	}

	sink.OnSuccess(&common.PredictionResult{PredictedClass: "benign", ConfidenceScore: 0.8347})
	if !strings.HasSuffix(out.String(), "}\n") {
		t.Errorf("Expected result terminated by newline, got %q", out.String())
	}
	if !strings.Contains(out.String(), `"confidence_percent": 83`) {
		t.Errorf("Expected confidence percent 83, got %s", out.String())
	}
	if sink.Failure() != "" {
		t.Errorf("Expected no failure, got %q", sink.Failure())
	}

	sink.OnFailure(classifier.GenericFailureMessage)
	if sink.Failure() != classifier.GenericFailureMessage {
		t.Errorf("Expected failure to be recorded, got %q", sink.Failure())
	}
	if !strings.Contains(errOut.String(), classifier.GenericFailureMessage) {
		t.Errorf("Expected failure line, got %s", errOut.String())
	}
}

func TestGetGlobalConfigDefaults(t *testing.T) {
	old := globalConfig
	globalConfig = nil
	defer func() { globalConfig = old }()

	cfg := GetGlobalConfig()
	if cfg.Endpoint.Timeout != classifier.DefaultTimeout {
		t.Errorf("Expected default timeout %v, got %v", classifier.DefaultTimeout, cfg.Endpoint.Timeout)
	}
}

type failingFormatter struct{}

func (failingFormatter) Format(*common.PredictionResult) ([]byte, error) {
	return nil, errors.New("template broken")
}

func TestLineSinkFormatErrorFailsAttempt(t *testing.T) {
	ts := newDevEndpoint(t)
	dir := t.TempDir()

	var out, errOut syncBuffer
	sink := newLineSink(&out, &errOut, failingFormatter{})
	sess, err := newSession(testConfig(ts.URL+"/predict"), "analyze", sink, nil)
	if err != nil {
		t.Fatalf("newSession failed: %v", err)
	}

	artifact, err := sess.validator.LoadFile(writePNG(t, dir, "scan.png", 128), "")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	sink.Label(artifact.Name)
	if _, started := sess.controller.Start(artifact); !started {
		t.Fatal("Expected the analysis to start")
	}
	sess.controller.Wait()

	if got := sess.controller.State(); got != common.StateFailed {
		t.Errorf("Expected failed state after a formatting error, got %v", got)
	}
	if sink.Failure() != classifier.GenericFailureMessage {
		t.Errorf("Expected generic failure recorded, got %q", sink.Failure())
	}
	if strings.Count(errOut.String(), classifier.GenericFailureMessage) != 1 {
		t.Errorf("Expected one failure line, got: %s", errOut.String())
	}
	if out.String() != "" {
		t.Errorf("Expected no result output, got: %s", out.String())
	}
}
