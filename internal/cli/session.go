package cli

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/yildizm/DiagScan/internal/classifier"
	"github.com/yildizm/DiagScan/internal/common"
	"github.com/yildizm/DiagScan/internal/config"
	"github.com/yildizm/DiagScan/internal/controller"
	"github.com/yildizm/DiagScan/internal/emoji"
	"github.com/yildizm/DiagScan/internal/formatter"
	"github.com/yildizm/DiagScan/internal/logger"
	"github.com/yildizm/DiagScan/internal/metrics"
	"github.com/yildizm/DiagScan/internal/selection"
	"github.com/yildizm/DiagScan/internal/validator"
)

// session bundles what every surface needs to run analyses
type session struct {
	cfg        *config.Config
	validator  *validator.Validator
	selection  *selection.State
	client     *classifier.Client
	controller *controller.Controller
	metrics    *metrics.RequestMetrics
	log        *logger.Logger
}

// newSession wires validator, transport and controller for one surface
func newSession(cfg *config.Config, surface string, sink controller.Sink, log *logger.Logger) (*session, error) {
	if log == nil {
		log = newLogger(surface)
	}

	client, err := classifier.New(&classifier.Config{
		Endpoint:         cfg.Endpoint.URL,
		Timeout:          cfg.Endpoint.Timeout,
		UserAgent:        cfg.Endpoint.UserAgent,
		MaxResponseBytes: cfg.Endpoint.MaxResponseBytes,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint configuration: %w", err)
	}

	requestMetrics, err := metrics.NewRequestMetrics(surface)
	if err != nil {
		return nil, fmt.Errorf("failed to create request metrics: %w", err)
	}

	sel := selection.New()
	ctrl := controller.New(client, sink, controller.Options{
		Timeout:      cfg.Endpoint.Timeout,
		AbortOnReset: cfg.Controller.AbortOnReset,
		Selection:    sel,
		Metrics:      requestMetrics,
		Logger:       log,
	})

	return &session{
		cfg:        cfg,
		validator:  validator.New(cfg.Upload.AllowedTypes, cfg.Upload.MaxBytes),
		selection:  sel,
		client:     client,
		controller: ctrl,
		metrics:    requestMetrics,
		log:        log,
	}, nil
}

// lineSink prints lifecycle events as lines, for analyze and watch
type lineSink struct {
	out    io.Writer
	errOut io.Writer
	format formatter.Formatter

	mu      sync.Mutex
	current string
	failure string
}

func newLineSink(out, errOut io.Writer, format formatter.Formatter) *lineSink {
	return &lineSink{out: out, errOut: errOut, format: format}
}

// Label names the artifact the next OnBeforeStart refers to
func (s *lineSink) Label(name string) {
	s.mu.Lock()
	s.current = name
	s.mu.Unlock()
}

func (s *lineSink) OnBeforeStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = ""
	fmt.Fprintf(s.errOut, "%s Analyzing %s...\n", emoji.GetEmoji("microscope"), formatter.SanitizeText(s.current))
}

// OnSuccess prints the formatted result. A result that cannot be formatted
// panics so the controller records the attempt as failed.
func (s *lineSink) OnSuccess(result *common.PredictionResult) {
	data, err := s.format.Format(result)
	if err != nil {
		panic(fmt.Errorf("format result: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	_, _ = s.out.Write(data)
}

func (s *lineSink) OnFailure(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = message
	fmt.Fprintf(s.errOut, "%s %s\n", emoji.GetEmoji("error"), formatter.SanitizeText(message))
}

// Failure returns the message of the last failed attempt, if any
func (s *lineSink) Failure() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// printSummary writes the session totals of a long-running surface
func printSummary(w io.Writer, snap metrics.Snapshot) {
	if snap.Started == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s Session summary: %d started, %d succeeded, %d failed",
		emoji.GetEmoji("info"), snap.Started, snap.Succeeded, snap.Failed)
	if snap.Abandoned > 0 {
		fmt.Fprintf(w, ", %d abandoned", snap.Abandoned)
	}
	fmt.Fprintln(w)

	if snap.Latency.Count > 0 {
		fmt.Fprintf(w, "   Latency: avg %s, p50 %s, p95 %s, max %s\n",
			snap.Latency.Avg.Round(time.Millisecond),
			snap.Latency.P50.Round(time.Millisecond),
			snap.Latency.P95.Round(time.Millisecond),
			snap.Latency.Max.Round(time.Millisecond))
	}

	kinds := make([]string, 0, len(snap.ByKind))
	for kind := range snap.ByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "   %s: %d\n", kind, snap.ByKind[kind])
	}
}
