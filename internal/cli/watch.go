package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/yildizm/DiagScan/internal/classifier"
	"github.com/yildizm/DiagScan/internal/common"
	"github.com/yildizm/DiagScan/internal/config"
	"github.com/yildizm/DiagScan/internal/controller"
	"github.com/yildizm/DiagScan/internal/emoji"
	"github.com/yildizm/DiagScan/internal/formatter"
	"github.com/yildizm/DiagScan/internal/logger"
	"github.com/yildizm/DiagScan/internal/report"
)

const defaultSettleDelay = 500 * time.Millisecond

var (
	watchReport bool
	watchSettle time.Duration
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <directory>",
		Short: "Analyze images as they appear in a directory",
		Long: `Monitor a directory and submit each new image for classification.

Uses file system notifications to detect new files. A file is submitted once
it has stopped changing for the settle delay. Only one analysis runs at a time:
files that settle while an analysis is in progress are queued and retried
after another settle delay.
Press Ctrl+C to stop watching.

Examples:
  diagscan watch ./incoming
  diagscan watch --report --settle 1s ./incoming`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().BoolVarP(&watchReport, "report", "r", false, "save a text report for each successful analysis")
	cmd.Flags().DurationVar(&watchSettle, "settle", defaultSettleDelay, "quiet period before a new file is submitted")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := validateWatchDirPath(args[0]); err != nil {
		return fmt.Errorf("invalid directory: %w", err)
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if isVerbose() {
		fmt.Fprintf(os.Stderr, "Watching directory: %s\n", args[0])
		fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop...\n\n")
	}

	return watchDirectory(ctx, GetGlobalConfig(), args[0], watchOptions{
		Format:     getOutputFormat(),
		Color:      useColor(),
		SaveReport: watchReport,
		Settle:     watchSettle,
	}, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

type watchOptions struct {
	Format     string
	Color      bool
	SaveReport bool
	Settle     time.Duration
}

// dirWatcher debounces file events and feeds settled paths to the controller
type dirWatcher struct {
	sess   *session
	sink   *lineSink
	errOut io.Writer
	settle time.Duration
	ready  chan string
	done   chan struct{}

	mu        sync.Mutex
	pending   map[string]*time.Timer
	queued    map[string]bool
	submitted map[string]bool
}

// watchDirectory runs until ctx is cancelled or the watcher fails
func watchDirectory(ctx context.Context, cfg *config.Config, dir string, opts watchOptions, out, errOut io.Writer) error {
	format, err := formatter.New(opts.Format, opts.Color)
	if err != nil {
		return err
	}

	lines := newLineSink(out, errOut, format)
	var sink controller.Sink = lines
	if opts.SaveReport {
		sink = &reportingSink{
			Sink:   lines,
			dir:    cfg.Report.Directory,
			errOut: errOut,
			now:    time.Now,
			log:    newLogger("report"),
		}
	}

	sess, err := newSession(cfg, "watch", sink, nil)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer cleanupWatcher(watcher)

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	w := newDirWatcher(sess, lines, errOut, opts.Settle)
	defer w.stop()

	err = w.loop(ctx, watcher)
	sess.controller.Wait()
	printSummary(errOut, sess.metrics.Summary())
	return err
}

func newDirWatcher(sess *session, sink *lineSink, errOut io.Writer, settle time.Duration) *dirWatcher {
	if settle <= 0 {
		settle = defaultSettleDelay
	}
	return &dirWatcher{
		sess:      sess,
		sink:      sink,
		errOut:    errOut,
		settle:    settle,
		ready:     make(chan string, 16),
		done:      make(chan struct{}),
		pending:   make(map[string]*time.Timer),
		queued:    make(map[string]bool),
		submitted: make(map[string]bool),
	}
}

func (w *dirWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			w.handleEvent(event)

		case path := <-w.ready:
			w.submit(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.sess.log.Warn("watcher error: %v", err)
		}
	}
}

// handleEvent restarts the settle timer of a created or written file
func (w *dirWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitted[event.Name] {
		return
	}
	w.schedule(event.Name)
}

// schedule (re)starts the settle timer of path. Callers hold mu.
func (w *dirWatcher) schedule(path string) {
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}

	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

// submit validates a settled file and starts an analysis unless one is running
func (w *dirWatcher) submit(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		w.mu.Lock()
		delete(w.queued, path)
		w.mu.Unlock()
		return
	}

	if w.sess.controller.Busy() {
		w.requeue(path)
		return
	}

	artifact, err := w.sess.validator.LoadFile(path, "")
	if err != nil {
		fmt.Fprintf(w.errOut, "%s Skipping %s: %s\n",
			emoji.GetEmoji("warning"), formatter.SanitizeText(filepath.Base(path)), formatter.SanitizeText(err.Error()))
		w.markSubmitted(path)
		return
	}

	w.sess.selection.Accept(artifact)
	w.sink.Label(artifact.Name)
	if _, started := w.sess.controller.Start(w.sess.selection.Current()); !started {
		w.requeue(path)
		return
	}
	w.markSubmitted(path)
}

// requeue retries path after another settle delay, warning only the first time
func (w *dirWatcher) requeue(path string) {
	w.mu.Lock()
	first := !w.queued[path]
	w.queued[path] = true
	w.schedule(path)
	w.mu.Unlock()

	if first {
		fmt.Fprintf(w.errOut, "%s Analysis in progress, queued %s\n",
			emoji.GetEmoji("warning"), formatter.SanitizeText(filepath.Base(path)))
	}
}

func (w *dirWatcher) markSubmitted(path string) {
	w.mu.Lock()
	delete(w.queued, path)
	w.submitted[path] = true
	w.mu.Unlock()
}

func (w *dirWatcher) stop() {
	close(w.done)

	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// reportingSink saves a report after every successful analysis
type reportingSink struct {
	controller.Sink
	dir    string
	errOut io.Writer
	now    func() time.Time
	log    *logger.Logger
}

func (s *reportingSink) OnSuccess(result *common.PredictionResult) {
	s.Sink.OnSuccess(result)

	path, err := report.Save(s.dir, result, s.now())
	if err != nil {
		s.log.Error("failed to save report: %v", err)
		fmt.Fprintf(s.errOut, "%s %s\n", emoji.GetEmoji("error"), classifier.GenericFailureMessage)
		return
	}
	fmt.Fprintf(s.errOut, "%s Report saved to %s\n", emoji.GetEmoji("report"), path)
}

// cleanupWatcher safely closes watcher with error logging
func cleanupWatcher(watcher *fsnotify.Watcher) {
	if err := watcher.Close(); err != nil && isVerbose() {
		fmt.Fprintf(os.Stderr, "Warning: failed to close watcher: %v\n", err)
	}
}

// validateWatchDirPath validates that a path is an existing directory
func validateWatchDirPath(path string) error {
	// Check for empty path
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path")
	}

	info, err := os.Stat(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	return nil
}
