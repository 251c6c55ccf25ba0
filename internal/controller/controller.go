package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yildizm/DiagScan/internal/classifier"
	"github.com/yildizm/DiagScan/internal/common"
	"github.com/yildizm/DiagScan/internal/logger"
	"github.com/yildizm/DiagScan/internal/metrics"
	"github.com/yildizm/DiagScan/internal/selection"
)

// Sink receives lifecycle notifications for one presentation surface.
// Exactly one of OnSuccess or OnFailure follows each OnBeforeStart.
type Sink interface {
	OnBeforeStart()
	OnSuccess(result *common.PredictionResult)
	OnFailure(message string)
}

// Options configures a Controller
type Options struct {
	// Timeout bounds each attempt; zero means classifier.DefaultTimeout
	Timeout time.Duration

	// AbortOnReset cancels an in-flight attempt when Reset is called
	AbortOnReset bool

	// Selection is cleared by Reset when set
	Selection *selection.State

	Metrics *metrics.RequestMetrics
	Logger  *logger.Logger
}

// Controller owns the request lifecycle of a single surface
type Controller struct {
	transport classifier.Transport
	sink      Sink
	timeout   time.Duration
	abort     bool
	selection *selection.State
	metrics   *metrics.RequestMetrics
	log       *logger.Logger

	mu         sync.Mutex
	state      common.RequestState
	busy       bool
	delivering bool
	attempt    uuid.UUID
	cancel     context.CancelFunc
	hidden     bool
	lastResult *common.PredictionResult
	lastErr    error

	wg sync.WaitGroup
}

type outcome struct {
	result *common.PredictionResult
	err    error
}

// New creates a controller posting through transport and notifying sink
func New(transport classifier.Transport, sink Sink, opts Options) *Controller {
	if opts.Timeout <= 0 {
		opts.Timeout = classifier.DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	return &Controller{
		transport: transport,
		sink:      sink,
		timeout:   opts.Timeout,
		abort:     opts.AbortOnReset,
		selection: opts.Selection,
		metrics:   opts.Metrics,
		log:       opts.Logger.WithComponent("controller"),
		state:     common.StateIdle,
	}
}

// Start begins an attempt for artifact. It is a no-op returning false when
// artifact is nil or another attempt is in flight.
func (c *Controller) Start(artifact *common.InputArtifact) (uuid.UUID, bool) {
	if artifact == nil {
		return uuid.Nil, false
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		c.log.Debug("analysis already in progress, ignoring start")
		return uuid.Nil, false
	}

	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())

	c.busy = true
	c.state = common.StateInFlight
	c.attempt = id
	c.cancel = cancel
	c.lastResult = nil
	c.lastErr = nil
	c.wg.Add(1)
	c.mu.Unlock()

	c.log.InfoWithFields("analysis started", []logger.Field{
		logger.F("attempt", id.String()),
		logger.F("name", artifact.Name),
		logger.F("size", artifact.Size),
	})
	c.metrics.RecordStarted(ctx, artifact.MediaType)

	if c.sink != nil {
		c.safeCall("OnBeforeStart", c.sink.OnBeforeStart)
	}

	go c.run(ctx, cancel, id, artifact)

	return id, true
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, id uuid.UUID, artifact *common.InputArtifact) {
	defer c.wg.Done()
	defer cancel()

	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			c.complete(id, outcome{err: classifier.NewInternalError(fmt.Sprintf("attempt panicked: %v", r), nil)}, time.Since(started))
		}
	}()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: classifier.NewInternalError(fmt.Sprintf("transport panicked: %v", r), nil)}
			}
		}()
		result, err := c.transport.Classify(ctx, artifact)
		done <- outcome{result: result, err: err}
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	var out outcome
	select {
	case out = <-done:
	case <-timer.C:
		cancel()
		out = outcome{err: classifier.NewTimeoutError(fmt.Sprintf("no response within %s", c.timeout), context.DeadlineExceeded)}
	case <-ctx.Done():
		out = outcome{err: classifier.NewNetworkError("request cancelled", ctx.Err())}
	}

	c.complete(id, out, time.Since(started))
}

// complete applies an outcome if id is still the active attempt
func (c *Controller) complete(id uuid.UUID, out outcome, elapsed time.Duration) {
	if out.err == nil && out.result == nil {
		out.err = classifier.NewInternalError("transport returned no result", nil)
	}

	c.mu.Lock()
	if !c.busy || c.attempt != id {
		c.mu.Unlock()
		c.log.DebugWithFields("discarding stale completion", []logger.Field{
			logger.F("attempt", id.String()),
		})
		return
	}

	// The attempt stays busy until the sink has been told, so a new Start
	// cannot interleave its callbacks with this outcome.
	c.delivering = true
	c.cancel = nil

	if out.err != nil {
		c.lastErr = out.err
		if classifier.IsTimeoutError(out.err) {
			c.state = common.StateTimedOut
		} else {
			c.state = common.StateFailed
		}
	} else {
		c.lastResult = out.result
		c.state = common.StateSucceeded
	}
	c.mu.Unlock()
	defer c.settle(id)

	ctx := context.Background()

	if out.err != nil {
		c.log.WarnWithFields("analysis failed", []logger.Field{
			logger.F("attempt", id.String()),
			logger.F("kind", classifier.Kind(out.err)),
			logger.Error(out.err),
			logger.Duration(elapsed),
		})
		c.metrics.RecordFailed(ctx, classifier.Kind(out.err), elapsed)
		c.fail(classifier.DisplayMessage(out.err))
		return
	}

	c.log.InfoWithFields("analysis succeeded", []logger.Field{
		logger.F("attempt", id.String()),
		logger.F("class", out.result.PredictedClass),
		logger.Duration(elapsed),
	})
	c.metrics.RecordSucceeded(ctx, out.result.PredictedClass, elapsed)

	if c.sink == nil {
		return
	}

	if !c.safeCall("OnSuccess", func() { c.sink.OnSuccess(out.result) }) {
		c.mu.Lock()
		c.state = common.StateFailed
		c.lastErr = classifier.NewInternalError("rendering the result failed", nil)
		c.mu.Unlock()
		c.fail(classifier.GenericFailureMessage)
	}
}

// settle releases the busy flag once the outcome of id has been delivered
func (c *Controller) settle(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt != id {
		return
	}
	c.busy = false
	c.delivering = false
	c.attempt = uuid.Nil
}

func (c *Controller) fail(message string) {
	if c.sink == nil {
		return
	}
	c.safeCall("OnFailure", func() { c.sink.OnFailure(message) })
}

// safeCall runs a sink callback and reports whether it returned normally
func (c *Controller) safeCall(name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("sink %s panicked: %v", name, r)
			ok = false
		}
	}()
	fn()
	return true
}

// Reset discards the last outcome and clears the selection. An in-flight
// attempt keeps running unless AbortOnReset was set.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.lastResult = nil
	c.lastErr = nil

	abandoned := false
	switch {
	case c.busy && !c.delivering && c.abort:
		c.cancel()
		c.busy = false
		c.attempt = uuid.Nil
		c.cancel = nil
		c.state = common.StateIdle
		abandoned = true
	case !c.busy || c.delivering:
		c.state = common.StateIdle
	}
	c.mu.Unlock()

	if abandoned {
		c.log.Info("in-flight analysis aborted by reset")
		c.metrics.RecordAbandoned(context.Background())
	}

	if c.selection != nil {
		c.selection.Clear()
	}
}

// SetVisible records surface visibility. Returning to visible after being
// hidden while an attempt is in flight forces Idle and abandons the attempt.
func (c *Controller) SetVisible(visible bool) {
	c.mu.Lock()
	if !visible {
		c.hidden = true
		c.mu.Unlock()
		return
	}

	wasHidden := c.hidden
	c.hidden = false

	if !wasHidden || !c.busy || c.delivering {
		c.mu.Unlock()
		return
	}

	id := c.attempt
	c.cancel()
	c.busy = false
	c.attempt = uuid.Nil
	c.cancel = nil
	c.state = common.StateIdle
	c.mu.Unlock()

	c.log.InfoWithFields("surface restored with stale attempt, returning to idle", []logger.Field{
		logger.F("attempt", id.String()),
	})
	c.metrics.RecordAbandoned(context.Background())
}

// State returns the current request state
func (c *Controller) State() common.RequestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether an attempt is in flight or its outcome is still
// being delivered
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// LastResult returns the result of the last successful attempt
func (c *Controller) LastResult() *common.PredictionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult
}

// LastError returns the error of the last failed attempt
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Wait blocks until no attempt goroutine is running
func (c *Controller) Wait() {
	c.wg.Wait()
}
