package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yildizm/DiagScan/internal/classifier"
	"github.com/yildizm/DiagScan/internal/common"
	"github.com/yildizm/DiagScan/internal/selection"
)

// fakeTransport answers after release is closed, ignoring cancellation, so a
// response can arrive after the controller has moved on.
type fakeTransport struct {
	result  *common.PredictionResult
	err     error
	panics  bool
	release chan struct{}
	calls   atomic.Int32
}

func (f *fakeTransport) Classify(ctx context.Context, artifact *common.InputArtifact) (*common.PredictionResult, error) {
	f.calls.Add(1)
	if f.panics {
		panic("transport exploded")
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

type recordingSink struct {
	mu       sync.Mutex
	events   []string
	results  []*common.PredictionResult
	messages []string
	panicOn  string
}

func (s *recordingSink) record(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) OnBeforeStart() {
	s.record("before")
}

func (s *recordingSink) OnSuccess(result *common.PredictionResult) {
	s.record("success")
	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()
	if s.panicOn == "success" {
		panic("render failed")
	}
}

func (s *recordingSink) OnFailure(message string) {
	s.record("failure")
	s.mu.Lock()
	s.messages = append(s.messages, message)
	s.mu.Unlock()
}

func (s *recordingSink) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *recordingSink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func testArtifact() *common.InputArtifact {
	return &common.InputArtifact{Name: "xray.jpg", MediaType: "image/jpeg", Size: 4, Data: []byte{1, 2, 3, 4}}
}

func testResult() *common.PredictionResult {
	return &common.PredictionResult{PredictedClass: "normal", ConfidenceScore: 0.8347}
}

func TestController_Success(t *testing.T) {
	transport := &fakeTransport{result: testResult()}
	sink := &recordingSink{}
	c := New(transport, sink, Options{})

	id, started := c.Start(testArtifact())
	require.True(t, started)
	assert.NotEqual(t, uuid.Nil, id)

	c.Wait()

	assert.Equal(t, []string{"before", "success"}, sink.Events())
	assert.Equal(t, common.StateSucceeded, c.State())
	assert.False(t, c.Busy())
	require.NotNil(t, c.LastResult())
	assert.Equal(t, "normal", c.LastResult().PredictedClass)
	assert.InDelta(t, 0.8347, c.LastResult().ConfidenceScore, 1e-9)
	assert.NoError(t, c.LastError())
}

func TestController_NilArtifactIsNoop(t *testing.T) {
	transport := &fakeTransport{result: testResult()}
	sink := &recordingSink{}
	c := New(transport, sink, Options{})

	id, started := c.Start(nil)
	assert.False(t, started)
	assert.Equal(t, uuid.Nil, id)
	assert.Equal(t, common.StateIdle, c.State())
	assert.Empty(t, sink.Events())
	assert.Equal(t, int32(0), transport.calls.Load())
}

func TestController_SecondStartWhileInFlightIsNoop(t *testing.T) {
	transport := &fakeTransport{result: testResult(), release: make(chan struct{})}
	sink := &recordingSink{}
	c := New(transport, sink, Options{})

	_, started := c.Start(testArtifact())
	require.True(t, started)
	assert.True(t, c.Busy())
	assert.Equal(t, common.StateInFlight, c.State())

	id, started := c.Start(testArtifact())
	assert.False(t, started)
	assert.Equal(t, uuid.Nil, id)

	close(transport.release)
	c.Wait()

	assert.Equal(t, []string{"before", "success"}, sink.Events())
	assert.Equal(t, int32(1), transport.calls.Load())
}

func TestController_LateResponseAfterTimeoutIsIgnored(t *testing.T) {
	transport := &fakeTransport{result: testResult(), release: make(chan struct{})}
	sink := &recordingSink{}
	c := New(transport, sink, Options{Timeout: 30 * time.Millisecond})

	_, started := c.Start(testArtifact())
	require.True(t, started)
	c.Wait()

	assert.Equal(t, common.StateTimedOut, c.State())
	assert.True(t, classifier.IsTimeoutError(c.LastError()))
	assert.Equal(t, []string{"before", "failure"}, sink.Events())
	assert.Contains(t, sink.Messages()[0], "timed out")

	close(transport.release)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, []string{"before", "failure"}, sink.Events())
	assert.Equal(t, common.StateTimedOut, c.State())
	assert.Nil(t, c.LastResult())
}

func TestController_Failures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		state    common.RequestState
		contains string
	}{
		{"schema", classifier.NewSchemaError(classifier.FieldPredictedClass, "missing"), common.StateFailed, "predicted_class"},
		{"http status", classifier.NewHTTPStatusError(503, "model loading"), common.StateFailed, "model loading"},
		{"network", classifier.NewNetworkError("refused", nil), common.StateFailed, "Network error"},
		{"transport timeout", classifier.NewTimeoutError("slow", nil), common.StateTimedOut, "timed out"},
		{"untyped", assert.AnError, common.StateFailed, classifier.GenericFailureMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			c := New(&fakeTransport{err: tt.err}, sink, Options{})

			c.Start(testArtifact())
			c.Wait()

			assert.Equal(t, tt.state, c.State())
			assert.Equal(t, []string{"before", "failure"}, sink.Events())
			assert.Contains(t, sink.Messages()[0], tt.contains)
			assert.Nil(t, c.LastResult())
			assert.False(t, c.Busy())
		})
	}
}

func TestController_NilResultWithoutError(t *testing.T) {
	sink := &recordingSink{}
	c := New(&fakeTransport{}, sink, Options{})

	c.Start(testArtifact())
	c.Wait()

	assert.Equal(t, common.StateFailed, c.State())
	assert.Equal(t, []string{classifier.GenericFailureMessage}, sink.Messages())
}

func TestController_VisibilityRecovery(t *testing.T) {
	transport := &fakeTransport{result: testResult(), release: make(chan struct{})}
	sink := &recordingSink{}
	c := New(transport, sink, Options{})

	c.Start(testArtifact())
	require.True(t, c.Busy())

	c.SetVisible(false)
	assert.True(t, c.Busy(), "hiding alone does not change state")

	c.SetVisible(true)
	assert.False(t, c.Busy())
	assert.Equal(t, common.StateIdle, c.State())

	close(transport.release)
	c.Wait()

	assert.Equal(t, []string{"before"}, sink.Events())
	assert.Equal(t, common.StateIdle, c.State())

	transport2 := &fakeTransport{result: testResult()}
	c.transport = transport2
	_, started := c.Start(testArtifact())
	assert.True(t, started)
	c.Wait()
	assert.Equal(t, common.StateSucceeded, c.State())
}

func TestController_VisibleWithoutHideKeepsAttempt(t *testing.T) {
	transport := &fakeTransport{result: testResult(), release: make(chan struct{})}
	sink := &recordingSink{}
	c := New(transport, sink, Options{})

	c.Start(testArtifact())
	c.SetVisible(true)
	assert.True(t, c.Busy())

	close(transport.release)
	c.Wait()
	assert.Equal(t, []string{"before", "success"}, sink.Events())
}

func TestController_ResetKeepsInFlightByDefault(t *testing.T) {
	sel := selection.New()
	sel.Accept(testArtifact())

	transport := &fakeTransport{result: testResult(), release: make(chan struct{})}
	sink := &recordingSink{}
	c := New(transport, sink, Options{Selection: sel})

	c.Start(sel.Current())
	c.Reset()

	assert.Nil(t, sel.Current())
	assert.True(t, c.Busy())
	assert.Equal(t, common.StateInFlight, c.State())

	close(transport.release)
	c.Wait()

	assert.Equal(t, []string{"before", "success"}, sink.Events())
	assert.Equal(t, common.StateSucceeded, c.State())
}

func TestController_ResetAborts(t *testing.T) {
	transport := &fakeTransport{result: testResult(), release: make(chan struct{})}
	sink := &recordingSink{}
	c := New(transport, sink, Options{AbortOnReset: true})

	c.Start(testArtifact())
	c.Reset()

	assert.False(t, c.Busy())
	assert.Equal(t, common.StateIdle, c.State())

	close(transport.release)
	c.Wait()

	assert.Equal(t, []string{"before"}, sink.Events())
	assert.Nil(t, c.LastResult())
}

func TestController_ResetClearsOutcome(t *testing.T) {
	sink := &recordingSink{}
	c := New(&fakeTransport{result: testResult()}, sink, Options{})

	c.Start(testArtifact())
	c.Wait()
	require.NotNil(t, c.LastResult())

	c.Reset()
	assert.Nil(t, c.LastResult())
	assert.NoError(t, c.LastError())
	assert.Equal(t, common.StateIdle, c.State())
}

func TestController_StartClearsPriorOutcome(t *testing.T) {
	transport := &fakeTransport{err: classifier.NewNetworkError("down", nil)}
	sink := &recordingSink{}
	c := New(transport, sink, Options{})

	c.Start(testArtifact())
	c.Wait()
	require.Error(t, c.LastError())

	transport.err = nil
	transport.result = testResult()
	transport.release = make(chan struct{})

	c.Start(testArtifact())
	assert.NoError(t, c.LastError())
	assert.Nil(t, c.LastResult())

	close(transport.release)
	c.Wait()
	assert.NotNil(t, c.LastResult())
}

func TestController_TransportPanic(t *testing.T) {
	sink := &recordingSink{}
	c := New(&fakeTransport{panics: true}, sink, Options{})

	assert.NotPanics(t, func() {
		c.Start(testArtifact())
		c.Wait()
	})

	assert.Equal(t, common.StateFailed, c.State())
	assert.Equal(t, []string{classifier.GenericFailureMessage}, sink.Messages())
	assert.False(t, c.Busy())
}

func TestController_SinkPanicBecomesFailure(t *testing.T) {
	sink := &recordingSink{panicOn: "success"}
	c := New(&fakeTransport{result: testResult()}, sink, Options{})

	assert.NotPanics(t, func() {
		c.Start(testArtifact())
		c.Wait()
	})

	assert.Equal(t, []string{"before", "success", "failure"}, sink.Events())
	assert.Equal(t, []string{classifier.GenericFailureMessage}, sink.Messages())
	assert.Equal(t, common.StateFailed, c.State())
}

func TestController_NilSink(t *testing.T) {
	c := New(&fakeTransport{result: testResult()}, nil, Options{})

	_, started := c.Start(testArtifact())
	require.True(t, started)
	c.Wait()
	assert.Equal(t, common.StateSucceeded, c.State())
}

// blockingSink holds OnSuccess open until release is closed
type blockingSink struct {
	recordingSink
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSink) OnSuccess(result *common.PredictionResult) {
	s.record("success-enter")
	close(s.entered)
	<-s.release
	s.record("success-exit")
}

func TestController_StaysBusyUntilOutcomeDelivered(t *testing.T) {
	sink := &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
	c := New(&fakeTransport{result: testResult()}, sink, Options{AbortOnReset: true})

	_, started := c.Start(testArtifact())
	require.True(t, started)

	select {
	case <-sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("OnSuccess was not called")
	}

	assert.True(t, c.Busy())
	assert.Equal(t, common.StateSucceeded, c.State())

	id, started := c.Start(testArtifact())
	assert.False(t, started, "a new attempt must wait for the previous outcome to be delivered")
	assert.Equal(t, uuid.Nil, id)

	// Settled attempts cannot be abandoned
	c.SetVisible(false)
	c.SetVisible(true)
	assert.True(t, c.Busy())

	close(sink.release)
	c.Wait()

	assert.False(t, c.Busy())
	assert.Equal(t, []string{"before", "success-enter", "success-exit"}, sink.Events())
	assert.Equal(t, common.StateSucceeded, c.State())
}
