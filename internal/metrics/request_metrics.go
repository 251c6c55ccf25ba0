package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RequestMetrics provides metrics collection for classification attempts
type RequestMetrics struct {
	attemptsCounter  metric.Int64Counter
	successCounter   metric.Int64Counter
	failureCounter   metric.Int64Counter
	latencyHistogram metric.Float64Histogram
	inFlightGauge    metric.Int64UpDownCounter
	surface          attribute.KeyValue
	summary          *Summary
}

// NewRequestMetrics creates a collector on the global meter provider
func NewRequestMetrics(surface string) (*RequestMetrics, error) {
	return NewRequestMetricsWithMeter(otel.Meter("diagscan-requests"), surface)
}

// NewRequestMetricsWithMeter creates a collector on the given meter
func NewRequestMetricsWithMeter(meter metric.Meter, surface string) (*RequestMetrics, error) {
	attemptsCounter, err := meter.Int64Counter(
		"diagscan.requests.started",
		metric.WithDescription("Total number of analysis attempts started"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	successCounter, err := meter.Int64Counter(
		"diagscan.requests.succeeded",
		metric.WithDescription("Total number of attempts that produced a prediction"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	failureCounter, err := meter.Int64Counter(
		"diagscan.requests.failed",
		metric.WithDescription("Total number of attempts that failed or timed out"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	latencyHistogram, err := meter.Float64Histogram(
		"diagscan.request.duration",
		metric.WithDescription("Duration of analysis attempts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	inFlightGauge, err := meter.Int64UpDownCounter(
		"diagscan.requests.in_flight",
		metric.WithDescription("Number of attempts currently in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &RequestMetrics{
		attemptsCounter:  attemptsCounter,
		successCounter:   successCounter,
		failureCounter:   failureCounter,
		latencyHistogram: latencyHistogram,
		inFlightGauge:    inFlightGauge,
		surface:          attribute.String("surface", surface),
		summary:          NewSummary(),
	}, nil
}

// RecordStarted records a new attempt
func (rm *RequestMetrics) RecordStarted(ctx context.Context, mediaType string) {
	if rm == nil {
		return
	}
	rm.attemptsCounter.Add(ctx, 1,
		metric.WithAttributes(rm.surface, attribute.String("media_type", mediaType)),
	)
	rm.inFlightGauge.Add(ctx, 1, metric.WithAttributes(rm.surface))
	rm.summary.addStarted()
}

// RecordSucceeded records an attempt that produced a prediction
func (rm *RequestMetrics) RecordSucceeded(ctx context.Context, predictedClass string, duration time.Duration) {
	if rm == nil {
		return
	}
	rm.successCounter.Add(ctx, 1,
		metric.WithAttributes(rm.surface, attribute.String("prediction.class", predictedClass)),
	)
	rm.latencyHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(rm.surface, attribute.String("status", "succeeded")),
	)
	rm.inFlightGauge.Add(ctx, -1, metric.WithAttributes(rm.surface))
	rm.summary.addSucceeded(duration)
}

// RecordFailed records a failed attempt. errorKind is one of the classifier
// error types.
func (rm *RequestMetrics) RecordFailed(ctx context.Context, errorKind string, duration time.Duration) {
	if rm == nil {
		return
	}
	rm.failureCounter.Add(ctx, 1,
		metric.WithAttributes(rm.surface, attribute.String("error.type", errorKind)),
	)
	rm.latencyHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(rm.surface, attribute.String("status", "failed")),
	)
	rm.inFlightGauge.Add(ctx, -1, metric.WithAttributes(rm.surface))
	rm.summary.addFailed(errorKind, duration)
}

// RecordAbandoned records an attempt that was invalidated before completing
func (rm *RequestMetrics) RecordAbandoned(ctx context.Context) {
	if rm == nil {
		return
	}
	rm.inFlightGauge.Add(ctx, -1, metric.WithAttributes(rm.surface))
	rm.summary.addAbandoned()
}

// Summary returns the in-process totals since creation
func (rm *RequestMetrics) Summary() Snapshot {
	if rm == nil {
		return Snapshot{}
	}
	return rm.summary.Snapshot()
}
