package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yildizm/DiagScan/internal/common"
	"github.com/yildizm/DiagScan/internal/logger"
)

// UploadField is the multipart form field carrying the image
const UploadField = "file"

// maxErrorBody bounds how much of a non-success body is kept
const maxErrorBody = 4096

// Transport performs one classification call
type Transport interface {
	Classify(ctx context.Context, artifact *common.InputArtifact) (*common.PredictionResult, error)
}

// Client posts artifacts to the classification endpoint
type Client struct {
	config *Config
	http   *resty.Client
	tracer trace.Tracer
	log    *logger.Logger
}

// New creates a new classification client
func New(config *Config, log *logger.Logger) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	log = log.WithComponent("classifier")

	httpClient := resty.New().
		SetTimeout(config.Timeout).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Accept", "application/json").
		SetLogger(&restyLogger{log: log})

	return &Client{
		config: config,
		http:   httpClient,
		tracer: otel.Tracer("github.com/yildizm/DiagScan/classifier"),
		log:    log,
	}, nil
}

// Endpoint returns the configured endpoint URL
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// Classify uploads the artifact as multipart field "file" and validates the
// response against the prediction contract.
func (c *Client) Classify(ctx context.Context, artifact *common.InputArtifact) (*common.PredictionResult, error) {
	if artifact == nil {
		return nil, NewInternalError("no artifact to classify", nil)
	}

	ctx, span := c.tracer.Start(ctx, "classify", trace.WithAttributes(
		attribute.String("file.name", artifact.Name),
		attribute.String("file.media_type", artifact.MediaType),
		attribute.Int64("file.size", artifact.Size),
	))
	defer span.End()

	result, err := c.classify(ctx, artifact)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Kind(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("prediction.class", result.PredictedClass),
		attribute.Float64("prediction.confidence", result.ConfidenceScore),
	)
	return result, nil
}

func (c *Client) classify(ctx context.Context, artifact *common.InputArtifact) (*common.PredictionResult, error) {
	c.log.DebugWithFields("uploading image", []logger.Field{
		logger.F("endpoint", c.config.Endpoint),
		logger.F("name", artifact.Name),
		logger.F("size", artifact.Size),
	})

	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetMultipartField(UploadField, artifact.Name, artifact.MediaType, bytes.NewReader(artifact.Data)).
		Post(c.config.Endpoint)
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			_ = resp.RawBody().Close()
		}
		return nil, classifyTransportError(ctx, err)
	}

	body := resp.RawBody()
	defer func() { _ = body.Close() }()

	status := resp.StatusCode()
	c.log.DebugWithFields("response received", []logger.Field{
		logger.F("status", status),
		logger.Duration(resp.Time()),
	})

	if status < 200 || status > 299 {
		data, readErr := io.ReadAll(io.LimitReader(body, maxErrorBody))
		if readErr != nil {
			return nil, NewHTTPStatusError(status, "")
		}
		return nil, NewHTTPStatusError(status, string(data))
	}

	data, err := io.ReadAll(io.LimitReader(body, c.config.MaxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	return ParsePrediction(data)
}

// classifyTransportError separates timeouts from other transport failures
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewTimeoutError("request timed out", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError("request timed out", err)
	}

	if errors.Is(err, context.Canceled) {
		return NewNetworkError("request cancelled", err)
	}

	return NewNetworkError(fmt.Sprintf("request failed: %v", err), err)
}

// restyLogger routes resty's internal logging through the component logger
type restyLogger struct {
	log *logger.Logger
}

func (l *restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Debug("resty: "+format, v...)
}

func (l *restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Debug("resty: "+format, v...)
}

func (l *restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug("resty: "+format, v...)
}
