// Package devserver is a local stand-in for the classification service. It
// accepts the same multipart upload the client sends and answers with the same
// response contract, deriving a deterministic class from the image pixels.
package devserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/yildizm/DiagScan/internal/classifier"
	"github.com/yildizm/DiagScan/internal/logger"
)

const (
	// DefaultMaxBytes matches the client's upload limit
	DefaultMaxBytes int64 = 10 << 20

	sampleSize = 16
)

// Options configures the dev server
type Options struct {
	Classes  []string
	MaxBytes int64
	Mode     string // gin mode: debug|release|test
	Logger   *logger.Logger
	Now      func() time.Time
}

// Server serves POST /predict and GET /health
type Server struct {
	opts   Options
	router *gin.Engine
	log    *logger.Logger
}

// PredictionResponse is the success body of POST /predict
type PredictionResponse struct {
	PredictedClass  string  `json:"predicted_class"`
	ConfidenceScore float64 `json:"confidence_score"`
	Filename        string  `json:"filename"`
	ProcessingTime  float64 `json:"processing_time"`
}

// New builds the router
func New(opts Options) (*Server, error) {
	if len(opts.Classes) == 0 {
		return nil, fmt.Errorf("at least one class is required")
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{opts: opts, log: opts.Logger}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "classes": opts.Classes})
	})
	router.POST("/predict", s.handlePredict)

	s.router = router
	return s, nil
}

// Handler exposes the router for httptest and custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dev classification endpoint listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down dev server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return <-errCh
}

func (s *Server) handlePredict(c *gin.Context) {
	start := s.opts.Now()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxBytes+(1<<20))
	header, err := c.FormFile(classifier.UploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}
	if header.Size > s.opts.MaxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read upload"})
		return
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"error": fmt.Sprintf("unsupported media type %s", detected.String()),
		})
		return
	}

	class, confidence := s.classify(data)
	elapsed := s.opts.Now().Sub(start)

	s.log.Debug("classified %s (%s) as %s", header.Filename, detected.String(), class)

	c.JSON(http.StatusOK, PredictionResponse{
		PredictedClass:  class,
		ConfidenceScore: confidence,
		Filename:        header.Filename,
		ProcessingTime:  float64(elapsed.Microseconds()) / 1000,
	})
}

// classify maps mean luminance onto the configured classes. Images the
// decoder cannot read (webp) fall back to a checksum of the raw bytes.
func (s *Server) classify(data []byte) (string, float64) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		h := fnv.New32a()
		_, _ = h.Write(data)
		sum := h.Sum32()
		idx := int(sum % uint32(len(s.opts.Classes)))
		return s.opts.Classes[idx], 0.5 + float64(sum%50)/100
	}

	mean, spread := luminance(img)
	idx := int(mean / 256 * float64(len(s.opts.Classes)))
	if idx >= len(s.opts.Classes) {
		idx = len(s.opts.Classes) - 1
	}

	confidence := 0.55 + 0.4*math.Min(spread/128, 1)
	return s.opts.Classes[idx], math.Round(confidence*1000) / 1000
}

// luminance returns the mean and standard deviation of a downsampled
// grayscale copy of img
func luminance(img image.Image) (float64, float64) {
	small := imaging.Grayscale(imaging.Resize(img, sampleSize, sampleSize, imaging.Box))

	n := float64(sampleSize * sampleSize)
	var sum, sumSq float64
	for i := 0; i < len(small.Pix); i += 4 {
		v := float64(small.Pix[i])
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.F("method", c.Request.Method),
			logger.F("path", c.Request.URL.Path),
			logger.F("status", c.Writer.Status()),
			logger.F("latency_ms", time.Since(start).Milliseconds()),
			logger.F("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.F("error", c.Errors.String()))
		}
		s.log.InfoWithFields("request", fields)
	}
}
