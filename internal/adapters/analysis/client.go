// Package analysis calls the analysis service's batch endpoint once per
// session with the accumulated visual-preference metrics.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/pkg/logger"
	"github.com/okian/neurolens/pkg/metrics"
)

const maxErrorBody = 512

// Client posts raw metrics to /api/analyze.
type Client struct {
	url     string
	http    *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout bounds each call. Zero leaves the call unbounded.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d >= 0 {
			cl.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// NewClient creates a client for the batch endpoint URL.
func NewClient(batchURL string, opts ...Option) *Client {
	c := &Client{
		url:    batchURL,
		http:   &http.Client{},
		logger: logger.Get().Named("analysis"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze submits payload and decodes the structured report.
func (c *Client) Analyze(ctx context.Context, payload map[string]float64) (*model.BatchReport, error) {
	start := time.Now()
	report, err := c.analyze(ctx, payload)
	metrics.RecordBatchLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordBatchError()
		c.logger.Warn(ctx, "batch analysis failed", logger.String("url", c.url), logger.Error(err))
		return nil, err
	}
	return report, nil
}

func (c *Client) analyze(ctx context.Context, payload map[string]float64) (*model.BatchReport, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", c.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %s: %s", ErrStatus, resp.Status, bytes.TrimSpace(body))
	}

	var out model.BatchReport
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &out, nil
}
