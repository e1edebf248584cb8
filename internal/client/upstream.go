// Package client provides the HTTP client for the private upstream REST API.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"bff-gateway/internal/config"
	"bff-gateway/internal/metrics"
	"bff-gateway/internal/model"
)

// maxResponseBytes caps how much of an upstream body is buffered.
const maxResponseBytes = 10 * 1024 * 1024

// ErrResponseTooLarge is returned when an upstream body exceeds maxResponseBytes.
var ErrResponseTooLarge = fmt.Errorf("upstream response too large (limit %d bytes)", maxResponseBytes)

// UpstreamClient sends requests to the upstream REST API.
type UpstreamClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &UpstreamClient{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		},
		logger:  logger.With("component", "upstream_client"),
		metrics: m,
	}
}

// Do executes req and buffers the whole response body. Transport failures
// and non-2xx answers are returned as *model.UpstreamError.
func (c *UpstreamClient) Do(ctx context.Context, req *model.UpstreamRequest) (*model.UpstreamResult, error) {
	httpReq, err := newHTTPRequest(ctx, req)
	if err != nil {
		return nil, &model.UpstreamError{Err: err}
	}

	c.logger.Debug("upstream request",
		"method", httpReq.Method,
		"host", httpReq.URL.Host,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start).Seconds()

	method := metrics.NormalizeMethod(httpReq.Method)
	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
	}

	if err != nil {
		c.logger.Debug("upstream transport failure", "host", httpReq.URL.Host, "err", stripURL(err))
		return nil, &model.UpstreamError{Err: fmt.Errorf("upstream request: %w", stripURL(err))}
	}
	defer func() { _ = resp.Body.Close() }()

	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &model.UpstreamError{Err: fmt.Errorf("read upstream response: %w", stripURL(err))}
	}
	if len(body) > maxResponseBytes {
		return nil, &model.UpstreamError{Err: ErrResponseTooLarge}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &model.UpstreamError{StatusCode: resp.StatusCode, Body: body}
	}

	return &model.UpstreamResult{StatusCode: resp.StatusCode, Body: body}, nil
}

// newHTTPRequest builds the *http.Request, encoding query values individually.
func newHTTPRequest(ctx context.Context, req *model.UpstreamRequest) (*http.Request, error) {
	target := req.URL
	if len(req.Query) > 0 {
		q := make(url.Values, len(req.Query))
		for k, v := range req.Query {
			q.Set(k, v)
		}
		target += "?" + q.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// stripURL drops the *url.Error wrapper, whose text quotes the private
// upstream URL including session tokens.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
