// Package httpfabric implements the shared outbound-request fabric of spec
// §4.1: breaker → bucket → retry → transport, in that order, so an open
// breaker fails before a token is consumed and the breaker sees one outcome
// per logical call, never retry-amplified call volume. It generalises the
// teacher's per-client *http.Client + http.NewRequestWithContext idiom
// (internal/noaa/weather_client.go) into one reusable dependency every
// provider client wraps.
package httpfabric

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ngmaloney/weatherd/internal/breaker"
	"github.com/ngmaloney/weatherd/internal/ingestlog"
	"github.com/ngmaloney/weatherd/internal/metrics"
	"github.com/ngmaloney/weatherd/internal/ratelimit"
	"github.com/ngmaloney/weatherd/internal/werrors"
)

const maxAttempts = 3

// Client executes requests to one named upstream under the fairness,
// politeness, and failure-isolation policies of spec §4.1.
type Client struct {
	Upstream   string
	bucket     *ratelimit.Bucket
	breaker    *breaker.Breaker
	transport  *http.Client
	registry   *metrics.Registry
	logger     *zap.Logger
}

// New builds a fabric client for one upstream, sharing the process-wide
// bucket/breaker/registry instances passed in by the caller (see
// cmd/weatherd for construction).
func New(upstream string, bucket *ratelimit.Bucket, br *breaker.Breaker, registry *metrics.Registry, logger *zap.Logger, timeout time.Duration) *Client {
	return &Client{
		Upstream:  upstream,
		bucket:    bucket,
		breaker:   br,
		registry:  registry,
		logger:    logger,
		transport: &http.Client{Timeout: timeout},
	}
}

// Result is a successful response's parsed parts.
type Result struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Do validates and executes one logical request: pass through the breaker,
// acquire a token, retry with backoff inside, record metrics and (if a
// run is bound via ctx) an ingest event, exactly once per call.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Result, error) {
	if url == "" {
		return nil, werrors.New(werrors.Validation, "empty_url", "url must be absolute")
	}

	var result *Result
	breakerErr := c.breaker.Do(ctx, func(ctx context.Context) error {
		if err := c.bucket.Acquire(ctx); err != nil {
			return werrors.Wrap(werrors.Unexpected, "rate_limit_wait_cancelled", err)
		}
		r, err := c.doWithRetry(ctx, method, url, headers, body)
		result = r
		return err
	})

	success := breakerErr == nil
	c.registry.Record(c.Upstream, success)

	if run, ok := ingestlog.FromContext(ctx); ok {
		c.logEvent(ctx, run, url, result, breakerErr)
	}

	if breakerErr != nil {
		return nil, breakerErr
	}
	return result, nil
}

func (c *Client) logEvent(ctx context.Context, run *ingestlog.Run, url string, result *Result, err error) {
	var status *int
	var headers []byte
	if result != nil {
		s := result.Status
		status = &s
	}
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	run.Event(ctx, c.Upstream, url, status, nil, errMsg, headers)
}

func (c *Client) doWithRetry(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Result, error) {
	backoff := time.Second

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		result, err := c.doOnce(ctx, method, url, headers, body)
		elapsed := time.Since(start)

		if err == nil {
			return result, nil
		}

		werr, _ := werrors.As(err)
		retryable := werr != nil && werr.Kind == werrors.UpstreamTransient
		if !retryable || attempt == maxAttempts {
			return result, err
		}

		sleep := backoff
		if result != nil {
			if retryAfter, ok := retryAfterSeconds(result.Headers); ok {
				sleep = time.Duration(retryAfter) * time.Second
			}
		}
		c.logger.Debug("retrying upstream call",
			zap.String("upstream", c.Upstream),
			zap.Int("attempt", attempt),
			zap.Duration("elapsed", elapsed),
			zap.Duration("sleep", sleep))

		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return result, ctx.Err()
		}
		backoff *= 2
	}
	return nil, werrors.New(werrors.Unexpected, "retry_loop_exhausted", "unreachable")
}

func (c *Client) doOnce(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Result, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, werrors.Wrap(werrors.Validation, "invalid_request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, werrors.Wrap(werrors.UpstreamTransient, "transport_error", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, werrors.Wrap(werrors.UpstreamTransient, "read_body_failed", err)
	}

	result := &Result{Status: resp.StatusCode, Headers: resp.Header, Body: respBody}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return result, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return result, werrors.New(werrors.UpstreamTransient, "upstream_transient_status",
			fmt.Sprintf("status %d", resp.StatusCode))
	}
	return result, werrors.New(werrors.UpstreamPermanent, "upstream_permanent_status",
		fmt.Sprintf("status %d", resp.StatusCode))
}

func retryAfterSeconds(h http.Header) (int, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
