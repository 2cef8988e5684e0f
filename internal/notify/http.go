package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// HeaderProvider supplies per-request headers.
type HeaderProvider func() map[string]string

// APIKeyHeader sends key as X-API-Key.
func APIKeyHeader(key string) HeaderProvider {
	return func() map[string]string { return map[string]string{"X-API-Key": key} }
}

// StatusError is a non-2xx answer from the SMS gateway.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sms gateway error: status=%d body=%s", e.Status, e.Body)
}

// HTTPSender posts SMS payloads to <base>/sms with fasthttp.
type HTTPSender struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type HTTPOption func(*HTTPSender)

func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPSender) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithHeaderProvider(h HeaderProvider) HTTPOption {
	return func(c *HTTPSender) { c.headers = h }
}

// WithRetry bounds Ping attempts.
func WithRetry(max int) HTTPOption {
	return func(c *HTTPSender) { c.retryMax = max }
}

func WithMaxConnsPerHost(n int) HTTPOption {
	return func(c *HTTPSender) { c.http.MaxConnsPerHost = n }
}

func NewHTTPSender(baseURL string, opts ...HTTPOption) *HTTPSender {
	c := &HTTPSender{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 5 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts msg once.
func (c *HTTPSender) Send(ctx context.Context, msg SMS) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/sms", msg, false)
}

// Ping checks <base>/health, retrying 5xx and transport errors with backoff.
func (c *HTTPSender) Ping(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodGet, "/health", nil, true)
}

func (c *HTTPSender) doJSON(ctx context.Context, method, path string, in any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err == nil {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				return nil
			}
			serr := &StatusError{Status: status, Body: truncate(string(resp.Body()), 512)}
			if !shouldRetryStatus(status) {
				return serr
			}
			err = serr
		} else {
			err = fmt.Errorf("request failed: %w", err)
		}
		lastErr = err
		if attempt < attempts {
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

// computeDeadline is the earlier of the ctx deadline and now+defaultTimeout.
func (c *HTTPSender) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
