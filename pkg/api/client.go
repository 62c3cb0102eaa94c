// Package api is the HTTP client for the NoteQ backend and the ML topic service.
//
// Every call carries a per-attempt timeout, an X-Request-ID header and, for
// authenticated endpoints, a bearer token. Idempotent calls are retried with
// exponential backoff; 4xx answers are never retried.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/noteq/noteq/pkg/core"
	"github.com/noteq/noteq/pkg/retry"
)

// Defaults.
const (
	DefaultBackendURL = "http://127.0.0.1:8000"
	DefaultMLURL      = "http://127.0.0.1:5000"
	DefaultTimeout    = 10 * time.Second
)

const maxErrorBody = 4 << 10

// TokenSource returns the bearer token of the current user.
// It returns core.ErrUnauthenticated when nobody is logged in.
type TokenSource func(ctx context.Context) (string, error)

// Config holds the client configuration. Zero values take the defaults.
type Config struct {
	BackendURL string
	MLURL      string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *Metrics
	Token      TokenSource

	// Sleeper replaces the backoff sleep. Tests use it to avoid real waits.
	Sleeper retry.Sleeper
}

// Client talks to the backend and the ML service.
type Client struct {
	config Config
	logins singleflight.Group
}

// New creates a Client.
func New(config Config) *Client {
	if config.BackendURL == "" {
		config.BackendURL = DefaultBackendURL
	}
	if config.MLURL == "" {
		config.MLURL = DefaultMLURL
	}
	config.BackendURL = strings.TrimRight(config.BackendURL, "/")
	config.MLURL = strings.TrimRight(config.MLURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = retry.DefaultMaxRetries
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = retry.DefaultBaseDelay
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = NewMetrics(nil)
	}
	return &Client{config: config}
}

// Metrics returns the metrics the client records into.
func (c *Client) Metrics() *Metrics {
	return c.config.Metrics
}

// call describes one endpoint invocation.
type call struct {
	name   string // metrics label, e.g. "notes.update"
	method string
	base   string
	path   string
	in     any
	out    any
	auth   bool
	retry  bool
}

func (c *Client) backend(name, method, path string) call {
	return call{
		name:   name,
		method: method,
		base:   c.config.BackendURL,
		path:   path,
		auth:   true,
		retry:  method != http.MethodPost,
	}
}

func (c *Client) do(ctx context.Context, cl call) error {
	var token string
	if cl.auth && c.config.Token != nil {
		t, err := c.config.Token(ctx)
		if err != nil {
			return err
		}
		token = t
	}

	var body []byte
	if cl.in != nil {
		data, err := json.Marshal(cl.in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", cl.name, err)
		}
		body = data
	}

	requestID := uuid.NewString()
	attempts := 1
	if cl.retry {
		attempts = c.config.MaxRetries
	}

	var opts []retry.Option
	if c.config.Sleeper != nil {
		opts = append(opts, retry.WithSleeper(c.config.Sleeper))
	}
	opts = append(opts, retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
		c.config.Logger.Debug("retrying request", "endpoint", cl.name, "attempt", attempt, "delay", delay, "error", err, "request_id", requestID)
	}))

	return retry.Do(ctx, func(ctx context.Context) error {
		return c.attempt(ctx, cl, body, token, requestID)
	}, attempts, c.config.BaseDelay, opts...)
}

func (c *Client) attempt(ctx context.Context, cl call, body []byte, token, requestID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := cl.base + cl.path
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, url, reader)
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		c.config.Metrics.observeRequest(cl.name, 0, time.Since(start))
		return fmt.Errorf("%s %s: %w", cl.method, url, err)
	}
	defer resp.Body.Close()
	c.config.Metrics.observeRequest(cl.name, resp.StatusCode, time.Since(start))

	c.config.Logger.Debug("api response", "endpoint", cl.name, "status", resp.StatusCode, "duration", time.Since(start), "request_id", requestID)

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		httpErr := &core.HTTPError{Method: cl.method, URL: url, Status: resp.StatusCode, Body: string(data)}
		if retryable(resp.StatusCode) {
			return httpErr
		}
		return retry.Permanent(httpErr)
	}

	if cl.out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", cl.name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, cl.out); err != nil {
		return retry.Permanent(fmt.Errorf("failed to decode %s response: %w", cl.name, err))
	}
	return nil
}

func retryable(status int) bool {
	return status >= 500 || status == http.StatusRequestTimeout || status == http.StatusTooManyRequests
}

// errorMessage extracts the "error" or "message" field of a backend error body.
func errorMessage(err error) string {
	var httpErr *core.HTTPError
	if !errors.As(err, &httpErr) {
		return ""
	}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal([]byte(httpErr.Body), &body) != nil {
		return ""
	}
	switch {
	case body.Error != "":
		return body.Error
	case body.Message != "":
		return body.Message
	}
	return body.Detail
}

// ErrorMessage returns the human readable message carried by a backend error,
// falling back to err.Error().
func ErrorMessage(err error) string {
	if msg := errorMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}
