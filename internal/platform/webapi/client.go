// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package webapi implements the platform collaborators against the Dataverse
// Web API (OData v4 over HTTPS).
package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAPIVersion = "v9.2"
	defaultTimeout    = 60 * time.Second
	maxRetryAttempts  = 3
	baseRetryDelay    = 1 * time.Second
	maxErrorBody      = 4 << 10
	maxRetryAfter     = 5 * time.Minute
)

// Error types returned by the client.
var (
	ErrUnauthorized  = errors.New("web api: unauthorized")
	ErrNotFound      = errors.New("web api: not found")
	ErrRequestFailed = errors.New("web api: request failed")
)

// Config configures the Web API client.
type Config struct {
	BaseURL    string        // Environment URL, e.g. https://org.crm.dynamics.com (required)
	Token      string        // OAuth bearer token (required)
	APIVersion string        // Web API version (default "v9.2")
	Timeout    time.Duration // Per-request timeout (default 60s)
	MaxRetries int           // Retries on throttling and gateway errors (default 3, negative disables)
	BaseDelay  time.Duration // First retry delay, doubled per attempt (default 1s)
	HTTPClient *http.Client  // Defaults to a client with Timeout
	Logger     *zap.Logger
}

// Client talks to one Dataverse environment.
type Client struct {
	http       *http.Client
	root       *url.URL
	token      string
	maxRetries int
	baseDelay  time.Duration
	log        *zap.Logger
}

// New creates a Web API client from the given configuration.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrRequestFailed)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrUnauthorized)
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid base URL %q", ErrRequestFailed, cfg.BaseURL)
	}

	version := cfg.APIVersion
	if version == "" {
		version = defaultAPIVersion
	}
	root := base.JoinPath("api", "data", version)
	root.Path += "/"

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	maxRetries := cfg.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = maxRetryAttempts
	case maxRetries < 0:
		maxRetries = 0
	}
	delay := cfg.BaseDelay
	if delay == 0 {
		delay = baseRetryDelay
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		http:       hc,
		root:       root,
		token:      cfg.Token,
		maxRetries: maxRetries,
		baseDelay:  delay,
		log:        log,
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// resolve turns a path relative to the API root, or an absolute next link,
// into a request URL.
func (c *Client) resolve(ref string) (string, error) {
	u, err := c.root.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: bad request path %q: %v", ErrRequestFailed, ref, err)
	}
	return u.String(), nil
}

// getJSON issues a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, ref string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, ref, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrRequestFailed, ref, err)
	}
	return nil
}

// do sends a request with exponential backoff retry for throttling and
// transient gateway errors. A Retry-After header on the failed response
// replaces the backoff delay. Non-2xx responses are classified.
func (c *Client) do(ctx context.Context, method, ref string, body []byte, header http.Header) (*http.Response, error) {
	target, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}

	var lastErr error
	var serverDelay time.Duration
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			if serverDelay > 0 {
				delay = serverDelay
			}
			c.log.Debug("retrying request",
				zap.String("method", method),
				zap.String("url", target),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: context cancelled during retry: %w", ErrRequestFailed, ctx.Err())
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, fmt.Errorf("%w: building request: %v", ErrRequestFailed, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("OData-MaxVersion", "4.0")
		req.Header.Set("OData-Version", "4.0")
		if body != nil {
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
		}
		for k, v := range header {
			req.Header[k] = v
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, classifyError(err, method, target)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		statusErr := readStatusError(resp)
		if retryable(resp.StatusCode) {
			lastErr = statusErr
			serverDelay = retryAfter(resp.Header, time.Now())
			continue
		}
		return nil, classifyError(statusErr, method, target)
	}

	return nil, fmt.Errorf("%w: %s %s throttled after %d retries: %w", ErrRequestFailed, method, target, c.maxRetries, lastErr)
}

// StatusError is a non-2xx Web API response.
type StatusError struct {
	StatusCode int
	Code       string // OData error code, when present
	Message    string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("status %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, msg)
}

// readStatusError drains the response and extracts the OData error body.
func readStatusError(resp *http.Response) *StatusError {
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	se := &StatusError{StatusCode: resp.StatusCode}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error.Message != "" {
		se.Code = payload.Error.Code
		se.Message = payload.Error.Message
	} else {
		se.Message = strings.TrimSpace(string(raw))
	}
	return se
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP
// date. Missing or unparseable values yield zero.
func retryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = at.Sub(now)
	}
	if d < 0 {
		return 0
	}
	return min(d, maxRetryAfter)
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// classifyError wraps transport and status errors into the client's
// sentinel errors with descriptive messages.
func classifyError(err error, method, target string) error {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: credential or permission issue: %s %s: %w", ErrUnauthorized, method, target, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s %s: %w", ErrNotFound, method, target, err)
		}
		return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, target, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s timed out: %w", ErrRequestFailed, method, target, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, target, err)
}

// quote renders s as an OData string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// query builds "path?k=v&..." with OData-safe escaping. Keys keep their
// leading '$'.
func query(path string, params ...string) string {
	var b strings.Builder
	b.WriteString(path)
	for i := 0; i+1 < len(params); i += 2 {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(params[i])
		b.WriteByte('=')
		b.WriteString(strings.ReplaceAll(url.QueryEscape(params[i+1]), "+", "%20"))
	}
	return b.String()
}
