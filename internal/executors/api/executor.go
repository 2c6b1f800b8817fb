// Package api issues HTTP requests for api-platform steps.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	"github.com/alexisbeaulieu97/scenarist/internal/executor"
	"github.com/alexisbeaulieu97/scenarist/internal/logger"
	"github.com/alexisbeaulieu97/scenarist/internal/params"
)

const maxErrorBody = 512

// DefaultMaxResponseBytes caps how much of a response body is read.
const DefaultMaxResponseBytes int64 = 10 << 20

// ErrResponseTooLarge is returned when a response body exceeds the cap.
var ErrResponseTooLarge = errors.New("response body too large")

// Options configures the HTTP client used by the executor.
type Options struct {
	// RetryMax is the number of retries after the first attempt for
	// transport errors and retryable status codes.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	UserAgent    string
	// MaxResponseBytes bounds the response body read per request.
	// Zero means DefaultMaxResponseBytes.
	MaxResponseBytes int64
	HTTPClient       *http.Client
	Logger           *logger.Logger
}

// DefaultOptions mirrors the single retry the executor has always made.
func DefaultOptions() Options {
	return Options{
		RetryMax:         1,
		RetryWaitMin:     200 * time.Millisecond,
		RetryWaitMax:     2 * time.Second,
		UserAgent:        "scenarist",
		MaxResponseBytes: DefaultMaxResponseBytes,
	}
}

// StatusError reports a response whose status was not expected.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s returned status %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Executor performs api steps.
type Executor struct {
	client    *retryablehttp.Client
	userAgent string
	maxBody   int64
}

// New builds an executor from opts.
func New(opts Options) *Executor {
	client := retryablehttp.NewClient()
	client.RetryMax = max(opts.RetryMax, 0)
	if opts.RetryWaitMin > 0 {
		client.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		client.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.HTTPClient != nil {
		client.HTTPClient = opts.HTTPClient
	}
	// The final response is returned as-is so status expectations decide
	// the outcome rather than the retry loop.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = newLeveledLogger(opts.Logger)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "scenarist"
	}
	maxBody := opts.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxResponseBytes
	}
	return &Executor{client: client, userAgent: userAgent, maxBody: maxBody}
}

// NewFactory returns a factory producing one executor, and so one
// connection pool, per run.
func NewFactory(opts Options) executor.Factory {
	return func() (executor.Executor, error) {
		return New(opts), nil
	}
}

// Platform implements executor.Executor.
func (e *Executor) Platform() scenario.Platform {
	return scenario.PlatformAPI
}

// Close drops idle keep-alive connections.
func (e *Executor) Close() error {
	if e.client != nil && e.client.HTTPClient != nil {
		e.client.HTTPClient.CloseIdleConnections()
	}
	return nil
}

// Execute implements executor.Executor. The output is the decoded response
// body, or the value of the extract expression when one is given. The
// response is checked against expect_status, schema and expect_body, in
// that order.
func (e *Executor) Execute(ctx context.Context, action scenario.Action, p map[string]any) (any, error) {
	req, err := e.buildRequest(ctx, action, p)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, redact(req.URL), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(raw)) > e.maxBody {
		return nil, fmt.Errorf("%w: %s %s exceeded %d bytes", ErrResponseTooLarge, req.Method, redact(req.URL), e.maxBody)
	}

	expected, err := params.IntList(p, "expect_status")
	if err != nil {
		return nil, err
	}
	if !statusExpected(resp.StatusCode, expected) {
		return nil, &StatusError{
			Method: req.Method,
			URL:    redact(req.URL),
			Status: resp.StatusCode,
			Body:   truncate(string(raw), maxErrorBody),
		}
	}

	body, err := decodeBody(resp.Header.Get("Content-Type"), raw)
	if err != nil {
		return nil, err
	}

	if schema, ok, err := params.Map(p, "schema"); err != nil {
		return nil, err
	} else if ok {
		if err := validateSchema(schema, body); err != nil {
			return nil, err
		}
	}

	if want := p["expect_body"]; want != nil {
		if err := matchBody(want, body); err != nil {
			return nil, err
		}
	}

	extract, ok, err := params.String(p, "extract")
	if err != nil {
		return nil, err
	}
	if ok {
		return evaluate(extract, body, resp)
	}
	return body, nil
}

func (e *Executor) buildRequest(ctx context.Context, action scenario.Action, p map[string]any) (*retryablehttp.Request, error) {
	rawURL, err := params.RequiredString(p, "url")
	if err != nil {
		return nil, err
	}
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("url %q must be absolute", rawURL)
	}

	query, err := params.StringMap(p, "query")
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		values := target.Query()
		for k, v := range query {
			values.Set(k, v)
		}
		target.RawQuery = values.Encode()
	}

	method := string(action)
	if override, ok, err := params.String(p, "method"); err != nil {
		return nil, err
	} else if ok {
		method = strings.ToUpper(override)
	}

	// GET requests never carry a body.
	var body []byte
	if method != http.MethodGet {
		body, err = encodeBody(p["body"])
		if err != nil {
			return nil, err
		}
	}

	var rawBody any
	if body != nil {
		rawBody = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target.String(), rawBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", e.userAgent)

	headers, err := params.StringMap(p, "headers")
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func encodeBody(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		return data, nil
	}
}

func decodeBody(contentType string, raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if !isJSON(contentType) {
		return string(raw), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode json response: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("decode json response: unexpected data after top-level value")
	}
	return resolveNumbers(body), nil
}

// resolveNumbers replaces json.Number values with int64 when they fit and
// float64 otherwise, so large integer ids survive unchanged.
func resolveNumbers(v any) any {
	switch typed := v.(type) {
	case json.Number:
		if n, err := typed.Int64(); err == nil {
			return n
		}
		f, err := typed.Float64()
		if err != nil {
			return typed.String()
		}
		return f
	case map[string]any:
		for k, item := range typed {
			typed[k] = resolveNumbers(item)
		}
		return typed
	case []any:
		for i, item := range typed {
			typed[i] = resolveNumbers(item)
		}
		return typed
	default:
		return v
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func statusExpected(status int, expected []int) bool {
	if len(expected) == 0 {
		return status >= 200 && status < 300
	}
	return slices.Contains(expected, status)
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Redacted()
}

