// Package tailorapi is the typed HTTP client of the marketplace API.
package tailorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

// DefaultTimeout bounds a single API call
const DefaultTimeout = 15 * time.Second

var tracer = otel.Tracer("github.com/Lixing-Zhang/tailortech/internal/tailorapi")

// Client calls the marketplace API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the client logger
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithToken starts the client with a bearer token
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:8080/api
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken sets the bearer token sent with every call. Empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type call struct {
	op             string
	method         string
	path           string
	query          url.Values
	body           interface{}
	want           int
	idempotencyKey string
}

// do performs one API call inside a client span and decodes the response into out
func (c *Client) do(ctx context.Context, cl call, out interface{}) error {
	ctx, span := tracer.Start(ctx, "tailorapi."+cl.op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", cl.method),
		attribute.String("url.path", cl.path),
	)

	err := c.roundTrip(ctx, cl, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", apiErr.Status))
		}
		c.log.Debug("api call failed", zap.String("op", cl.op), zap.Error(err))
		return err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", cl.want))
	return nil
}

func (c *Client) roundTrip(ctx context.Context, cl call, out interface{}) error {
	want := cl.want
	if want == 0 {
		want = http.StatusOK
	}

	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		buf, err := json.Marshal(cl.body)
		if err != nil {
			return &Error{Op: cl.op, Message: "encode request", Err: err}
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return &Error{Op: cl.op, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if cl.idempotencyKey != "" {
		req.Header.Set(idempotencyHeader, cl.idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: cl.op, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &Error{Op: cl.op, Status: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode != want {
		return &Error{Op: cl.op, Status: resp.StatusCode, Message: errorMessage(data, resp.StatusCode)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: cl.op, Status: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

func errorMessage(data []byte, status int) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return fmt.Sprintf("unexpected status %d", status)
}
