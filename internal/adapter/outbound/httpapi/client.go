// Package httpapi is the HTTP client core shared by every backend call: it
// attaches credentials, measures latency, classifies failures and recovers
// from expired credentials with a single shared refresh attempt.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/medistore/medistore/internal/ctxkey"
	"github.com/medistore/medistore/internal/domain/storage"
)

const (
	instrumentationName = "github.com/medistore/medistore/internal/adapter/outbound/httpapi"

	// DefaultTimeout bounds each request when no timeout is configured.
	DefaultTimeout = 30 * time.Second

	// HeaderRequestID carries the per-request correlation ID.
	HeaderRequestID = "X-Request-ID"

	maxResponseBytes = 8 << 20
)

// ErrNoRefreshToken is returned by refresh policies when nothing is stored
// to exchange.
var ErrNoRefreshToken = errors.New("no refresh token stored")

// Refresher obtains a replacement access token after a 401. Implementations
// must persist the token they return and must send their own request as
// Public so that it bypasses 401 recovery.
type Refresher interface {
	Refresh(ctx context.Context) (token string, err error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) (string, error)

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context) (string, error) {
	return f(ctx)
}

// InvalidationHook is told that the session ended because a 401 could not be
// recovered.
type InvalidationHook func(ctx context.Context, reason error)

// Request describes one API call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded once; the encoded bytes are reused if the request
	// is replayed after a refresh.
	Body   any
	Header http.Header
	// Public requests never carry the stored token and a 401 on them is
	// returned as is. Use for sign-in style endpoints where a 401 means
	// wrong credentials, not an expired session.
	Public bool
}

// Response is a 2xx response.
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	Latency   time.Duration
	RequestID string
	// Replayed is true when the response came from the retry after a
	// successful refresh.
	Replayed bool
}

// Client sends API requests. It is safe for concurrent use; one Client
// should be shared by the whole process so that all requests share one
// refresh coordinator.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer

	store storage.Store
	coord *RefreshCoordinator

	mu           sync.RWMutex
	refresher    Refresher
	onInvalidate InvalidationHook
}

// NewClient creates a client whose bearer token is read from store under
// storage.KeyAuthToken. It reads MEDISTORE_API_* environment variables by
// default; options override them.
func NewClient(store storage.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:   os.Getenv("MEDISTORE_API_BASE_URL"),
		timeout:   parseDurationEnv("MEDISTORE_API_TIMEOUT", DefaultTimeout),
		userAgent: "medistore-client",
		logger:    slog.Default(),
		store:     store,
		coord:     NewRefreshCoordinator(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}
	if c.tracer == nil {
		c.tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}

	return c
}

// SetRefresher replaces the refresh policy. Services built on top of the
// client register themselves here after construction.
func (c *Client) SetRefresher(r Refresher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresher = r
}

// SetInvalidationHook replaces the invalidation hook.
func (c *Client) SetInvalidationHook(fn InvalidationHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onInvalidate = fn
}

// Coordinator exposes the refresh coordinator for inspection.
func (c *Client) Coordinator() *RefreshCoordinator {
	return c.coord
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req. A 2xx response is returned as *Response; everything else is
// a *ClassifiedError.
//
// When an authenticated request receives a 401 it joins the shared refresh
// attempt. On success the request is replayed once with the new token; a
// second 401 is returned without another refresh. On failure the request
// fails with a KindAuth error whose Cause wraps ErrSessionExpired.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	resp, sent, err := c.send(ctx, req, body, "")
	if err == nil {
		return resp, nil
	}

	var ce *ClassifiedError
	if !errors.As(err, &ce) || ce.Kind != KindAuth || req.Public || sent.token == "" {
		return nil, err
	}

	token, rerr := c.awaitRefresh(ctx, sent.epoch)
	if rerr != nil {
		ce.Cause = rerr
		return nil, ce
	}

	resp, _, err = c.send(ctx, req, body, token)
	if err != nil {
		return nil, err
	}
	resp.Replayed = true
	return resp, nil
}

// attempt records what a request was sent with.
type attempt struct {
	token string
	epoch uint64
}

// send performs one HTTP exchange. token overrides the stored token when
// non-empty.
func (c *Client) send(ctx context.Context, req Request, body []byte, token string) (*Response, attempt, error) {
	// The epoch is read before the token so that a refresh concluding in
	// between is seen as newer than this request.
	sent := attempt{epoch: c.coord.Epoch()}
	if !req.Public {
		if token == "" {
			token = c.storedToken()
		}
		sent.token = token
	}

	requestID := requestIDFromContext(ctx)
	logger := loggerFromContext(ctx, c.logger).With("request_id", requestID)

	ctx, span := c.tracer.Start(ctx, req.Method+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
			attribute.String("medistore.request_id", requestID),
			attribute.Bool("medistore.authenticated", sent.token != ""),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := c.newHTTPRequest(ctx, req, body, sent.token, requestID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, sent, err
	}

	issuedAt := time.Now()
	logger.Debug("api request", "method", req.Method, "path", req.Path)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		latency := time.Since(issuedAt)
		c.metrics.observeRequest(req.Method, "network", latency.Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "no response")
		logger.Warn("api request failed",
			"method", req.Method,
			"path", req.Path,
			"latency_ms", latency.Milliseconds(),
			"error", err,
		)
		return nil, sent, networkError(req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	latency := time.Since(issuedAt)
	c.metrics.observeRequest(req.Method, statusClass(httpResp.StatusCode), latency.Seconds())
	span.SetAttributes(attribute.Int("http.response.status_code", httpResp.StatusCode))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return nil, sent, networkError(req.Method, req.Path, fmt.Errorf("read response body: %w", err))
	}

	logger.Debug("api response",
		"method", req.Method,
		"path", req.Path,
		"status", httpResp.StatusCode,
		"latency_ms", latency.Milliseconds(),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		ce := classify(req.Method, req.Path, httpResp, respBody)
		ce.Public = sent.token == ""
		span.SetStatus(codes.Error, ce.Kind.String())
		return nil, sent, ce
	}

	return &Response{
		Status:    httpResp.StatusCode,
		Header:    httpResp.Header,
		Body:      respBody,
		Latency:   latency,
		RequestID: requestID,
	}, sent, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request, body []byte, token, requestID string) (*http.Request, error) {
	u := strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(HeaderRequestID, requestID)
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return httpReq, nil
}

func (c *Client) storedToken() string {
	tok, ok, err := c.store.GetString(storage.KeyAuthToken)
	if err != nil {
		c.logger.Warn("failed to read stored token", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return tok
}

// awaitRefresh returns a usable token for a request that received a 401
// after being sent at epoch seen, running the refresh itself if no other
// request is.
func (c *Client) awaitRefresh(ctx context.Context, seen uint64) (string, error) {
	leader, wait := c.coord.Join(seen)
	if !leader {
		c.metrics.observeWaiter()
		select {
		case out := <-wait:
			return out.Token, out.Err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	// The attempt serves every queued request, so it must outlive the
	// leader's own cancellation.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	out := c.refresh(rctx)
	n := c.coord.SettleAll(out)
	c.logger.Debug("refresh settled", "waiters", n, "ok", out.Err == nil)
	return out.Token, out.Err
}

// refresh runs the refresh policy. If it cannot produce a token the
// invalidation hook runs and the stored credentials are cleared.
func (c *Client) refresh(ctx context.Context) RefreshOutcome {
	c.mu.RLock()
	r, hook := c.refresher, c.onInvalidate
	c.mu.RUnlock()

	var cause error
	if r != nil {
		token, err := r.Refresh(ctx)
		if err == nil && token != "" {
			c.metrics.observeRefresh(true)
			c.logger.Info("access token refreshed")
			return RefreshOutcome{Token: token}
		}
		cause = err
	}

	c.metrics.observeRefresh(false)
	var reason error
	if cause != nil {
		reason = fmt.Errorf("%w: %w", ErrSessionExpired, cause)
	} else {
		reason = ErrSessionExpired
	}
	c.logger.Info("session invalidated", "reason", reason)

	// The hook runs first so that observers never see an authenticated
	// session without a stored token.
	if hook != nil {
		hook(ctx, reason)
	}
	if err := storage.RemoveAll(c.store, storage.CredentialKeys...); err != nil {
		c.logger.Error("failed to clear stored credentials", "error", err)
	}
	return RefreshOutcome{Err: reason}
}

// WithRequestID returns a context whose requests are sent with the given
// X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.RequestIDKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxkey.RequestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

func loggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return fallback
}

func encodeBody(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return b, nil
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	// Try parsing as seconds (integer).
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultVal
}
