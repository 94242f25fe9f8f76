package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrorKind classifies a failed API call.
type ErrorKind int

const (
	// KindUnknown covers statuses with no defined meaning to this client and
	// undecodable responses.
	KindUnknown ErrorKind = iota
	// KindValidation is 400, 409 or 422: the server rejected caller data.
	KindValidation
	// KindAuth is 401: the credential was rejected.
	KindAuth
	// KindForbidden is 403.
	KindForbidden
	// KindNotFound is 404.
	KindNotFound
	// KindRateLimited is 429. Callers may back off and retry.
	KindRateLimited
	// KindServer is any 5xx.
	KindServer
	// KindNetwork means no response was received (DNS, connect, TLS, timeout).
	KindNetwork
)

var kindNames = map[ErrorKind]string{
	KindUnknown:     "unknown",
	KindValidation:  "validation",
	KindAuth:        "auth",
	KindForbidden:   "forbidden",
	KindNotFound:    "not_found",
	KindRateLimited: "rate_limited",
	KindServer:      "server",
	KindNetwork:     "network",
}

// String returns the snake_case kind name.
func (k ErrorKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Sentinel errors for use with errors.Is().
var (
	ErrValidation   = errors.New("request rejected")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("no response received")

	// ErrSessionExpired is the outcome of a 401 episode that could not be
	// recovered; the local session has been cleared.
	ErrSessionExpired = errors.New("session expired")
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:  ErrValidation,
	KindAuth:        ErrUnauthorized,
	KindForbidden:   ErrForbidden,
	KindNotFound:    ErrNotFound,
	KindRateLimited: ErrRateLimited,
	KindServer:      ErrServer,
	KindNetwork:     ErrNetwork,
}

// ClassifiedError is the single error shape produced by the client. The
// response envelope is inspected once, here, so callers never parse raw
// bodies to find a message.
type ClassifiedError struct {
	Kind ErrorKind
	// Status is the HTTP status, 0 for KindNetwork.
	Status int
	// Message is the server's human-readable message, or a generic one.
	Message string
	// Code is the envelope's machine-readable "error" field, if any.
	Code string
	// Fields holds per-field validation messages from the envelope.
	Fields map[string][]string
	// RetryAfter is parsed from the Retry-After header of a 429.
	RetryAfter time.Duration
	Method     string
	Path       string
	// Cause is the transport error, or the refresh failure for a 401 that
	// could not be recovered.
	Cause error
	// Public is set when the request carried no credential. A 401 then
	// rejects the submitted credentials rather than ending a session.
	Public bool

	// generic marks Message as a default text, not the server's.
	generic bool
}

// Error returns a one-line description.
func (e *ClassifiedError) Error() string {
	where := e.Method + " " + e.Path
	if e.Kind == KindNetwork {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", where, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: %s", where, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %d %s: %v", where, e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %d %s", where, e.Status, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the error's kind.
func (e *ClassifiedError) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// Retryable reports whether the caller may retry after a delay. This client
// never retries on its own.
func (e *ClassifiedError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindNetwork || e.Kind == KindServer
}

// KindOf returns the kind of a *ClassifiedError in err's chain, or
// KindUnknown.
func KindOf(err error) ErrorKind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// MessageOf returns the server message carried by err, or fallback. A 401 on
// a public request with no server message yields fallback too, since the
// default text speaks of an expired session.
func MessageOf(err error, fallback string) string {
	var ce *ClassifiedError
	if !errors.As(err, &ce) || ce.Message == "" {
		return fallback
	}
	if ce.generic && ce.Public && ce.Kind == KindAuth && fallback != "" {
		return fallback
	}
	return ce.Message
}

// errorEnvelope is the failure shape of every API response.
type errorEnvelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

// classifyStatus maps an HTTP status to a kind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusBadRequest,
		status == http.StatusConflict,
		status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

var defaultMessages = map[ErrorKind]string{
	KindUnknown:     "An unexpected error occurred",
	KindValidation:  "The request could not be processed",
	KindAuth:        "Your session has expired. Please sign in again",
	KindForbidden:   "You do not have permission to do that",
	KindNotFound:    "The requested resource was not found",
	KindRateLimited: "Too many requests. Please wait and try again",
	KindServer:      "The server is unavailable. Please try again later",
	KindNetwork:     "No response received",
}

// classify builds the error for a non-2xx response.
func classify(method, path string, resp *http.Response, body []byte) *ClassifiedError {
	kind := classifyStatus(resp.StatusCode)
	ce := &ClassifiedError{
		Kind:   kind,
		Status: resp.StatusCode,
		Method: method,
		Path:   path,
	}

	var env errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		ce.Message = env.Message
		ce.Code = env.Error
		ce.Fields = env.Errors
		if ce.Message == "" {
			ce.Message = env.Error
		}
	}
	if ce.Message == "" {
		ce.Message = defaultMessages[kind]
		ce.generic = true
	}
	if kind == KindRateLimited {
		ce.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return ce
}

func networkError(method, path string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Kind:    KindNetwork,
		Message: defaultMessages[KindNetwork],
		Method:  method,
		Path:    path,
		Cause:   cause,
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
