package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
)

// Envelope is the body shape of every API response.
type Envelope[T any] struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    *T                  `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Call sends req and decodes a 2xx body into an Envelope[T]. Non-2xx
// responses and transport failures are returned as *ClassifiedError by Do.
// An empty 2xx body yields a successful envelope with no data.
func Call[T any](ctx context.Context, c *Client, req Request) (*Envelope[T], error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	env := &Envelope[T]{Success: true}
	if len(resp.Body) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(resp.Body, env); err != nil {
		return nil, &ClassifiedError{
			Kind:    KindUnknown,
			Status:  resp.Status,
			Message: "The server sent a response that could not be read",
			Method:  req.Method,
			Path:    req.Path,
			Cause:   fmt.Errorf("decode response: %w", err),
		}
	}
	return env, nil
}

// Data is Call for endpoints whose payload is required. An envelope that
// reports failure, or carries no data, is returned as an unknown-kind error
// with the envelope's message.
func Data[T any](ctx context.Context, c *Client, req Request) (*T, error) {
	env, err := Call[T](ctx, c, req)
	if err != nil {
		return nil, err
	}
	if !env.Success || env.Data == nil {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = "The server response contained no data"
		}
		return nil, &ClassifiedError{
			Kind:    KindUnknown,
			Message: msg,
			Code:    env.Error,
			Fields:  env.Errors,
			Method:  req.Method,
			Path:    req.Path,
		}
	}
	return env.Data, nil
}
