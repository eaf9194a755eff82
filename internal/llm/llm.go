// Package llm talks to text-completion services. Cross-cutting concerns
// (rate limiting, retries, logging, usage accounting, prompt dumps) are
// layered on with Middleware.
package llm

import (
	"context"
	"errors"
)

var ErrEmptyResponse = errors.New("llm: empty response from model")

// Request is a single completion call.
type Request struct {
	System string
	User   string
	// MaxOutputTokens caps the response length; 0 leaves the service default.
	MaxOutputTokens int
	// Temperature is passed through untouched; nil leaves the service default.
	Temperature *float64
	// JSON asks the service for an application/json response.
	JSON bool
}

// LLMClient is a text-completion capability.
type LLMClient interface {
	Name() string
	Close() error
	Complete(ctx context.Context, req Request) (string, error)
}

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// Temperature returns a pointer suitable for Request.Temperature.
func Temperature(v float64) *float64 { return &v }
