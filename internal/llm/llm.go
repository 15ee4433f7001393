// Package llm defines the uniform interface over the LLM classification
// providers and the error taxonomy their failures map into.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	models "github.com/scmlabs/modsentry/internal/models/moderation"
)

// RawVerdict is a provider's judgment before parsing: the model's textual
// answer plus the full response body kept for audit. Nothing outside the
// verdict parser interprets Text.
type RawVerdict struct {
	Text string
	Raw  json.RawMessage
}

// Provider is implemented once per LLM backend.
type Provider interface {
	// Name identifies the provider in stored results and logs.
	Name() string

	// Classify submits content for moderation and returns the raw verdict.
	// Failures are reported as *BackendError so the orchestrator can apply
	// its fallback policy.
	Classify(ctx context.Context, content string, kind models.ContentType) (*RawVerdict, error)
}

// ErrorKind partitions backend failures by how the fallback policy treats them.
type ErrorKind string

const (
	// Unavailable covers transient faults: network errors, rate limits,
	// timeouts, provider 5xx.
	Unavailable ErrorKind = "unavailable"
	// Unauthorized means the configured credential was rejected. The
	// provider cannot serve any request for the process lifetime.
	Unauthorized ErrorKind = "unauthorized"
	// Malformed means the provider rejected the input itself.
	Malformed ErrorKind = "malformed"
)

// BackendError is the only error type a Provider returns.
type BackendError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps err with the provider name and failure kind.
func NewBackendError(provider string, kind ErrorKind, err error) *BackendError {
	return &BackendError{Provider: provider, Kind: kind, Err: err}
}

// KindFromStatus maps a provider HTTP status code to an error kind.
// 401/403 are credential faults, 400-class input rejections are malformed,
// everything else (429, 5xx) is treated as transient.
func KindFromStatus(status int) ErrorKind {
	switch status {
	case 401, 403:
		return Unauthorized
	case 400, 413, 415, 422:
		return Malformed
	default:
		return Unavailable
	}
}
