package llm

import (
	"fmt"
	"strings"
	"time"
)

// UnavailableError means the backend process or model could not be found.
type UnavailableError struct {
	Provider string
	Detail   string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s provider unavailable: %s", e.Provider, e.Detail)
}

func NewUnavailableError(provider, detail string) *UnavailableError {
	return &UnavailableError{Provider: provider, Detail: detail}
}

// TimeoutError means the backend did not answer within the configured
// wall-clock limit. The underlying call or process has been terminated
// by the time this error surfaces.
type TimeoutError struct {
	Provider string
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s provider timed out after %s", e.Provider, e.After)
}

func NewTimeoutError(provider string, after time.Duration) *TimeoutError {
	return &TimeoutError{Provider: provider, After: after}
}

// EmptyResponseError means the backend finished without producing output.
type EmptyResponseError struct {
	Provider string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%s provider returned an empty response", e.Provider)
}

func NewEmptyResponseError(provider string) *EmptyResponseError {
	return &EmptyResponseError{Provider: provider}
}

// ProviderError covers any other backend failure: non-zero exit,
// HTTP error status, malformed stream.
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s provider: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s provider: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Message: message, Err: err}
}

// looksLikeNotFound reports whether an execution failure message points at
// a missing binary rather than a runtime failure.
func looksLikeNotFound(msg string) bool {
	return strings.Contains(msg, "ENOENT") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "no such file")
}
