package domain

import "fmt"

// ValidationError marks a malformed or unauthenticated webhook request.
// It is recovered at the HTTP boundary and surfaced as a 4xx.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid payload: %s (%s)", e.Message, e.Field)
	}
	return fmt.Sprintf("invalid payload: %s", e.Message)
}

// NewValidationError creates a validation error for a payload field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AlreadyProcessingError is the dedup rejection: a review for the merge
// request is still in flight. Callers log it as a skip, not a failure.
type AlreadyProcessingError struct {
	IID int
}

func (e *AlreadyProcessingError) Error() string {
	return fmt.Sprintf("merge request !%d is already being processed", e.IID)
}

// NewAlreadyProcessingError creates a dedup rejection for a merge request.
func NewAlreadyProcessingError(iid int) *AlreadyProcessingError {
	return &AlreadyProcessingError{IID: iid}
}

// GitLabAPIError wraps a failed GitLab API call.
type GitLabAPIError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *GitLabAPIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gitlab %s failed: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gitlab %s failed: %s", e.Op, e.Message)
}

func (e *GitLabAPIError) Unwrap() error {
	return e.Err
}

// NewGitLabAPIError creates an error for a failed GitLab operation.
func NewGitLabAPIError(op string, statusCode int, message string, err error) *GitLabAPIError {
	return &GitLabAPIError{Op: op, StatusCode: statusCode, Message: message, Err: err}
}

// PersistenceError wraps a ledger file read or write failure. It is logged
// and never escalated: the in-memory entry still counts as recorded.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error for %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError creates an error for a failed ledger file operation.
func NewPersistenceError(path string, err error) *PersistenceError {
	return &PersistenceError{Path: path, Err: err}
}
