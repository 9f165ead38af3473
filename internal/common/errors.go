// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Record store errors.
	ErrNotFound = errors.New("not found")

	// Evaluation errors.
	ErrNoRecords        = errors.New("no records to evaluate")
	ErrEvaluationFailed = errors.New("evaluation failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ConfigError reports a batch that cannot start because a required mapping is
// missing. It is raised once, before any record is evaluated.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrMissingConfig
}

// NewConfigError creates a configuration error for the named setting.
func NewConfigError(field, reason string) error {
	return &ConfigError{Field: field, Reason: reason}
}

// ServiceError is a failure of the completion service: transport, non-success
// status, rate limiting or a malformed response body.
type ServiceError struct {
	Err        error
	Provider   string
	Body       string
	StatusCode int
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s API error: %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// ParseError reports generated text that does not satisfy the expected grammar.
// Text carries the offending completion for diagnostics.
type ParseError struct {
	Grammar string
	Reason  string
	Text    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Reason, e.Grammar)
}

// WriteError reports a successful evaluation that could not be persisted.
type WriteError struct {
	Err      error
	RecordID string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write evaluation for record %s: %v", e.RecordID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return false
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return true
}
