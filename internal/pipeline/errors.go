package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports required credentials or input fields that are
// absent. Raised early (preflight) and fatal to the run.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration invalid for %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("configuration invalid: missing %s", e.Field)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError reports a missing or invalid configuration field.
func NewConfigurationError(field string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Err: err}
}

// ValidationError reports a phase's own correctness checks failing. Fatal to
// that phase and to the run.
type ValidationError struct {
	Phase    string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Phase, strings.Join(e.Problems, "; "))
}

// NewValidationError creates a validation error for a phase.
func NewValidationError(phase string, problems []string) *ValidationError {
	return &ValidationError{Phase: phase, Problems: problems}
}

// ExternalServiceError reports a network, timeout, or non-2xx failure from a
// collaborator. Fatal to the phase unless the call site wraps it in a
// tolerated-failure pattern.
type ExternalServiceError struct {
	Service   string
	Operation string
	Err       error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: failed to %s: %v", e.Service, e.Operation, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// NewExternalServiceError wraps a collaborator failure.
func NewExternalServiceError(service, operation string, err error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Operation: operation, Err: err}
}

// ParseError reports AI output that was not parseable as the expected JSON.
// It is never returned across a handler boundary: every parse site defines a
// deterministic fallback and carries this error only as a logged detail.
type ParseError struct {
	Expected string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse %s from model output: %v", e.Expected, e.Err)
	}
	return fmt.Sprintf("failed to parse %s from model output", e.Expected)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsExternalService reports whether err is an ExternalServiceError.
func IsExternalService(err error) bool {
	var ee *ExternalServiceError
	return errors.As(err, &ee)
}
