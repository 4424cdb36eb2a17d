package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrFormat is returned when a record line cannot be parsed
	ErrFormat = errors.New("malformed record")

	// ErrEmptyInput is returned when a source yields no usable records
	ErrEmptyInput = errors.New("empty input")

	// ErrConfiguration is returned when partition options are out of range or contradictory
	ErrConfiguration = errors.New("invalid configuration")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidInput is returned when request validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceConsumed is returned when a single-use source is opened twice
	ErrSourceConsumed = errors.New("source already consumed")
)

// FormatError describes a record line that could not be parsed.
type FormatError struct {
	Source     string
	LineNumber int
	Line       string
	Reason     string
}

func (e *FormatError) Error() string {
	location := ""
	switch {
	case e.Source != "" && e.LineNumber > 0:
		location = fmt.Sprintf(" at %s:%d", e.Source, e.LineNumber)
	case e.LineNumber > 0:
		location = fmt.Sprintf(" at line %d", e.LineNumber)
	case e.Source != "":
		location = fmt.Sprintf(" in %s", e.Source)
	}
	return fmt.Sprintf("malformed record%s: %s: %q", location, e.Reason, e.Line)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// NewFormatError creates a new FormatError for the given line text
func NewFormatError(line, reason string) *FormatError {
	return &FormatError{Line: line, Reason: reason}
}

// At returns a copy of the error annotated with its source and line number
func (e *FormatError) At(source string, lineNumber int) *FormatError {
	cp := *e
	cp.Source = source
	cp.LineNumber = lineNumber
	return &cp
}

// EmptyInputError is returned when a source contains no records
type EmptyInputError struct {
	Source string
}

func (e *EmptyInputError) Error() string {
	if e.Source == "" {
		return "input contains no records"
	}
	return fmt.Sprintf("input '%s' contains no records", e.Source)
}

func (e *EmptyInputError) Is(target error) bool {
	return target == ErrEmptyInput
}

// NewEmptyInputError creates a new EmptyInputError
func NewEmptyInputError(source string) *EmptyInputError {
	return &EmptyInputError{Source: source}
}

// ConfigurationError names the option and the numeric constraint it violates
type ConfigurationError struct {
	Field      string
	Value      any
	Constraint string
}

func (e *ConfigurationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid configuration for '%s': %s", e.Field, e.Constraint)
	}
	return fmt.Sprintf("invalid configuration for '%s' (got %v): %s", e.Field, e.Value, e.Constraint)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(field string, value any, constraint string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Constraint: constraint}
}

// JobNotFoundError represents a job not found error with context
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job with ID '%s' not found", e.JobID)
}

func (e *JobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound
}

// NewJobNotFoundError creates a new JobNotFoundError
func NewJobNotFoundError(jobID string) *JobNotFoundError {
	return &JobNotFoundError{JobID: jobID}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
