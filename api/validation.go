// Package api exposes dataset operations and their jobs over HTTP.
package api

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/errors"
	"github.com/gcbaptista/go-letor/model"
	"github.com/gcbaptista/go-letor/store"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateDatasetPath checks a path taken from a request body. Paths must be
// relative to the server's data directory or name an object (s3://bucket/key).
// Stdin is not available to requests.
func ValidateDatasetPath(result *ValidationResult, field, p string, required bool) {
	if p == "" {
		if required {
			result.AddError(field, "is required")
		}
		return
	}
	if strings.TrimSpace(p) != p {
		result.AddError(field, "cannot have leading or trailing whitespace")
		return
	}
	if p == "-" {
		result.AddError(field, "stdin is not available to HTTP requests")
		return
	}
	if _, _, ok := store.ParseObjectLocation(p); ok {
		return
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		result.AddError(field, "must be relative to the data directory")
		return
	}
	clean := filepath.ToSlash(filepath.Clean(p))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		result.AddError(field, "must not escape the data directory")
	}
}

// ValidateSplitRequest validates the paths of a split request
func ValidateSplitRequest(s *config.SplitSettings) *ValidationResult {
	result := &ValidationResult{Valid: true}
	ValidateDatasetPath(result, "input", s.Input, true)
	ValidateDatasetPath(result, "output_dir", s.OutputDir, true)
	return result
}

// ValidateFoldRequest validates the paths of a fold request
func ValidateFoldRequest(s *config.FoldSettings) *ValidationResult {
	result := &ValidationResult{Valid: true}
	ValidateDatasetPath(result, "input", s.Input, true)
	ValidateDatasetPath(result, "output_dir", s.OutputDir, true)
	return result
}

// ValidateTransformRequest validates the paths of a transform request
func ValidateTransformRequest(s *config.TransformSettings) *ValidationResult {
	result := &ValidationResult{Valid: true}
	ValidateDatasetPath(result, "input", s.Input, true)
	ValidateDatasetPath(result, "output", s.Output, true)
	return result
}

// ValidateTrainRequest validates the paths of a train request
func ValidateTrainRequest(s *config.TrainSettings) *ValidationResult {
	result := &ValidationResult{Valid: true}
	ValidateDatasetPath(result, "train", s.Train, true)
	ValidateDatasetPath(result, "validation", s.Validation, false)
	ValidateDatasetPath(result, "test", s.Test, false)
	if s.ModelOutput != "" {
		if _, _, ok := store.ParseObjectLocation(s.ModelOutput); ok {
			result.AddError("model_output", "must be a local path")
		} else {
			ValidateDatasetPath(result, "model_output", s.ModelOutput, false)
		}
	}
	return result
}

// ParseJobStatus validates a status query parameter. An empty value means
// no filter.
func ParseJobStatus(s string) (*model.JobStatus, error) {
	if s == "" {
		return nil, nil
	}
	status := model.JobStatus(s)
	switch status {
	case model.JobStatusPending, model.JobStatusRunning, model.JobStatusCompleted,
		model.JobStatusFailed, model.JobStatusCancelling, model.JobStatusCancelled:
		return &status, nil
	}
	return nil, fmt.Errorf("unknown job status %q", s)
}

// validationResultFromError flattens configuration and validation errors,
// including joined ones, into per-field details.
func validationResultFromError(err error) *ValidationResult {
	result := &ValidationResult{Valid: true}
	collectValidationErrors(result, err)
	if !result.HasErrors() {
		result.AddError("", err.Error())
	}
	return result
}

func collectValidationErrors(result *ValidationResult, err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			collectValidationErrors(result, e)
		}
		return
	}

	var cfgErr *errors.ConfigurationError
	var valErr *errors.ValidationError
	switch {
	case stderrors.As(err, &cfgErr):
		message := cfgErr.Constraint
		if cfgErr.Value != nil {
			message = fmt.Sprintf("%s (got %v)", cfgErr.Constraint, cfgErr.Value)
		}
		result.AddError(cfgErr.Field, message)
	case stderrors.As(err, &valErr):
		result.AddError(valErr.Field, valErr.Message)
	}
}
