// Package errors provides custom error types for the gridalign engine.
// These errors enable programmatic error checking and carry the offending
// dataset/variable name, so alignment failures are diagnosable without
// re-running the pipeline.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the gridalign engine
var (
	// ErrNotFound indicates that a requested dataset or variable was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates that a feature is not yet implemented
	ErrNotImplemented = errors.New("not implemented")

	// ErrReadOnly indicates an attempt to modify a read-only resource
	ErrReadOnly = errors.New("read only")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// ValidationError represents a configuration validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// TypeConformanceError indicates that an input under a given key is not a
// recognized Dataset
type TypeConformanceError struct {
	Dataset string
	Got     string
}

// Error implements the error interface
func (e *TypeConformanceError) Error() string {
	return fmt.Sprintf("expected a raster dataset for %q, got %s", e.Dataset, e.Got)
}

// Is implements errors.Is support
func (e *TypeConformanceError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewTypeConformanceError creates a new TypeConformanceError
func NewTypeConformanceError(dataset, got string) *TypeConformanceError {
	return &TypeConformanceError{Dataset: dataset, Got: got}
}

// CRSResolutionError indicates that no coordinate reference system could be
// inferred for a dataset, or that a required CRS transform is unsupported
type CRSResolutionError struct {
	Dataset string
	Message string
}

// Error implements the error interface
func (e *CRSResolutionError) Error() string {
	if e.Dataset != "" {
		return fmt.Sprintf("could not resolve CRS for dataset %q: %s", e.Dataset, e.Message)
	}
	return fmt.Sprintf("could not resolve CRS: %s", e.Message)
}

// NewCRSResolutionError creates a new CRSResolutionError
func NewCRSResolutionError(dataset, message string) *CRSResolutionError {
	return &CRSResolutionError{Dataset: dataset, Message: message}
}

// DimensionInferenceError indicates that no recognizable horizontal axis name
// was found on a variable
type DimensionInferenceError struct {
	Dataset    string
	Variable   string
	Axis       string // "x" or "y"
	Candidates []string
}

// Error implements the error interface
func (e *DimensionInferenceError) Error() string {
	where := e.Variable
	if e.Dataset != "" {
		where = e.Dataset + "." + e.Variable
	}
	return fmt.Sprintf("could not infer %s dimension for %s (tried %s)",
		e.Axis, where, strings.Join(e.Candidates, ", "))
}

// NewDimensionInferenceError creates a new DimensionInferenceError
func NewDimensionInferenceError(dataset, variable, axis string, candidates []string) *DimensionInferenceError {
	return &DimensionInferenceError{Dataset: dataset, Variable: variable, Axis: axis, Candidates: candidates}
}

// ResamplingSpecError indicates an unparseable or unknown resampling method
// name, a wrong spec shape, or a missing dataset key
type ResamplingSpecError struct {
	Dataset  string
	Variable string
	Method   string
	Message  string
}

// Error implements the error interface
func (e *ResamplingSpecError) Error() string {
	var b strings.Builder
	b.WriteString("resampling spec error")
	if e.Dataset != "" {
		fmt.Fprintf(&b, " for dataset %q", e.Dataset)
	}
	if e.Variable != "" {
		fmt.Fprintf(&b, " variable %q", e.Variable)
	}
	if e.Method != "" {
		fmt.Fprintf(&b, " (method %q)", e.Method)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// Is implements errors.Is support
func (e *ResamplingSpecError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewResamplingSpecError creates a new ResamplingSpecError
func NewResamplingSpecError(dataset, variable, method, message string) *ResamplingSpecError {
	return &ResamplingSpecError{Dataset: dataset, Variable: variable, Method: method, Message: message}
}

// GridExtractionError indicates that a reference dataset lacks the spatial
// metadata needed to build a grid specification
type GridExtractionError struct {
	Dataset string
	Message string
	Err     error
}

// Error implements the error interface
func (e *GridExtractionError) Error() string {
	return fmt.Sprintf("failed to extract spatial grid from dataset %q: %s", e.Dataset, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *GridExtractionError) Unwrap() error {
	return e.Err
}

// NewGridExtractionError creates a new GridExtractionError
func NewGridExtractionError(dataset, message string, err error) *GridExtractionError {
	return &GridExtractionError{Dataset: dataset, Message: message, Err: err}
}

// MergeError indicates that aligned datasets disagree on shared-dimension
// coordinate values, or that two datasets carry conflicting variables
type MergeError struct {
	Dimension string
	Datasets  []string
	Message   string
}

// Error implements the error interface
func (e *MergeError) Error() string {
	if e.Dimension != "" {
		return fmt.Sprintf("merge conflict on dimension %q between %v: %s", e.Dimension, e.Datasets, e.Message)
	}
	return fmt.Sprintf("merge conflict between %v: %s", e.Datasets, e.Message)
}

// NewMergeError creates a new MergeError
func NewMergeError(dimension string, datasets []string, message string) *MergeError {
	return &MergeError{Dimension: dimension, Datasets: datasets, Message: message}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotImplemented checks if an error indicates an unimplemented feature
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// AsCRSResolution reports whether err is a CRSResolutionError and returns it
func AsCRSResolution(err error) (*CRSResolutionError, bool) {
	var e *CRSResolutionError
	ok := errors.As(err, &e)
	return e, ok
}

// AsMerge reports whether err is a MergeError and returns it
func AsMerge(err error) (*MergeError, bool) {
	var e *MergeError
	ok := errors.As(err, &e)
	return e, ok
}

// AsResamplingSpec reports whether err is a ResamplingSpecError and returns it
func AsResamplingSpec(err error) (*ResamplingSpecError, bool) {
	var e *ResamplingSpecError
	ok := errors.As(err, &e)
	return e, ok
}
