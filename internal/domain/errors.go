package domain

import (
	"errors"
	"fmt"
)

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeConflict     = "conflict"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeInternal     = "internal_error"
	ErrorTypeUnavailable  = "backend_unavailable"
)

// Error taxonomy for the data-access layer.
//
// Mapping and dangling-reference problems are absorbed close to the backend
// (records are skipped or references nil'd out); conflict, unavailable and
// validation errors propagate unmodified to the facade boundary.
var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrValidation is returned when caller-supplied data violates an
	// invariant, before any backend call is made
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateCaseCode is returned when concurrent writers raced the
	// find-max-then-create sequence to the same case code. Recoverable:
	// retry with a fresh sequence read.
	ErrDuplicateCaseCode = errors.New("duplicate case code")

	// ErrPartsSyncFailed is returned when a parts replacement failed part
	// way through its delete/recreate phases. The case's parts are in an
	// indeterminate state; reconcile manually, do not blindly retry.
	ErrPartsSyncFailed = errors.New("parts replacement incomplete")

	// ErrBackendUnavailable is returned for network-level or timeout
	// failures talking to the active backend. Never falls back to the
	// other backend.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// MappingError reports a malformed primitive value on read. The caller logs
// it and skips the record; it is never fatal to the whole query.
type MappingError struct {
	Entity string
	Record string
	Field  string
	Err    error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping %s record %s field %q: %v", e.Entity, e.Record, e.Field, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// NewMappingError wraps a field-level parse failure
func NewMappingError(entity, record, field string, err error) *MappingError {
	return &MappingError{Entity: entity, Record: record, Field: field, Err: err}
}
