// Package errors provides the error taxonomy for quotesync.
// Every failure the sync engine can surface has a typed form here so callers
// can branch with errors.Is / errors.As instead of matching strings.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Sentinel errors.
var (
	// ErrNotFound indicates that a requested record or conflict was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrRemoteUnavailable indicates a transport failure or non-2xx response from the remote source
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrMalformedRecord indicates a single remote entry was missing required fields
	ErrMalformedRecord = errors.New("malformed remote record")

	// ErrMalformedImport indicates bulk input was not a list of well-formed records
	ErrMalformedImport = errors.New("malformed import")

	// ErrPersistence indicates a durable storage write failed
	ErrPersistence = errors.New("persistence failed")

	// ErrNoBackupAvailable indicates undo was requested before any sync pass ran
	ErrNoBackupAvailable = errors.New("no backup available")

	// ErrSyncInProgress indicates a pass was requested while another one is running
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("no %s available", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
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
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents a non-success HTTP response.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Endpoint, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError
func NewAPIError(endpoint string, statusCode int, message string) *APIError {
	return &APIError{Endpoint: endpoint, StatusCode: statusCode, Message: message}
}

// RemoteUnavailableError wraps any failure to reach the remote source:
// transport errors, non-2xx responses and undecodable bodies.
type RemoteUnavailableError struct {
	Operation  string // "list", "submit"
	Endpoint   string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *RemoteUnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote unavailable during %s of %s (status %d)", e.Operation, e.Endpoint, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("remote unavailable during %s of %s: %v", e.Operation, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("remote unavailable during %s of %s", e.Operation, e.Endpoint)
}

// Unwrap implements errors.Unwrap
func (e *RemoteUnavailableError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *RemoteUnavailableError) Is(target error) bool {
	return target == ErrRemoteUnavailable
}

// NewRemoteUnavailableError creates a new RemoteUnavailableError
func NewRemoteUnavailableError(operation, endpoint string, statusCode int, err error) *RemoteUnavailableError {
	return &RemoteUnavailableError{
		Operation:  operation,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Err:        err,
	}
}

// MalformedRecordError describes one remote entry that could not be mapped
// into a record. It is logged and skipped, never returned from a pass.
type MalformedRecordError struct {
	Index  int
	Field  string
	Reason string
}

// Error implements the error interface
func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("remote entry %d: %s %s", e.Index, e.Field, e.Reason)
}

// Is implements errors.Is support
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// MalformedImportError rejects a whole import.
// Index is -1 when the input as a whole is unusable.
type MalformedImportError struct {
	Index  int
	Reason string
	Err    error
}

// Error implements the error interface
func (e *MalformedImportError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed import: %s", e.Reason)
	}
	return fmt.Sprintf("malformed import: item %d: %s", e.Index, e.Reason)
}

// Unwrap implements errors.Unwrap
func (e *MalformedImportError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *MalformedImportError) Is(target error) bool {
	return target == ErrMalformedImport
}

// NewMalformedImportError creates a new MalformedImportError
func NewMalformedImportError(index int, reason string, err error) *MalformedImportError {
	return &MalformedImportError{Index: index, Reason: reason, Err: err}
}

// PersistenceError reports a failed durable write. The in-memory state the
// write was mirroring stays authoritative.
type PersistenceError struct {
	Key string
	Err error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Key, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NewPersistenceError creates a new PersistenceError
func NewPersistenceError(key string, err error) *PersistenceError {
	return &PersistenceError{Key: key, Err: err}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "lock", "rename"
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("IO error during %s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "load", "start"
	Resource  string // "store", "scheduler", "server"
	ID        string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %v", e.Operation, e.Resource, e.ID, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Resource, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// TimeoutError represents an operation timeout
type TimeoutError struct {
	Operation string
	Duration  string
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation %s timed out after %s", e.Operation, e.Duration)
}

// Is implements errors.Is support
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
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

// IsRemoteUnavailable checks if an error came from an unreachable remote
func IsRemoteUnavailable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable)
}

// IsMalformedImport checks if an error rejected an import
func IsMalformedImport(err error) bool {
	return errors.Is(err, ErrMalformedImport)
}

// IsPersistence checks if an error is a durable write failure
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsSyncInProgress checks if an error is the re-entrant pass signal
func IsSyncInProgress(err error) bool {
	return errors.Is(err, ErrSyncInProgress)
}

// IsNoBackup checks if an error reports a missing undo snapshot
func IsNoBackup(err error) bool {
	return errors.Is(err, ErrNoBackupAvailable)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return &ResourceError{Operation: operation, Resource: resource, ID: id, Err: err}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
