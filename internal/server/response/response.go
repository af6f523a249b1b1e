// Package response writes the API's JSON envelope: a data field on
// success and an error field on failure.
package response

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/agentstation/quotesync/pkg/errors"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error describes a failed request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Success wraps data.
func Success(data any) Response {
	return Response{Data: data}
}

// Fail wraps an error.
func Fail(code, message, details string) Response {
	return Response{
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// JSON writes resp with status.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// OK writes a 200 response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

// Created writes a 201 response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Success(data))
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusBadRequest, Fail("BAD_REQUEST", message, details))
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusNotFound, Fail("NOT_FOUND", message, details))
}

// Conflict writes a 409 response.
func Conflict(w http.ResponseWriter, code, message, details string) {
	JSON(w, http.StatusConflict, Fail(code, message, details))
}

// BadGateway writes a 502 response for an unreachable remote source.
func BadGateway(w http.ResponseWriter, details string) {
	JSON(w, http.StatusBadGateway, Fail("REMOTE_UNAVAILABLE", "Remote source unavailable", details))
}

// InternalError writes a 500 response without exposing err.
func InternalError(w http.ResponseWriter, _ error) {
	JSON(w, http.StatusInternalServerError, Fail(
		"INTERNAL_ERROR",
		"Internal server error",
		"An unexpected error occurred",
	))
}

// ServiceUnavailable writes a 503 response.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	JSON(w, http.StatusServiceUnavailable, Fail("SERVICE_UNAVAILABLE", "Service unavailable", message))
}

// ErrorFromType maps typed errors to responses.
func ErrorFromType(w http.ResponseWriter, err error) {
	var (
		notFound   *errors.NotFoundError
		validation *errors.ValidationError
		malformed  *errors.MalformedImportError
		remote     *errors.RemoteUnavailableError
		config     *errors.ConfigError
	)

	switch {
	case stderrors.As(err, &notFound):
		NotFound(w, notFound.Error(), "")
	case stderrors.As(err, &validation):
		BadRequest(w, validation.Error(), "")
	case stderrors.As(err, &malformed):
		BadRequest(w, "Malformed import", malformed.Error())
	case errors.IsSyncInProgress(err):
		Conflict(w, "SYNC_IN_PROGRESS", "Sync already in progress", "Retry after the running pass completes")
	case errors.IsNoBackup(err):
		Conflict(w, "NO_BACKUP", "No backup available", "Run a sync before undoing")
	case stderrors.As(err, &remote):
		BadGateway(w, remote.Error())
	case stderrors.As(err, &config):
		ServiceUnavailable(w, config.Error())
	default:
		InternalError(w, err)
	}
}
