// Package apperr is the shared error model for all domain packages.
// Services return *APIError values; handlers translate them with ToHTTPStatus
// and BodyFrom. Codes are a closed set, add here rather than per package.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeUnavailable        Code = "UNAVAILABLE"
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeConflict           Code = "CONFLICT"
	CodeExternal           Code = "EXTERNAL_SERVICE"
	CodeParse              Code = "PARSE_ERROR"
	CodeInternal           Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrInvalid(msg string) *APIError      { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError     { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrUnavailable(msg string) *APIError  { return &APIError{Code: CodeUnavailable, Message: msg} }
func ErrInvariant(msg string) *APIError    { return &APIError{Code: CodeInvariantViolation, Message: msg} }
func ErrUnauthorized(msg string) *APIError { return &APIError{Code: CodeUnauthorized, Message: msg} }
func ErrConflict(msg string) *APIError     { return &APIError{Code: CodeConflict, Message: msg} }
func ErrExternal(msg string) *APIError     { return &APIError{Code: CodeExternal, Message: msg} }
func ErrParse(msg string) *APIError        { return &APIError{Code: CodeParse, Message: msg} }
func ErrInternal(msg string) *APIError     { return &APIError{Code: CodeInternal, Message: msg} }

// CodeOf returns the code carried by err, or CodeInternal for unknown errors.
func CodeOf(err error) Code {
	var api *APIError
	if errors.As(err, &api) {
		return api.Code
	}
	return CodeInternal
}

func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeConflict, CodeUnavailable:
		return http.StatusConflict
	case CodeExternal, CodeParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type ErrorBody struct {
	Error APIError `json:"error"`
}

func BodyFrom(err error) ErrorBody {
	var api *APIError
	if errors.As(err, &api) {
		return ErrorBody{Error: *api}
	}
	return ErrorBody{Error: APIError{Code: CodeInternal, Message: err.Error()}}
}
