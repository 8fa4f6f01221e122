// Package domainerrors defines the coded error taxonomy shared by the
// resource model, the services and the HTTP layer.
//
// Stores return sentinel errors (see pkg/platform/sentinel); services translate
// them into coded errors from this package, and handlers render the code with
// ToHTTPStatus. Validation helpers carry the offending field name so clients
// can point at the exact input that was rejected.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	CodeInvalidIdentifier Code = "invalid_identifier"
	CodeMissingField      Code = "missing_field"
	CodeInvalidValue      Code = "invalid_value"
	CodeInvalidDate       Code = "invalid_date"
	CodeDanglingReference Code = "dangling_reference"
	CodeSelfMerge         Code = "self_merge"
	CodeNotFound          Code = "not_found"
	CodeStoreUnavailable  Code = "store_unavailable"
	CodeBadRequest        Code = "bad_request"
	CodeInternal          Code = "internal_error"
)

// Error is a coded domain error. Field and Value are optional detail.
type Error struct {
	Code    Code
	Message string
	Field   string
	Value   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a coded error with the given message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf is New with a format string.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// MissingField reports a required field absent from the input.
func MissingField(field string) error {
	return &Error{Code: CodeMissingField, Field: field, Message: fmt.Sprintf("%s is required", field)}
}

// InvalidValue reports a field whose value is malformed or out of range.
func InvalidValue(field, reason string) error {
	return &Error{Code: CodeInvalidValue, Field: field, Message: fmt.Sprintf("%s %s", field, reason)}
}

// InvalidDate reports a field that is not a YYYY-MM-DD calendar date.
func InvalidDate(field, raw string) error {
	return &Error{
		Code:    CodeInvalidDate,
		Field:   field,
		Value:   raw,
		Message: fmt.Sprintf("%s must be a calendar date (YYYY-MM-DD), got %q", field, raw),
	}
}

// InvalidIdentifier reports a field (or path segment) that is not a canonical identifier.
func InvalidIdentifier(field, raw string) error {
	return &Error{
		Code:    CodeInvalidIdentifier,
		Field:   field,
		Value:   raw,
		Message: fmt.Sprintf("%s must be a 24 character hex identifier", field),
	}
}

// DanglingReference reports a reference field whose target does not exist.
func DanglingReference(field string, id fmt.Stringer) error {
	return &Error{
		Code:    CodeDanglingReference,
		Field:   field,
		Value:   id.String(),
		Message: fmt.Sprintf("%s references %s which does not exist", field, id),
	}
}

// HasCode reports whether the first coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the first coded error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// As returns the first coded error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// ToHTTPStatus maps a code to the HTTP status the transport responds with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidIdentifier, CodeBadRequest:
		return http.StatusBadRequest
	case CodeMissingField, CodeInvalidValue, CodeInvalidDate, CodeDanglingReference, CodeSelfMerge:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
