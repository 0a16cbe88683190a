package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries an HTTP status and a stable machine code from the service layer to handlers.
// Raw holds an upstream diagnostic dump for responses that were unusable.
type Error struct {
	Status int
	Code   string
	Err    error
	Raw    string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func WithRaw(status int, code string, err error, raw string) *Error {
	return &Error{Status: status, Code: code, Err: err, Raw: raw}
}

func BadRequest(msg string) *Error {
	return New(http.StatusBadRequest, "invalid_request", errors.New(msg))
}

func NotFound(msg string) *Error {
	return New(http.StatusNotFound, "not_found", errors.New(msg))
}

// From returns err as an *Error, wrapping anything else as an internal failure.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, "internal", err)
}
