// Package apierr tags service errors with the HTTP status and stable code a
// client sees. Handlers never build status codes themselves.
package apierr

import (
	"errors"
	"net/http"
)

const CodeInternal = "internal"

type Error struct {
	Status int
	Code   string
	Err    error
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code string, err error) *Error   { return New(http.StatusBadRequest, code, err) }
func Unauthorized(code string, err error) *Error { return New(http.StatusUnauthorized, code, err) }
func Forbidden(code string, err error) *Error    { return New(http.StatusForbidden, code, err) }
func NotFound(code string, err error) *Error     { return New(http.StatusNotFound, code, err) }

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Code + ": " + e.Err.Error()
	case e.Code != "":
		return e.Code
	default:
		return http.StatusText(e.status())
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code, so callers can test against a bare
// template such as &apierr.Error{Code: "thread_not_found"}.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil || e == nil {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

func (e *Error) status() int {
	if e == nil || e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// Internal reports whether the error is a server fault whose detail must
// stay in the logs.
func (e *Error) Internal() bool { return e.status() >= http.StatusInternalServerError }

// Public is the message safe to hand to a client.
func (e *Error) Public() string {
	if e.Internal() {
		return "internal error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return http.StatusText(e.status())
}

// From finds the *Error in err's chain. Anything else is a 500.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		out := *ae
		out.Status = ae.status()
		if out.Code == "" && out.Internal() {
			out.Code = CodeInternal
		}
		return &out
	}
	return New(http.StatusInternalServerError, CodeInternal, err)
}
