/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"errors"
	"fmt"
)

// StatusError is the error type every service layer returns. The Reason code
// survives wrapping so that handlers can map any error back to an HTTP status.
type StatusError struct {
	HttpCode int
	Reason   string
	Message  string
	Cause    error
}

func (e *StatusError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("code %s message %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("code %s message %s cause %s", e.Reason, e.Message, e.Cause.Error())
}

func (e *StatusError) Unwrap() error {
	return e.Cause
}

func (e *StatusError) WithCause(err error) *StatusError {
	e.Cause = err
	return e
}

// ReasonForError returns the stash reason code carried by err, or an empty
// string when err is not a StatusError.
func ReasonForError(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Reason
	}
	return ""
}

// HttpCodeForError returns the HTTP status carried by err, falling back to 500.
func HttpCodeForError(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.HttpCode
	}
	return 500
}
