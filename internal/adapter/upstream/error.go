package upstream

import (
	"errors"
	"fmt"
)

// Error describes a failed provider request.
type Error struct {
	Provider string
	Status   int    // HTTP status, 0 when the request never completed
	Code     string // provider error code from the response body, if any
	Err      error
}

func (e *Error) Error() string {
	msg := e.Provider
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
