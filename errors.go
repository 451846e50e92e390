// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is reported for malformed arguments, before any
	// message is sent.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTransportUnavailable is reported when the frame of an embed has no
	// content window to post to.
	ErrTransportUnavailable = errors.New("transport unavailable")

	// ErrNotRunning is reported when a host is not started, or has stopped.
	ErrNotRunning = errors.New("host is not running")
)

func invalidArgf(msg string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(msg, args...))
}

// CallError is the concrete type of errors reported by the Call method of an
// Embed. For errors reported by the viewer, Err is nil and Remote holds the
// error payload exactly as the viewer sent it.
type CallError struct {
	Method string
	Err    error           // nil for remote errors
	Remote json.RawMessage // set if the error came from a reply
}

func callError(method string, err error) *CallError { return &CallError{Method: method, Err: err} }

// Unwrap reports the underlying error of c. If c.Err == nil, this is nil.
func (c *CallError) Unwrap() error { return c.Err }

// Error satisfies the error interface.
func (c *CallError) Error() string {
	if c.Err != nil {
		return fmt.Sprintf("call %s: %v", c.Method, c.Err)
	}
	return fmt.Sprintf("call %s: remote error: %s", c.Method, c.Message())
}

// Message returns the text of the remote error. If the payload is a JSON
// string, this is the value of the string; otherwise it is the JSON text.
func (c *CallError) Message() string {
	var s string
	if json.Unmarshal(c.Remote, &s) == nil {
		return s
	}
	return string(c.Remote)
}
