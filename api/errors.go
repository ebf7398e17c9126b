// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-liveplot.

package api

import "fmt"

// Common errors used across the library.
var (
	ErrTransportClosed  = fmt.Errorf("transport is closed")
	ErrInvalidArgument  = fmt.Errorf("invalid argument")
	ErrOperationTimeout = fmt.Errorf("operation timeout")
	ErrNotSupported     = fmt.Errorf("operation not supported")
	ErrAlreadyExists    = fmt.Errorf("resource already exists")
	ErrNotFound         = fmt.Errorf("resource not found")
)

// Protocol errors. Size and encoding checks fail before any I/O is attempted.
var (
	ErrHandshakeFailed        = fmt.Errorf("handshake failed")
	ErrEndpointUnreachable    = fmt.Errorf("endpoint unreachable")
	ErrReadTimeout            = fmt.Errorf("read timeout")
	ErrSegmentCreateFailed    = fmt.Errorf("shared memory segment create failed")
	ErrSegmentNotFound        = fmt.Errorf("shared memory segment not found")
	ErrSegmentNotLocked       = fmt.Errorf("shared memory segment accessed without lock")
	ErrSegmentDetached        = fmt.Errorf("shared memory segment detached")
	ErrPayloadTooLarge        = fmt.Errorf("payload too large")
	ErrHeaderTooLarge         = fmt.Errorf("header too large")
	ErrUnsupportedElementType = fmt.Errorf("unsupported element type")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeTimeout
	ErrCodeNotSupported
	ErrCodeAlreadyExists
	ErrCodeNotFound
	ErrCodeInternal
)

// Error represents a structured error with code and context.
// Err, when set, is the sentinel reported by errors.Is.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = e.Err.Error() + ": " + msg
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying sentinel.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap creates a structured error reporting sentinel as its cause.
func Wrap(code ErrorCode, sentinel error, message string) *Error {
	e := NewError(code, message)
	e.Err = sentinel
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// PayloadTooLargeError reports a payload that cannot fit into a segment.
type PayloadTooLargeError struct {
	Len      int
	Capacity int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload too large: %d > %d", e.Len, e.Capacity)
}

// Is matches ErrPayloadTooLarge.
func (e *PayloadTooLargeError) Is(target error) bool {
	return target == ErrPayloadTooLarge
}

// HeaderTooLargeError reports a command header whose encoding exceeds the frame width.
type HeaderTooLargeError struct {
	Len   int
	Limit int
}

func (e *HeaderTooLargeError) Error() string {
	return fmt.Sprintf("header too large: %d > %d bytes", e.Len, e.Limit)
}

// Is matches ErrHeaderTooLarge.
func (e *HeaderTooLargeError) Is(target error) bool {
	return target == ErrHeaderTooLarge
}

// UnsupportedElementTypeError names a Go element type with no wire tag.
type UnsupportedElementTypeError struct {
	Type string
}

func (e *UnsupportedElementTypeError) Error() string {
	return fmt.Sprintf("unsupported element type %s", e.Type)
}

// Is matches ErrUnsupportedElementType.
func (e *UnsupportedElementTypeError) Is(target error) bool {
	return target == ErrUnsupportedElementType
}
