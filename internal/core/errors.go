package core

import (
	"errors"
	"strings"
)

// Field names reported by ValidationError.
const (
	FieldTitle      = "title"
	FieldAmount     = "amount"
	FieldKind       = "kind"
	FieldCategory   = "category"
	FieldOccurredAt = "occurredAt"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotOwner         = errors.New("record belongs to another owner")
	ErrNotFound         = errors.New("record not found")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// ValidationError reports every invalid user-supplied field of a request.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

// Has reports whether the named field was rejected.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// StreamErrorKind classifies subscription delivery failures.
type StreamErrorKind string

const (
	StreamPermissionDenied StreamErrorKind = "permission_denied"
	StreamNetworkError     StreamErrorKind = "network_error"
	StreamUnknown          StreamErrorKind = "unknown"
)

// StreamError is a non-fatal subscription failure. The derived view built
// before the failure stays valid; consumers show it alongside the error.
type StreamError struct {
	Kind    StreamErrorKind
	Message string
}

func (e *StreamError) Error() string {
	return string(e.Kind) + ": " + e.Message
}
