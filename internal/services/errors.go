package services

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrProvider            = errors.New("provider error")
	ErrConcurrentOperation = errors.New("concurrent operation")
	ErrCancelled           = errors.New("operation cancelled")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrConfiguration       = errors.New("configuration error")
	ErrNotFound            = errors.New("not found")
)

// Kind names an error marker for logs, API payloads, and persisted stage errors.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindProvider            Kind = "provider"
	KindConcurrentOperation Kind = "concurrent_operation"
	KindCancelled           Kind = "cancelled"
	KindInvalidTransition   Kind = "invalid_transition"
	KindConfiguration       Kind = "configuration"
	KindNotFound            Kind = "not_found"
	KindUnknown             Kind = "unknown"
)

// Error carries stage context alongside the marker it was classified with.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	marker := "service failure"
	if e.Marker != nil {
		marker = e.Marker.Error()
	}
	if e.Cause != nil {
		return marker + ": " + detail + ": " + e.Cause.Error()
	}
	return marker + ": " + detail
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Marker != nil {
		out = append(out, e.Marker)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above; nil falls back to ErrProvider.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrProvider
	}
	return &Error{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// ErrorDetails is the flattened view of a classified error.
type ErrorDetails struct {
	Kind      Kind
	Stage     string
	Operation string
	Message   string
	Cause     error
}

// Details extracts classification data from err. Errors that were not built
// with Wrap still receive a Kind derived from the sentinel chain.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: KindOf(err)}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		details.Stage = svcErr.Stage
		details.Operation = svcErr.Operation
		details.Message = svcErr.Message
		details.Cause = svcErr.Cause
	}
	if details.Message == "" {
		details.Message = err.Error()
	}
	return details
}

// KindOf classifies err against the sentinel markers.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrConcurrentOperation):
		return KindConcurrentOperation
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrProvider), errors.Is(err, context.DeadlineExceeded):
		return KindProvider
	default:
		return KindUnknown
	}
}

// IsCancellation reports whether err represents a cancelled operation rather
// than a failure.
func IsCancellation(err error) bool {
	return KindOf(err) == KindCancelled
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
