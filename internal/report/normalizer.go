// Package report converts the two failure shapes produced by the engine into
// the single DetailedError record the rest of the core operates on.
package report

import (
	"errors"
	"log/slog"
	"reflect"

	"github.com/rendis/diagrun/pkg/schema"
)

// Hook is the caller-supplied error handler invoked as a side effect of
// normalization and of queue-unit failures. For structured failures it
// receives the message string and the classification hash; for everything
// else it receives the raw failure and an empty hash.
type Hook func(failure any, hash string)

// Normalizer classifies heterogeneous failure values. Safe for concurrent
// use; it holds no mutable state.
type Normalizer struct {
	logger *slog.Logger
	hook   Hook
}

// New creates a Normalizer. hook may be nil.
func New(logger *slog.Logger, hook Hook) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger, hook: hook}
}

// Normalize converts a failure into a DetailedError. The second return value
// reports whether the record should be appended to a caller-visible error
// collection: failure values that are not errors at all produce no record,
// only a log line and a hook call. Never panics or errors on its own.
func (n *Normalizer) Normalize(failure any) (*schema.DetailedError, bool) {
	n.logger.Warn("diagram operation failed", slog.Any("failure", failure))

	err, ok := failure.(error)
	if !ok {
		if n.hook != nil {
			n.hook(failure, "")
		}
		return nil, false
	}

	var pe *schema.ParseError
	if errors.As(err, &pe) {
		if n.hook != nil {
			n.hook(pe.Str, pe.Hash)
		}
		return &schema.DetailedError{
			Str:     pe.Str,
			Hash:    pe.Hash,
			Message: pe.Str,
			Err:     err,
		}, true
	}

	if n.hook != nil {
		n.hook(err, "")
	}
	return &schema.DetailedError{
		Str:     err.Error(),
		Hash:    categoryOf(err),
		Message: err.Error(),
		Err:     err,
	}, true
}

// categoryOf derives the fallback hash for a generic failure: the structured
// error code when available, otherwise the dynamic type name.
func categoryOf(err error) string {
	var se *schema.Error
	if errors.As(err, &se) {
		return se.Code
	}

	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}
