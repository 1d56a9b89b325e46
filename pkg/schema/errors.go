package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeParse      = "PARSE_ERROR"
	ErrCodeRender     = "RENDER_ERROR"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNoElements = "NO_ELEMENTS"
	ErrCodeCallback   = "CALLBACK_ERROR"
	ErrCodeStore      = "STORE_ERROR"
)

// Error is the structured error type for diagrun operations.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// ParseError is the structured failure shape produced by the engine when
// diagram text cannot be parsed. Hash is a short classification token used
// for correlation; Str is the human-readable message.
type ParseError struct {
	Str  string `json:"str"`
	Hash string `json:"hash"`
	Line int    `json:"line,omitempty"`
}

func (e *ParseError) Error() string {
	return e.Str
}

// DetailedError is the normalized failure record surfaced to callers and
// error hooks. It is produced from either a structured ParseError or a
// generic error; Message always mirrors Str.
type DetailedError struct {
	Str     string
	Hash    string
	Message string
	Err     error // original failure, kept for diagnostic passthrough
}

func (d *DetailedError) Error() string {
	return d.Message
}

func (d *DetailedError) Unwrap() error {
	return d.Err
}
