package errors

import (
	"encoding/json"
	"fmt"
	"time"
)

// Error is the structured error used across the agent and the sequencer.
type Error struct {
	code      ErrorCode
	category  ErrorCategory
	message   string
	cause     error
	metadata  map[string]string
	timestamp time.Time
	runID     string
	iteration int // 1-based; 0 when not tied to a round
}

var (
	_ json.Marshaler   = (*Error)(nil)
	_ json.Unmarshaler = (*Error)(nil)
)

// Error returns the error message.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.category
}

// Retryable reports whether the category allows a retry.
// The decision loop never retries; this only informs callers.
func (e *Error) Retryable() bool {
	return e.category.IsRetryable()
}

// Metadata returns a copy of the error metadata.
func (e *Error) Metadata() map[string]string {
	result := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		result[k] = v
	}
	return result
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Timestamp returns when the error occurred.
func (e *Error) Timestamp() time.Time {
	return e.timestamp
}

// RunID returns the run the error belongs to, if set.
func (e *Error) RunID() string {
	return e.runID
}

// Iteration returns the 1-based round the error occurred in, or 0.
func (e *Error) Iteration() int {
	return e.iteration
}

type errorJSON struct {
	Code      ErrorCode         `json:"code"`
	Category  ErrorCategory     `json:"category"`
	Message   string            `json:"message"`
	Cause     string            `json:"cause,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
	RunID     string            `json:"run_id,omitempty"`
	Iteration int               `json:"iteration,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	j := errorJSON{
		Code:      e.code,
		Category:  e.category,
		Message:   e.message,
		Metadata:  e.metadata,
		RunID:     e.runID,
		Iteration: e.iteration,
	}
	if e.cause != nil {
		j.Cause = e.cause.Error()
	}
	if !e.timestamp.IsZero() {
		j.Timestamp = e.timestamp.Format(time.RFC3339Nano)
	}
	return json.Marshal(j)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Error) UnmarshalJSON(data []byte) error {
	var j errorJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	e.code = j.Code
	e.category = j.Category
	e.message = j.Message
	e.metadata = j.Metadata
	e.runID = j.RunID
	e.iteration = j.Iteration
	if j.Cause != "" {
		e.cause = fmt.Errorf("%s", j.Cause)
	}
	if j.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339Nano, j.Timestamp); err == nil {
			e.timestamp = t
		}
	}
	return nil
}

// Option is a functional option for configuring an Error.
type Option func(*Error)

// WithCategory overrides the default category.
func WithCategory(cat ErrorCategory) Option {
	return func(e *Error) {
		e.category = cat
	}
}

// WithMetadata adds a metadata key-value pair.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithRunID tags the error with the run that produced it.
func WithRunID(id string) Option {
	return func(e *Error) {
		e.runID = id
	}
}

// WithIteration tags the error with a 1-based round number.
func WithIteration(n int) Option {
	return func(e *Error) {
		e.iteration = n
	}
}

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:      code,
		category:  code.DefaultCategory(),
		message:   message,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// FromCode creates an error carrying the default description for the code.
func FromCode(code ErrorCode, opts ...Option) *Error {
	return New(code, code.Description(), opts...)
}

// ProtocolViolation reports an oracle reply that fits neither marker.
func ProtocolViolation(reply string) *Error {
	return New(ErrCodeProtocolViolation,
		fmt.Sprintf("unparseable response: %q", truncate(reply, 200)),
		WithMetadata("reply", truncate(reply, 500)))
}

// UnknownTool reports a call to a tool that is not in the catalog.
func UnknownTool(name string) *Error {
	return New(ErrCodeUnknownTool, fmt.Sprintf("Unknown tool: %s", name), WithMetadata("tool", name))
}

// InsufficientArgs reports a call that ran out of raw arguments.
func InsufficientArgs(tool string) *Error {
	return New(ErrCodeInsufficientArgs, fmt.Sprintf("Not enough parameters provided for %s", tool),
		WithMetadata("tool", tool))
}

// TypeCoercion reports a raw argument that does not parse as its declared type.
func TypeCoercion(param, declared, raw string, cause error) *Error {
	return New(ErrCodeTypeCoercion,
		fmt.Sprintf("parameter %s: cannot convert %q to %s", param, raw, declared),
		WithCause(cause),
		WithMetadata("param", param),
		WithMetadata("type", declared))
}

// AppStart reports that no start candidate produced an application.
func AppStart(candidates int, cause error) *Error {
	return New(ErrCodeAppStart,
		fmt.Sprintf("could not start the application with any of %d candidates", candidates),
		WithCause(cause))
}

// Internal creates an internal error.
func Internal(message string, opts ...Option) *Error {
	return New(ErrCodeInternal, message, opts...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
