package errors

// ErrorCategory classifies errors by how a run should react to them.
type ErrorCategory string

const (
	// CategoryTransient indicates failures that depend on timing or load.
	// Examples: oracle timeouts, a UI action that raced a redraw.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures that will repeat on retry.
	// Examples: an unknown tool, a non-numeric integer argument.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryInternal indicates bugs or recovered panics.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient
}

// ErrorCode identifies a specific failure.
type ErrorCode string

const (
	// Decision loop
	ErrCodeProtocolViolation   ErrorCode = "PROTOCOL_VIOLATION" // Oracle reply matched neither marker
	ErrCodeUnknownTool         ErrorCode = "UNKNOWN_TOOL"       // FunctionCall named an unregistered tool
	ErrCodeInsufficientArgs    ErrorCode = "INSUFFICIENT_ARGUMENTS"
	ErrCodeTypeCoercion        ErrorCode = "TYPE_COERCION" // Raw argument did not parse as its declared type
	ErrCodeToolCall            ErrorCode = "TOOL_CALL"     // Transport failure while invoking a tool
	ErrCodeOracleTimeout       ErrorCode = "ORACLE_TIMEOUT"
	ErrCodeOracleFault         ErrorCode = "ORACLE_FAULT"
	ErrCodeIterationsExhausted ErrorCode = "ITERATIONS_EXHAUSTED" // No final answer within the round limit

	// Automation
	ErrCodeUIAction ErrorCode = "UI_ACTION" // One strategy attempt failed
	ErrCodeAppStart ErrorCode = "APP_START" // Every start candidate failed

	// Generic
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeCanceled     ErrorCode = "CANCELED"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeInternal     ErrorCode = "INTERNAL"
	ErrCodePanic        ErrorCode = "PANIC"
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeOracleTimeout, ErrCodeOracleFault, ErrCodeToolCall, ErrCodeUIAction, ErrCodeTimeout:
		return CategoryTransient

	case ErrCodeProtocolViolation, ErrCodeUnknownTool, ErrCodeInsufficientArgs, ErrCodeTypeCoercion,
		ErrCodeIterationsExhausted, ErrCodeAppStart, ErrCodeInvalidInput, ErrCodeCanceled:
		return CategoryPermanent

	default:
		return CategoryInternal
	}
}

var codeDescriptions = map[ErrorCode]string{
	ErrCodeProtocolViolation:   "response matched neither FUNCTION_CALL nor FINAL_ANSWER",
	ErrCodeUnknownTool:         "unknown tool",
	ErrCodeInsufficientArgs:    "not enough parameters provided",
	ErrCodeTypeCoercion:        "argument does not match declared type",
	ErrCodeToolCall:            "tool invocation failed",
	ErrCodeOracleTimeout:       "oracle generation timed out",
	ErrCodeOracleFault:         "oracle generation failed",
	ErrCodeIterationsExhausted: "no final answer within the iteration limit",
	ErrCodeUIAction:            "ui action failed",
	ErrCodeAppStart:            "could not start the target application",
	ErrCodeInvalidInput:        "invalid input provided",
	ErrCodeCanceled:            "operation canceled",
	ErrCodeTimeout:             "operation timed out",
	ErrCodeInternal:            "internal error",
	ErrCodePanic:               "recovered from panic",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
