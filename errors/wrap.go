package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap adds message to err and keeps the chain. A structured cause lends its
// code, category and run position to the wrapper; a context error becomes
// TIMEOUT or CANCELED; anything else is INTERNAL. Wrap(nil, ...) is nil.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	if inner := As(err); inner != nil {
		return derive(inner, message, err, opts)
	}

	code := ErrCodeInternal
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		code = ErrCodeCanceled
	}
	return New(code, message, append(opts, WithCause(err))...)
}

// derive builds a wrapper that inherits inner's identity.
func derive(inner *Error, message string, cause error, opts []Option) *Error {
	e := &Error{
		code:      inner.code,
		category:  inner.category,
		message:   message,
		cause:     cause,
		metadata:  inner.Metadata(),
		timestamp: inner.timestamp,
		runID:     inner.runID,
		iteration: inner.iteration,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WrapWithCode wraps err under code regardless of what the chain carries.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	return New(code, message, append(opts, WithCause(err))...)
}

// As returns the outermost structured error in the chain, or nil.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Is reports whether the outermost structured error carries code.
func Is(err error, code ErrorCode) bool {
	e := As(err)
	return e != nil && e.code == code
}

// Code returns the chain's error code, or "".
func Code(err error) ErrorCode {
	if e := As(err); e != nil {
		return e.code
	}
	return ""
}

// IsPermanent reports a fault that repeating the run will not fix.
func IsPermanent(err error) bool {
	e := As(err)
	return e != nil && e.category == CategoryPermanent
}

// IsTransient reports a fault that may clear on a later run.
func IsTransient(err error) bool {
	e := As(err)
	return e != nil && e.category == CategoryTransient
}

// Cause returns the innermost error of the chain.
func Cause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// RecoverPanic turns a recovered panic value into a PANIC error, or nil.
func RecoverPanic(recovered interface{}) *Error {
	if recovered == nil {
		return nil
	}
	message := fmt.Sprint(recovered)
	if err, ok := recovered.(error); ok {
		message = err.Error()
	}
	return New(ErrCodePanic, message, WithMetadata("panic_value", fmt.Sprintf("%T", recovered)))
}
