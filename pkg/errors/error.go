// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid backtest/strategy configuration, bad parameters
//   - Data/Resource errors (200-299): Missing market data, cache, persistence and access errors
//   - Indicator errors (300-399): Technical indicator calculation and condition evaluation
//   - Trading errors (500-599): Simulated order execution and position management errors
//   - Backtest errors (600-699): Backtesting engine errors
//   - Callback errors (800-899): Callback execution failures
//
// The backtest engine only returns configuration and data-unavailable errors to its caller.
// Insufficient funds and suppressed evaluations are absorbed into order status and run
// diagnostics.
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeDataUnavailable, "no bars for %s", symbol)
//	if errors.IsConfigurationError(err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// hasCodeInChain walks the whole chain instead of stopping at the outermost *Error.
func hasCodeInChain(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}

		if e.Code == code {
			return true
		}

		err = e.Cause
	}

	return false
}

// IsConfigurationError reports whether err was caused by an invalid backtest or strategy configuration.
func IsConfigurationError(err error) bool {
	return hasCodeInChain(err, ErrCodeInvalidConfiguration) ||
		hasCodeInChain(err, ErrCodeInvalidStrategy) ||
		hasCodeInChain(err, ErrCodeInvalidCondition)
}

// IsDataUnavailable reports whether err signals missing historical data.
func IsDataUnavailable(err error) bool {
	return hasCodeInChain(err, ErrCodeDataUnavailable)
}

// IsInsufficientFunds reports whether err signals an order that could not be paid for.
func IsInsufficientFunds(err error) bool {
	return hasCodeInChain(err, ErrCodeInsufficientFunds)
}
