package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryRouting  Category = "routing"
	CategoryProtocol Category = "protocol"
	CategoryHistory  Category = "history"
	CategoryStorage  Category = "storage"
	CategoryConfig   Category = "config"
)

// NavigareError is a structured error with a registered code and optional hints.
type NavigareError struct {
	// Code is a unique error identifier (e.g., "N001").
	Code string

	// Category is the error type (routing, protocol, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *NavigareError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *NavigareError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a NavigareError carrying the same code.
func (e *NavigareError) Is(target error) bool {
	t, ok := target.(*NavigareError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *NavigareError) WithSuggestion(s string) *NavigareError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *NavigareError) WithDetail(d string) *NavigareError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *NavigareError) Wrap(err error) *NavigareError {
	e.Wrapped = err
	return e
}

// New creates a NavigareError from a registered error code.
func New(code string) *NavigareError {
	template, ok := registry[code]
	if !ok {
		return &NavigareError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &NavigareError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new NavigareError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *NavigareError {
	return &NavigareError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a NavigareError.
func FromError(err error, code string) *NavigareError {
	if err == nil {
		return nil
	}
	var ne *NavigareError
	if stderrors.As(err, &ne) {
		return ne
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code string) bool {
	var ne *NavigareError
	for err != nil {
		if stderrors.As(err, &ne) {
			if ne.Code == code {
				return true
			}
			err = ne.Wrapped
			continue
		}
		return false
	}
	return false
}
