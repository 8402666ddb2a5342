// Package errs provides unified error classification for the worker core.
//
// Codes group the §7 error kinds so callers can classify an error with Is
// without string-matching messages. The lifecycle engine does not branch on
// them: every Execute error marks the request Failed and is nacked without
// requeue, whatever its code.
package errs

import (
	"errors"
	"fmt"
)

// Code identifies the error kind.
type Code string

const (
	// CodeValidation covers null messages, bad schema, missing configuration.
	CodeValidation Code = "VAL_3001"
	// CodeNotFound covers a missing referenced entity (horse, sire, dam, training, request).
	CodeNotFound Code = "RES_4001"
	// CodeTransient covers retryable DB/broker I/O failures.
	CodeTransient Code = "SVC_5001"
	// CodeInvariant covers a violated domain invariant (missing stat, happiness floor, ...).
	CodeInvariant Code = "DOM_6001"
	// CodeConfig covers startup configuration failures.
	CodeConfig Code = "CFG_7001"
	// CodePublish covers a publish-after-commit failure.
	CodePublish Code = "BUS_8001"
)

// DomainError is a structured, classified error.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

func newErr(code Code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Validation wraps a validation failure (null message, bad schema, missing config value).
func Validation(message string) *DomainError {
	return newErr(CodeValidation, message, nil)
}

// NotFound wraps a missing entity lookup.
func NotFound(entity, id string) *DomainError {
	return newErr(CodeNotFound, fmt.Sprintf("%s %q not found", entity, id), nil)
}

// Transient wraps a retryable I/O failure.
func Transient(message string, cause error) *DomainError {
	return newErr(CodeTransient, message, cause)
}

// Invariant wraps a violated domain invariant.
func Invariant(message string) *DomainError {
	return newErr(CodeInvariant, message, nil)
}

// Config wraps a startup configuration failure.
func Config(message string) *DomainError {
	return newErr(CodeConfig, message, nil)
}

// PublishFailed wraps a publish-after-commit failure; its message is used verbatim
// as the Request row's FailureReason prefix per §4.4 step 7.
func PublishFailed(cause error) *DomainError {
	return newErr(CodePublish, fmt.Sprintf("Publish failed: %v", cause), cause)
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
