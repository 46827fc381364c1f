// Package dErrors carries coded domain errors across service boundaries.
//
// Services produce these; the HTTP layer translates codes to status codes
// in one place. Stores never import this package; they return sentinel
// errors (pkg/platform/sentinel) and services wrap them with a code.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the class of a domain error.
type Code string

const (
	// CodeUnauthorized: the caller lacks the role the operation requires
	// (not the owner, not an approved delegate, or not the minter).
	CodeUnauthorized Code = "unauthorized"

	// CodePhaseViolation: the operation is not valid in the asset's
	// current lifecycle phase.
	CodePhaseViolation Code = "phase_violation"

	// CodeCooldown: a time lock on the transition has not elapsed yet.
	CodeCooldown Code = "cooldown_not_elapsed"

	// CodeInvalidPercentage: a collaborator share outside 1..100.
	CodeInvalidPercentage Code = "invalid_percentage"

	// CodeInsufficientShare: the creator's unassigned remainder is
	// smaller than the requested share.
	CodeInsufficientShare Code = "insufficient_share"

	// CodeInsufficientFunds: nothing to distribute.
	CodeInsufficientFunds Code = "insufficient_funds"

	// CodeTransferFailure: a payout transfer did not complete; the whole
	// distribution was rolled back.
	CodeTransferFailure Code = "transfer_failure"

	CodeNotFound   Code = "not_found"
	CodeValidation Code = "validation"
	CodeBadRequest Code = "bad_request"
	CodeInternal   Code = "internal"
)

// Error is a domain error with a machine-readable code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a domain error with the given code.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
	}
	return false
}

// Is is shorthand for HasCode; handlers read better with it.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the outermost code, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain error code to an HTTP status. Keeping the
// mapping here means every handler reports errors identically.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodePhaseViolation, CodeCooldown, CodeInsufficientShare,
		CodeInsufficientFunds, CodeTransferFailure:
		return http.StatusConflict
	case CodeInvalidPercentage, CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
