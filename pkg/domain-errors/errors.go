// Package domainerrors provides coded domain errors for the marketplace
// engine. Import it aliased as dErrors.
//
// Services return these so callers (HTTP layer, tests) can branch on the
// code without string matching. Stores do not use this package directly;
// they return pkg/platform/sentinel errors which services translate here.
package domainerrors

import "errors"

// Code classifies a domain error. Codes are part of the engine's contract:
// the HTTP layer translates them to statuses and clients branch on them.
type Code string

const (
	// Ambient codes.
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"

	// Marketplace codes.
	CodeNotOwner              Code = "not_owner"
	CodeNotAuthorized         Code = "not_authorized"
	CodeInvalidState          Code = "invalid_state"
	CodeAlreadyListed         Code = "already_listed"
	CodeSelfPurchase          Code = "self_purchase"
	CodeInvalidPaymentMethods Code = "invalid_payment_methods"
	CodeListingUnavailable    Code = "listing_unavailable"

	// CodeTransferFailed means the atomic ownership transfer could not
	// commit. Unlike CodeInvalidState it signals that a retry of the same
	// confirm call may succeed; nothing was partially applied.
	CodeTransferFailed Code = "transfer_failed"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/errors.As chains.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	for errors.As(err, &domainErr) {
		if domainErr.Code == code {
			return true
		}
		err = domainErr.Err
		domainErr = nil
	}
	return false
}

// Is is a readable alias for HasCode at call sites that branch on one code.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code carried by err, or CodeInternal when
// err is not a domain error.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}
