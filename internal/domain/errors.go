package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies trade pipeline failures.
type ErrorKind string

// Error kinds.
const (
	KindTransientNetwork     ErrorKind = "TRANSIENT_NETWORK"
	KindDomainRejected       ErrorKind = "DOMAIN_REJECTED"
	KindInsufficientFunds    ErrorKind = "INSUFFICIENT_FUNDS"
	KindSigningFailure       ErrorKind = "SIGNING_FAILURE"
	KindConfirmationFailed   ErrorKind = "CONFIRMATION_FAILED"
	KindConfirmationTimedOut ErrorKind = "CONFIRMATION_TIMED_OUT"
	KindValidationRejected   ErrorKind = "VALIDATION_REJECTED"
	KindUnexpected           ErrorKind = "UNEXPECTED"
)

// Fatal reports whether a failure of this kind must not be retried.
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindInsufficientFunds, KindSigningFailure, KindValidationRejected:
		return true
	}
	return false
}

// TradeError is a classified pipeline error.
type TradeError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewTradeError wraps err with a kind and the failing operation.
func NewTradeError(kind ErrorKind, op string, err error) *TradeError {
	return &TradeError{Kind: kind, Op: op, Err: err}
}

func (e *TradeError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TradeError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the outermost TradeError in the chain.
// Errors that were never classified are Unexpected.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var te *TradeError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnexpected
}
