// Package apperror defines the error kinds returned by the bed, admission,
// charge and bill services and their HTTP status mapping.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure independently of the message shown to clients.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindValidation        Kind = "VALIDATION"
	KindBedUnavailable    Kind = "BED_UNAVAILABLE"
	KindGenderMismatch    Kind = "GENDER_MISMATCH"
	KindAlreadyAdmitted   Kind = "ALREADY_ADMITTED"
	KindAlreadyDischarged Kind = "ALREADY_DISCHARGED"
	KindConflictingBill   Kind = "CONFLICTING_BILL"
	KindAlreadySettled    Kind = "ALREADY_SETTLED"
	KindOverPayment       Kind = "OVER_PAYMENT"
	KindStorage           Kind = "STORAGE_FAILURE"
)

// Error is an application error. Err, when set, is the underlying cause and
// is never shown to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrBedUnavailable    = &Error{Kind: KindBedUnavailable}
	ErrGenderMismatch    = &Error{Kind: KindGenderMismatch}
	ErrAlreadyAdmitted   = &Error{Kind: KindAlreadyAdmitted}
	ErrAlreadyDischarged = &Error{Kind: KindAlreadyDischarged}
	ErrConflictingBill   = &Error{Kind: KindConflictingBill}
	ErrAlreadySettled    = &Error{Kind: KindAlreadySettled}
	ErrOverPayment       = &Error{Kind: KindOverPayment}
	ErrStorage           = &Error{Kind: KindStorage}
)

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity, e.g. NotFound("bed").
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

// Storage wraps a database failure. The message is what clients see; err is logged.
func Storage(message string, err error) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain. Errors that
// carry no kind are treated as storage failures.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindStorage
}

// StatusCode maps a kind to its HTTP status.
func StatusCode(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindBedUnavailable, KindAlreadyAdmitted, KindAlreadyDischarged,
		KindConflictingBill, KindAlreadySettled:
		return http.StatusConflict
	case KindGenderMismatch, KindOverPayment:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the client-facing message for err. Storage failures never
// leak their cause.
func PublicMessage(err error) string {
	var ae *Error
	if !errors.As(err, &ae) {
		return "internal server error"
	}
	if ae.Kind == KindStorage && ae.Message == "" {
		return "internal server error"
	}
	return ae.Message
}
