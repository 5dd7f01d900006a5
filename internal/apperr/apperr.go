// Package apperr defines the error taxonomy shared by every core package.
// Services return *Error values; only the transport layer maps them to HTTP
// status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the coarse error category a caller can branch on.
type Kind string

const (
	KindValidation           Kind = "validation_error"
	KindNotFound             Kind = "not_found"
	KindRoleForbidden        Kind = "role_forbidden"
	KindInvalidTransition    Kind = "invalid_transition"
	KindConflict             Kind = "conflict"
	KindConfirmationRequired Kind = "confirmation_required"
	KindAuth                 Kind = "auth_error"
	KindInternal             Kind = "internal"
)

// Stable reason codes. Clients may rely on these values.
const (
	CodeInvalidInput          = "invalid_input"
	CodeNotFound              = "not_found"
	CodeNotOwner              = "not_owner"
	CodeRoleNotPermitted      = "role_not_permitted"
	CodeSelfDeleteForbidden   = "self_delete_forbidden"
	CodeAdminExempt           = "admin_exempt"
	CodeInvalidTransition     = "invalid_transition"
	CodeNotPending            = "not_pending"
	CodeNotDeleted            = "not_deleted"
	CodeAlreadyDeleted        = "already_deleted"
	CodeEmailTaken            = "email_taken"
	CodeAlreadyApplied        = "already_applied"
	CodeConfirmationMissing   = "confirmation_missing"
	CodeUnauthenticated       = "unauthenticated"
	CodeTokenExpired          = "token_expired"
	CodeTokenMalformed        = "token_malformed"
	CodeInvalidCredentials    = "invalid_credentials"
	CodeAccountSuspended      = "account_suspended"
	CodeAccountPending        = "account_pending"
	CodeInternal              = "internal_error"
	CodePasswordMismatch      = "current_password_mismatch"
	CodeDuplicate             = "duplicate"
	CodeMilestoneDueDatePast  = "due_date_in_past"
	CodeOrganizationRequired  = "organization_required"
	CodeProfileRequired       = "profile_required"
	CodeRegistrationForbidden = "registration_role_forbidden"
)

// Error is the single error type crossing component boundaries.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind and Code so sentinel-style comparisons work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.Kind == e.Kind
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Validation(msg string) *Error { return newErr(KindValidation, CodeInvalidInput, msg) }

// ValidationCode is Validation with a specific reason code.
func ValidationCode(code, msg string) *Error { return newErr(KindValidation, code, msg) }

func NotFound(entity string) *Error {
	return newErr(KindNotFound, CodeNotFound, entity+" not found")
}

func RoleForbidden(code, msg string) *Error { return newErr(KindRoleForbidden, code, msg) }

func InvalidTransition(code, msg string) *Error {
	if code == "" {
		code = CodeInvalidTransition
	}
	return newErr(KindInvalidTransition, code, msg)
}

func Conflict(code, msg string) *Error { return newErr(KindConflict, code, msg) }

func ConfirmationRequired(msg string) *Error {
	return newErr(KindConfirmationRequired, CodeConfirmationMissing, msg)
}

func Auth(code, msg string) *Error { return newErr(KindAuth, code, msg) }

// Internal wraps an unexpected failure. The wrapped error is never shown to clients.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: msg, Err: err}
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the reason code of err, or CodeInternal for foreign errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// As is a typed convenience over errors.As.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
