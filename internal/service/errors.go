// Package service contains the lending engine, the authenticator and
// the member administration operations.  Domain rule violations are
// reported through the typed Error in this file instead of raw
// sentinels so that handlers can map every failure to exactly one HTTP
// outcome without string matching.
package service

import "fmt"

// Kind classifies a domain failure.  The set is closed: every error
// surfaced by this package carries exactly one kind.
type Kind int

const (
	// KindNotFound – the referenced book, member or account is absent.
	KindNotFound Kind = iota + 1
	// KindConflict – the operation contradicts current state
	// (already borrowed, not borrowed, held books, duplicate keys).
	KindConflict
	// KindUnauthenticated – missing, invalid or expired credentials.
	KindUnauthenticated
	// KindForbidden – valid credentials, insufficient role.
	KindForbidden
	// KindValidation – malformed input, reported per field.
	KindValidation
	// KindInfrastructure – the store failed or timed out; the caller
	// may retry.
	KindInfrastructure
)

// Stable conflict codes surfaced alongside KindConflict.
const (
	CodeAlreadyBorrowed  = "ALREADY_BORROWED"
	CodeNotBorrowed      = "NOT_BORROWED"
	CodeHasBorrowedBooks = "HAS_BORROWED_BOOKS"
	CodeDuplicateUser    = "DUPLICATE_USERNAME"
	CodeDuplicateEmail   = "DUPLICATE_EMAIL"
	CodeDuplicateISBN    = "DUPLICATE_ISBN"
)

// Error is the single error type returned across service boundaries.
// Message is stable and human readable; Field is set for validation
// failures only; Code is set for conflicts only.
type Error struct {
	Kind    Kind
	Code    string
	Field   string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a KindConflict error with a stable code.
func Conflict(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Unauthenticated builds a KindUnauthenticated error.  The message must
// not reveal whether the account exists.
func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// Invalid builds a field-level KindValidation error.
func Invalid(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Infra wraps a store or broker failure as retryable infrastructure
// trouble.  The cause is preserved for logs but kept out of responses.
func Infra(cause error, msg string) *Error {
	return &Error{Kind: KindInfrastructure, Message: msg, cause: cause}
}

// KindOf extracts the kind from any error, returning KindInfrastructure
// for errors that did not originate in this package.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindInfrastructure
}
