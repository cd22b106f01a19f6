package library

import (
	"github.com/cockroachdb/errors"
)

// Lending failures. They are ordinary results: the caller decides how to react.
var (
	ErrBookUnavailable    = errors.New("book unavailable")
	ErrBorrowLimitReached = errors.New("borrow limit reached")
	ErrNoOpenCheckout     = errors.New("no open checkout for user and book")
	ErrAlreadyReturned    = errors.New("book already returned")
)

// ErrInvariantViolation marks inconsistencies in engine state. These indicate a bug, not a
// business-rule failure.
var ErrInvariantViolation = errors.New("internal invariant violation")

// Catalog and directory errors
var (
	ErrInvalidISBN          = errors.New("invalid ISBN")
	ErrDuplicateISBN        = errors.New("book with same ISBN already exists")
	ErrBookNotFound         = errors.New("book not found")
	ErrBookCheckedOut       = errors.New("book is checked out")
	ErrInvalidEmail         = errors.New("invalid email format")
	ErrInvalidDOB           = errors.New("invalid date of birth")
	ErrDuplicateEmail       = errors.New("user with same email already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidBorrowLimit   = errors.New("invalid borrow limit")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// FailureKind classifies the outcome of a checkout or return.
type FailureKind int

const (
	KindNone FailureKind = iota
	KindBookUnavailable
	KindBorrowLimitReached
	KindNoOpenCheckout
	KindAlreadyReturned
	KindInvariantViolation
	KindOther
)

func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBookUnavailable:
		return "book unavailable"
	case KindBorrowLimitReached:
		return "borrow limit reached"
	case KindNoOpenCheckout:
		return "no open checkout"
	case KindAlreadyReturned:
		return "already returned"
	case KindInvariantViolation:
		return "internal invariant violation"
	default:
		return "other"
	}
}

// KindOf maps an error returned by the engine onto its FailureKind.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvariantViolation), errors.HasAssertionFailure(err):
		return KindInvariantViolation
	case errors.Is(err, ErrBookUnavailable):
		return KindBookUnavailable
	case errors.Is(err, ErrBorrowLimitReached):
		return KindBorrowLimitReached
	case errors.Is(err, ErrNoOpenCheckout):
		return KindNoOpenCheckout
	case errors.Is(err, ErrAlreadyReturned):
		return KindAlreadyReturned
	default:
		return KindOther
	}
}

func invariantViolation(format string, args ...interface{}) error {
	return errors.Mark(errors.AssertionFailedWithDepthf(1, format, args...), ErrInvariantViolation)
}
