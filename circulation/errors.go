package circulation

import "errors"

// Domain errors returned by the circulation core. All of them are
// recoverable, caller-visible outcomes; none is process-fatal.
var (
	// ErrNotFound means the referenced book, member, loan or reservation
	// does not exist in the in-memory state.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateID means an insert collided with an existing key
	// (ISBN, member ID, loan ID or reservation ID).
	ErrDuplicateID = errors.New("record already exists")

	// ErrBorrowerIneligible means the member's membership has expired or
	// the member is already at their active-loan limit.
	ErrBorrowerIneligible = errors.New("member is not eligible to borrow")

	// ErrTitleUnavailable means the book has no copies on the shelf or is
	// held by an active reservation.
	ErrTitleUnavailable = errors.New("book is not available for borrowing")

	// ErrDuplicateReservation means the member already holds an active
	// reservation for this book.
	ErrDuplicateReservation = errors.New("member already has an active reservation for this book")

	// ErrAlreadyReturned means the loan reached its terminal state and
	// cannot be renewed or returned again.
	ErrAlreadyReturned = errors.New("loan has already been returned")

	// ErrAlreadyCancelled means the reservation was deactivated earlier;
	// cancellation is permanent.
	ErrAlreadyCancelled = errors.New("reservation has already been cancelled")

	// ErrRenewalLimitExceeded means granting another renewal would push
	// the total loan span past the maximum borrow period.
	ErrRenewalLimitExceeded = errors.New("renewal would exceed the maximum borrow period")

	// ErrInvariantViolation reports a defensive guard: an over-borrow or
	// over-return attempted against the copy counts.
	ErrInvariantViolation = errors.New("copy count invariant violated")

	// ErrAuthentication means the supplied password does not match the
	// member's stored credential.
	ErrAuthentication = errors.New("invalid member credentials")
)
