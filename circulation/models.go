package circulation

import "time"

// Book is a catalog entry. The ISBN is the immutable key; copy counts and
// the reserved flag change as loans and reservations come and go.
type Book struct {
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Publisher       string `json:"publisher"`
	Genre           string `json:"genre"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	Reserved        bool   `json:"reserved"`
}

// CanBorrow reports whether a copy may leave the shelf. A book with any
// active reservation cannot be borrowed by anyone, regardless of copies.
func (b *Book) CanBorrow() bool {
	return !b.Reserved && b.AvailableCopies > 0
}

// Member is a registered borrower.
type Member struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Preferences  []string  `json:"preferences,omitempty"`
	RegisteredOn time.Time `json:"registered_on"`
	ExpiresOn    time.Time `json:"expires_on"`
	MaxBooks     int       `json:"max_books"`
	Admin        bool      `json:"admin"`
	PasswordHash string    `json:"password_hash,omitempty"`
}

// ExpiredAt reports whether the membership has lapsed as of the given date.
func (m *Member) ExpiredAt(today time.Time) bool {
	return today.After(m.ExpiresOn)
}

// Loan is a single borrow-to-return record for one copy of one book.
// Once Returned is set the record is immutable and Fine holds the amount
// frozen at return time.
type Loan struct {
	ID         string    `json:"id"`
	MemberID   string    `json:"member_id"`
	ISBN       string    `json:"isbn"`
	BorrowedOn time.Time `json:"borrowed_on"`
	DueOn      time.Time `json:"due_on"`
	ReturnedOn time.Time `json:"returned_on,omitempty"`
	Renewals   int       `json:"renewals"`
	Fine       float64   `json:"fine"`
	Returned   bool      `json:"returned"`
}

// OverdueAt reports whether the loan is past due as of the given date.
func (l *Loan) OverdueAt(today time.Time) bool {
	return today.After(l.DueOn)
}

// FineAt computes the fine owed as of the given date. For an active loan
// this is a live preview that grows with each whole day overdue; once the
// loan is returned the frozen amount is reported instead.
func (l *Loan) FineAt(today time.Time, p Policy) float64 {
	if l.Returned {
		return l.Fine
	}
	if !l.OverdueAt(today) {
		return 0
	}
	amount := float64(daysBetween(l.DueOn, today)) * p.FinePerDay
	if amount > p.MaxFine {
		amount = p.MaxFine
	}
	return amount
}

// CanRenew reports whether another renewal fits inside the maximum borrow
// period. The check runs against the current borrow-to-due span, not the
// renewal counter.
func (l *Loan) CanRenew(p Policy) bool {
	if l.Returned {
		return false
	}
	return daysBetween(l.BorrowedOn, l.DueOn)+p.RenewalDays <= p.MaxBorrowDays
}

// Reservation is a member's place in a book's waiting list. Cancellation
// clears Active permanently; records are never physically deleted.
type Reservation struct {
	ID         string    `json:"id"`
	MemberID   string    `json:"member_id"`
	ISBN       string    `json:"isbn"`
	ReservedOn time.Time `json:"reserved_on"`
	Active     bool      `json:"active"`
}
