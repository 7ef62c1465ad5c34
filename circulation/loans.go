package circulation

// Ledger owns loan records and drives the borrow → [renew]* → return state
// machine. It validates borrower eligibility against the member registry
// and asks the shared Inventory to commit copy-count changes; it never
// reaches into either component's state. Both collaborators are injected
// at construction so every component sees the same catalog.
type Ledger struct {
	loans   []*Loan
	byID    map[string]*Loan
	inv     *Inventory
	members *Members
	clock   Clock
	policy  Policy
}

// NewLedger wires a ledger to the shared inventory and member registry.
func NewLedger(inv *Inventory, members *Members, clock Clock, policy Policy) *Ledger {
	return &Ledger{
		byID:    make(map[string]*Loan),
		inv:     inv,
		members: members,
		clock:   clock,
		policy:  policy,
	}
}

// Borrow checks out one copy of a book to a member and returns the new
// loan ID. Eligibility is checked first (membership expiry, active-loan
// allowance), then availability; the inventory decrement and the loan
// record are committed together, so a failure at any check leaves no
// trace.
func (lg *Ledger) Borrow(memberID, isbn string) (string, error) {
	member, err := lg.members.Get(memberID)
	if err != nil {
		return "", err
	}
	today := lg.clock.Today()
	if member.ExpiredAt(today) {
		return "", ErrBorrowerIneligible
	}
	if lg.ActiveCountFor(memberID) >= member.MaxBooks {
		return "", ErrBorrowerIneligible
	}

	if _, err := lg.inv.Get(isbn); err != nil {
		return "", err
	}
	if !lg.inv.CanBorrow(isbn) {
		return "", ErrTitleUnavailable
	}
	if err := lg.inv.CommitBorrow(isbn); err != nil {
		return "", err
	}

	loan := Loan{
		ID:         NextID(loanIDPrefix, loanIDWidth, today, lg.ids()),
		MemberID:   memberID,
		ISBN:       isbn,
		BorrowedOn: today,
		DueOn:      today.AddDate(0, 0, lg.policy.BorrowDays),
	}
	rec := loan
	lg.loans = append(lg.loans, &rec)
	lg.byID[rec.ID] = &rec
	return rec.ID, nil
}

// Renew extends a loan's due date by the renewal period. The renewal is
// refused once the extended span would exceed the maximum borrow period,
// however many renewals were used to get there.
func (lg *Ledger) Renew(loanID string) error {
	rec, ok := lg.byID[loanID]
	if !ok {
		return ErrNotFound
	}
	if rec.Returned {
		return ErrAlreadyReturned
	}
	if !rec.CanRenew(lg.policy) {
		return ErrRenewalLimitExceeded
	}
	rec.DueOn = rec.DueOn.AddDate(0, 0, lg.policy.RenewalDays)
	rec.Renewals++
	return nil
}

// RenewByMember renews the member's first active loan of the given book.
func (lg *Ledger) RenewByMember(memberID, isbn string) error {
	rec := lg.findActive(memberID, isbn)
	if rec == nil {
		return ErrNotFound
	}
	return lg.Renew(rec.ID)
}

// Return closes a loan: the fine is computed and frozen, the return date
// stamped, and the copy handed back to the inventory. Returned loans are
// terminal; a second return is refused.
func (lg *Ledger) Return(loanID string) error {
	rec, ok := lg.byID[loanID]
	if !ok {
		return ErrNotFound
	}
	if rec.Returned {
		return ErrAlreadyReturned
	}
	if err := lg.inv.CommitReturn(rec.ISBN); err != nil {
		return err
	}
	today := lg.clock.Today()
	rec.Fine = rec.FineAt(today, lg.policy)
	rec.ReturnedOn = today
	rec.Returned = true
	return nil
}

// ReturnByMember returns the member's first active loan of the given book.
func (lg *Ledger) ReturnByMember(memberID, isbn string) error {
	rec := lg.findActive(memberID, isbn)
	if rec == nil {
		return ErrNotFound
	}
	return lg.Return(rec.ID)
}

// FineFor returns the fine owed on a loan: a live preview while the loan
// is active, the frozen amount once returned.
func (lg *Ledger) FineFor(loanID string) (float64, error) {
	rec, ok := lg.byID[loanID]
	if !ok {
		return 0, ErrNotFound
	}
	return rec.FineAt(lg.clock.Today(), lg.policy), nil
}

// ------------------ Queries ------------------

// Get returns a copy of the loan record.
func (lg *Ledger) Get(loanID string) (Loan, error) {
	rec, ok := lg.byID[loanID]
	if !ok {
		return Loan{}, ErrNotFound
	}
	return *rec, nil
}

// All returns copies of every loan in creation order.
func (lg *Ledger) All() []Loan {
	out := make([]Loan, 0, len(lg.loans))
	for _, rec := range lg.loans {
		out = append(out, *rec)
	}
	return out
}

// ActiveCountFor counts the member's not-yet-returned loans. Used for the
// allowance check at borrow time and for reporting.
func (lg *Ledger) ActiveCountFor(memberID string) int {
	count := 0
	for _, rec := range lg.loans {
		if rec.MemberID == memberID && !rec.Returned {
			count++
		}
	}
	return count
}

// ActiveFor returns the member's open loans.
func (lg *Ledger) ActiveFor(memberID string) []Loan {
	var out []Loan
	for _, rec := range lg.loans {
		if rec.MemberID == memberID && !rec.Returned {
			out = append(out, *rec)
		}
	}
	return out
}

// HistoryFor returns every loan the member ever took out.
func (lg *Ledger) HistoryFor(memberID string) []Loan {
	var out []Loan
	for _, rec := range lg.loans {
		if rec.MemberID == memberID {
			out = append(out, *rec)
		}
	}
	return out
}

// Active returns all open loans.
func (lg *Ledger) Active() []Loan {
	var out []Loan
	for _, rec := range lg.loans {
		if !rec.Returned {
			out = append(out, *rec)
		}
	}
	return out
}

// Overdue returns all open loans past their due date.
func (lg *Ledger) Overdue() []Loan {
	today := lg.clock.Today()
	var out []Loan
	for _, rec := range lg.loans {
		if !rec.Returned && rec.OverdueAt(today) {
			out = append(out, *rec)
		}
	}
	return out
}

// Count returns the total number of loan records.
func (lg *Ledger) Count() int { return len(lg.loans) }

// ActiveCount returns the number of open loans.
func (lg *Ledger) ActiveCount() int {
	count := 0
	for _, rec := range lg.loans {
		if !rec.Returned {
			count++
		}
	}
	return count
}

// OverdueCount returns the number of open loans past their due date.
func (lg *Ledger) OverdueCount() int {
	today := lg.clock.Today()
	count := 0
	for _, rec := range lg.loans {
		if !rec.Returned && rec.OverdueAt(today) {
			count++
		}
	}
	return count
}

// ------------------ Internals ------------------

func (lg *Ledger) findActive(memberID, isbn string) *Loan {
	for _, rec := range lg.loans {
		if rec.MemberID == memberID && rec.ISBN == isbn && !rec.Returned {
			return rec
		}
	}
	return nil
}

func (lg *Ledger) ids() []string {
	ids := make([]string, 0, len(lg.loans))
	for _, rec := range lg.loans {
		ids = append(ids, rec.ID)
	}
	return ids
}

// reset replaces all loan records. Used at load/restore boundaries.
func (lg *Ledger) reset(loans []Loan) {
	lg.loans = lg.loans[:0]
	lg.byID = make(map[string]*Loan, len(loans))
	for _, l := range loans {
		rec := l
		lg.loans = append(lg.loans, &rec)
		lg.byID[rec.ID] = &rec
	}
}
