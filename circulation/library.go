package circulation

import (
	"fmt"
	"sync"
	"time"
)

// Store is the persistence collaborator. The core does not dictate the
// on-disk layout; it only requires that a snapshot round-trips losslessly
// through SaveAll and LoadAll. Failures are surfaced to the caller
// unchanged — the core performs no retries.
type Store interface {
	LoadAll() (Snapshot, error)
	SaveAll(Snapshot) error
}

// Snapshot is the full in-memory state handed across the persistence
// boundary.
type Snapshot struct {
	Books        []Book        `json:"books"`
	Members      []Member      `json:"members"`
	Loans        []Loan        `json:"loans"`
	Reservations []Reservation `json:"reservations"`
}

// Library wires the four circulation components around one shared
// Inventory and serializes all access behind a single mutex. The component
// operations are not individually atomic with respect to each other
// (Borrow reads availability, then writes it), so any multi-actor caller
// must go through these methods rather than the components directly.
//
// By default every mutation is followed by a flush to the Store; Batch
// defers that flush until a group of mutations completes.
type Library struct {
	mu       sync.Mutex
	store    Store
	clock    Clock
	policy   Policy
	autosave bool

	inventory    *Inventory
	members      *Members
	ledger       *Ledger
	reservations *Reservations
}

// Option configures a Library.
type Option func(*Library)

// WithClock replaces the wall clock, making dates deterministic.
func WithClock(c Clock) Option {
	return func(l *Library) { l.clock = c }
}

// WithPolicy replaces the default lending rules.
func WithPolicy(p Policy) Option {
	return func(l *Library) { l.policy = p }
}

// NewLibrary builds the component graph and loads the initial state from
// the store. Queues are rebuilt from the loaded reservation records.
func NewLibrary(store Store, opts ...Option) (*Library, error) {
	l := &Library{
		store:    store,
		clock:    SystemClock(),
		policy:   DefaultPolicy(),
		autosave: true,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.inventory = NewInventory()
	l.members = NewMembers(l.clock, l.policy)
	l.ledger = NewLedger(l.inventory, l.members, l.clock, l.policy)
	l.reservations = NewReservations(l.inventory, l.members, l.clock)

	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// ------------------ Persistence boundary ------------------

// Reload discards the in-memory state and reloads it from the store.
func (l *Library) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reload()
}

func (l *Library) reload() error {
	snap, err := l.store.LoadAll()
	if err != nil {
		return fmt.Errorf("load library state: %w", err)
	}
	l.inventory.reset(snap.Books)
	l.members.reset(snap.Members)
	l.ledger.reset(snap.Loans)
	l.reservations.reset(snap.Reservations)
	return nil
}

// Restore replaces the in-memory state with the snapshot, rebuilds the
// reservation queues and flushes the restored state to the store.
func (l *Library) Restore(snap Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inventory.reset(snap.Books)
	l.members.reset(snap.Members)
	l.ledger.reset(snap.Loans)
	l.reservations.reset(snap.Reservations)
	return l.save()
}

// Save flushes the current state to the store unconditionally.
func (l *Library) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save()
}

func (l *Library) save() error {
	if err := l.store.SaveAll(l.snapshot()); err != nil {
		return fmt.Errorf("save library state: %w", err)
	}
	return nil
}

func (l *Library) saveIfNeeded() error {
	if !l.autosave {
		return nil
	}
	return l.save()
}

func (l *Library) snapshot() Snapshot {
	return Snapshot{
		Books:        l.inventory.All(),
		Members:      l.members.All(),
		Loans:        l.ledger.All(),
		Reservations: l.reservations.All(),
	}
}

// Snapshot returns a copy of the full in-memory state.
func (l *Library) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Batch runs fn with autosave suspended and flushes once when it returns,
// whether or not fn reported an error. In-memory atomicity is unchanged;
// only the flush boundary moves.
func (l *Library) Batch(fn func() error) error {
	l.mu.Lock()
	original := l.autosave
	l.autosave = false
	l.mu.Unlock()

	fnErr := fn()

	l.mu.Lock()
	l.autosave = original
	saveErr := l.save()
	l.mu.Unlock()

	if fnErr != nil {
		return fnErr
	}
	return saveErr
}

// ------------------ Circulation operations ------------------

// Borrow checks out a book to a member and returns the new loan ID.
func (l *Library) Borrow(memberID, isbn string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, err := l.ledger.Borrow(memberID, isbn)
	if err != nil {
		return "", err
	}
	return id, l.saveIfNeeded()
}

// Renew extends a loan by the renewal period.
func (l *Library) Renew(loanID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ledger.Renew(loanID); err != nil {
		return err
	}
	return l.saveIfNeeded()
}

// RenewByMember renews the member's active loan of the given book.
func (l *Library) RenewByMember(memberID, isbn string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ledger.RenewByMember(memberID, isbn); err != nil {
		return err
	}
	return l.saveIfNeeded()
}

// Return closes a loan and puts the copy back on the shelf.
func (l *Library) Return(loanID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ledger.Return(loanID); err != nil {
		return err
	}
	return l.saveIfNeeded()
}

// ReturnByMember returns the member's active loan of the given book.
func (l *Library) ReturnByMember(memberID, isbn string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ledger.ReturnByMember(memberID, isbn); err != nil {
		return err
	}
	return l.saveIfNeeded()
}

// Reserve queues a member for a book and returns the reservation ID.
func (l *Library) Reserve(memberID, isbn string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, err := l.reservations.Reserve(memberID, isbn)
	if err != nil {
		return "", err
	}
	return id, l.saveIfNeeded()
}

// CancelReservation deactivates a reservation and updates the book's
// reserved flag.
func (l *Library) CancelReservation(reservationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.reservations.Cancel(reservationID); err != nil {
		return err
	}
	return l.saveIfNeeded()
}

// ------------------ Catalog & registry operations ------------------

// AddBook inserts a new catalog entry.
func (l *Library) AddBook(b Book) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.inventory.Add(b); err != nil {
		return err
	}
	return l.saveIfNeeded()
}

// UpdateBook replaces a catalog entry.
func (l *Library) UpdateBook(b Book) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.inventory.Update(b); err != nil {
		return err
	}
	return l.saveIfNeeded()
}

// RemoveBook deletes a catalog entry.
func (l *Library) RemoveBook(isbn string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.inventory.Remove(isbn); err != nil {
		return err
	}
	return l.saveIfNeeded()
}

// RegisterMember creates a member account and returns the stored record.
func (l *Library) RegisterMember(name, phone string, preferences []string, admin bool, password string) (Member, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, err := l.members.Register(name, phone, preferences, admin, password)
	if err != nil {
		return Member{}, err
	}
	return m, l.saveIfNeeded()
}

// RemoveMember deletes a member account.
func (l *Library) RemoveMember(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.members.Remove(id); err != nil {
		return err
	}
	return l.saveIfNeeded()
}

// Authenticate verifies a member's password.
func (l *Library) Authenticate(memberID, password string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.members.Authenticate(memberID, password)
}

// SetPassword resets a member's password.
func (l *Library) SetPassword(memberID, password string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.members.SetPassword(memberID, password); err != nil {
		return err
	}
	return l.saveIfNeeded()
}

// ------------------ Read-only accessors ------------------

// Book returns the catalog entry for an ISBN.
func (l *Library) Book(isbn string) (Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inventory.Get(isbn)
}

// Books returns the whole catalog.
func (l *Library) Books() []Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inventory.All()
}

// AvailableBooks returns the books that can currently be borrowed.
func (l *Library) AvailableBooks() []Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inventory.Available()
}

// SearchBooks runs a fuzzy search across title, author, publisher and
// genre, deduplicating by ISBN.
func (l *Library) SearchBooks(query string) []Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[string]bool)
	var out []Book
	for _, find := range [](func(string, bool) []Book){
		l.inventory.FindByTitle,
		l.inventory.FindByAuthor,
		l.inventory.FindByPublisher,
		l.inventory.FindByGenre,
	} {
		for _, b := range find(query, true) {
			if !seen[b.ISBN] {
				seen[b.ISBN] = true
				out = append(out, b)
			}
		}
	}
	return out
}

// Member returns the registry record for a member ID.
func (l *Library) Member(id string) (Member, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.members.Get(id)
}

// Members returns every registered member.
func (l *Library) Members() []Member {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.members.All()
}

// Loan returns a loan record by ID.
func (l *Library) Loan(loanID string) (Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ledger.Get(loanID)
}

// ActiveLoans returns all open loans.
func (l *Library) ActiveLoans() []Loan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ledger.Active()
}

// OverdueLoans returns all open loans past their due date.
func (l *Library) OverdueLoans() []Loan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ledger.Overdue()
}

// MemberLoans returns the member's open loans.
func (l *Library) MemberLoans(memberID string) []Loan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ledger.ActiveFor(memberID)
}

// MemberHistory returns every loan the member ever took out.
func (l *Library) MemberHistory(memberID string) []Loan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ledger.HistoryFor(memberID)
}

// FineFor returns the fine owed on a loan as of today.
func (l *Library) FineFor(loanID string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ledger.FineFor(loanID)
}

// Reservation returns a reservation record by ID.
func (l *Library) Reservation(id string) (Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reservations.Get(id)
}

// Reservations returns every reservation record.
func (l *Library) Reservations() []Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reservations.All()
}

// MemberReservations returns the member's reservations.
func (l *Library) MemberReservations(memberID string) []Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reservations.ForMember(memberID)
}

// QueuePosition returns a reservation's 1-indexed place in its queue.
func (l *Library) QueuePosition(reservationID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reservations.Position(reservationID)
}

// QueueFor returns the ordered reservation IDs waiting on a book.
func (l *Library) QueueFor(isbn string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reservations.QueueFor(isbn)
}

// PeekNextReservation returns the head of a book's waiting list without
// removing it. Serving that member and cancelling the reservation is an
// explicit follow-up step.
func (l *Library) PeekNextReservation(isbn string) (Reservation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.reservations.PeekNext(isbn)
	if !ok {
		return Reservation{}, false
	}
	rec, err := l.reservations.Get(id)
	if err != nil {
		return Reservation{}, false
	}
	return rec, true
}

// Policy returns the lending rules in effect.
func (l *Library) Policy() Policy { return l.policy }

// Today returns the current date as seen by the library's clock.
func (l *Library) Today() time.Time { return l.clock.Today() }
