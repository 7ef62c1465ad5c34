package circulation

import "sort"

// Reservations owns reservation records and the per-book FIFO waiting
// lists. Reserve and Cancel update the queue and the inventory's reserved
// flag in one call, so the two can never drift apart at a call site.
//
// A book becoming available is NOT wired to the queue head automatically:
// fulfilling the next waiting member is an explicit caller-driven step
// (PeekNext, then Cancel once served).
type Reservations struct {
	reservations []*Reservation
	byID         map[string]*Reservation
	queues       map[string][]string // ISBN -> active reservation IDs, FIFO
	inv          *Inventory
	members      *Members
	clock        Clock
}

// NewReservations wires the queue manager to the shared inventory and
// member registry.
func NewReservations(inv *Inventory, members *Members, clock Clock) *Reservations {
	return &Reservations{
		byID:    make(map[string]*Reservation),
		queues:  make(map[string][]string),
		inv:     inv,
		members: members,
		clock:   clock,
	}
}

// Reserve places a member at the tail of a book's waiting list and returns
// the new reservation ID. A book with copies on the shelf can still be
// reserved; availability is not a precondition. The book's reserved flag
// is raised in the same step, which blocks all borrowing until the queue
// drains.
func (rs *Reservations) Reserve(memberID, isbn string) (string, error) {
	member, err := rs.members.Get(memberID)
	if err != nil {
		return "", err
	}
	today := rs.clock.Today()
	if member.ExpiredAt(today) {
		return "", ErrBorrowerIneligible
	}
	if _, err := rs.inv.Get(isbn); err != nil {
		return "", err
	}
	for _, rec := range rs.reservations {
		if rec.Active && rec.MemberID == memberID && rec.ISBN == isbn {
			return "", ErrDuplicateReservation
		}
	}

	rec := Reservation{
		ID:         NextID(reservationIDPrefix, reservationIDWidth, today, rs.ids()),
		MemberID:   memberID,
		ISBN:       isbn,
		ReservedOn: today,
		Active:     true,
	}
	stored := rec
	rs.reservations = append(rs.reservations, &stored)
	rs.byID[stored.ID] = &stored
	rs.queues[isbn] = append(rs.queues[isbn], stored.ID)

	if err := rs.inv.SetReserved(isbn, true); err != nil {
		return "", err
	}
	return stored.ID, nil
}

// Cancel deactivates a reservation and removes it from its book's queue.
// Deactivation is permanent. The book's reserved flag is recomputed as
// "any active reservation remains" and pushed to the inventory in the
// same step.
func (rs *Reservations) Cancel(reservationID string) error {
	rec, ok := rs.byID[reservationID]
	if !ok {
		return ErrNotFound
	}
	if !rec.Active {
		return ErrAlreadyCancelled
	}

	rs.removeFromQueue(rec.ISBN, reservationID)
	rec.Active = false

	return rs.inv.SetReserved(rec.ISBN, rs.HasActive(rec.ISBN))
}

// Position returns the reservation's 1-indexed place in its book's queue.
// Inactive or unqueued reservations report ErrNotFound.
func (rs *Reservations) Position(reservationID string) (int, error) {
	rec, ok := rs.byID[reservationID]
	if !ok || !rec.Active {
		return 0, ErrNotFound
	}
	for i, id := range rs.queues[rec.ISBN] {
		if id == reservationID {
			return i + 1, nil
		}
	}
	return 0, ErrNotFound
}

// PeekNext returns the reservation ID at the head of the book's queue
// without removing it. The caller notifies or serves that member and then
// cancels the reservation explicitly.
func (rs *Reservations) PeekNext(isbn string) (string, bool) {
	queue := rs.queues[isbn]
	if len(queue) == 0 {
		return "", false
	}
	return queue[0], true
}

// QueueFor returns the ordered reservation IDs waiting on a book.
func (rs *Reservations) QueueFor(isbn string) []string {
	queue := rs.queues[isbn]
	out := make([]string, len(queue))
	copy(out, queue)
	return out
}

// QueueLength returns the number of members waiting on a book.
func (rs *Reservations) QueueLength(isbn string) int {
	return len(rs.queues[isbn])
}

// HasActive reports whether any member is waiting on the book.
func (rs *Reservations) HasActive(isbn string) bool {
	return len(rs.queues[isbn]) > 0
}

// ------------------ Queries ------------------

// Get returns a copy of the reservation record.
func (rs *Reservations) Get(reservationID string) (Reservation, error) {
	rec, ok := rs.byID[reservationID]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	return *rec, nil
}

// All returns copies of every reservation, cancelled ones included.
func (rs *Reservations) All() []Reservation {
	out := make([]Reservation, 0, len(rs.reservations))
	for _, rec := range rs.reservations {
		out = append(out, *rec)
	}
	return out
}

// ForMember returns the member's reservations, cancelled ones included.
func (rs *Reservations) ForMember(memberID string) []Reservation {
	var out []Reservation
	for _, rec := range rs.reservations {
		if rec.MemberID == memberID {
			out = append(out, *rec)
		}
	}
	return out
}

// Count returns the total number of reservation records.
func (rs *Reservations) Count() int { return len(rs.reservations) }

// ActiveCount returns the number of active reservations across all books.
func (rs *Reservations) ActiveCount() int {
	count := 0
	for _, rec := range rs.reservations {
		if rec.Active {
			count++
		}
	}
	return count
}

// ------------------ Internals ------------------

func (rs *Reservations) removeFromQueue(isbn, reservationID string) {
	queue, ok := rs.queues[isbn]
	if !ok {
		return
	}
	for i, id := range queue {
		if id == reservationID {
			queue = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	if len(queue) == 0 {
		delete(rs.queues, isbn)
	} else {
		rs.queues[isbn] = queue
	}
}

// rebuildQueues reconstructs every book's queue from the active
// reservation records: group by ISBN, stable-sort by reservation date
// ascending. Reservation dates have day granularity and records are held
// in creation order, so the stable sort reproduces the order incremental
// appends would have produced.
func (rs *Reservations) rebuildQueues() {
	rs.queues = make(map[string][]string)

	groups := make(map[string][]*Reservation)
	for _, rec := range rs.reservations {
		if rec.Active {
			groups[rec.ISBN] = append(groups[rec.ISBN], rec)
		}
	}
	for isbn, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].ReservedOn.Before(group[j].ReservedOn)
		})
		for _, rec := range group {
			rs.queues[isbn] = append(rs.queues[isbn], rec.ID)
		}
	}
}

func (rs *Reservations) ids() []string {
	ids := make([]string, 0, len(rs.reservations))
	for _, rec := range rs.reservations {
		ids = append(ids, rec.ID)
	}
	return ids
}

// reset replaces all reservation records and rebuilds the queues. Used at
// load/restore boundaries.
func (rs *Reservations) reset(reservations []Reservation) {
	rs.reservations = rs.reservations[:0]
	rs.byID = make(map[string]*Reservation, len(reservations))
	for _, r := range reservations {
		rec := r
		rs.reservations = append(rs.reservations, &rec)
		rs.byID[rec.ID] = &rec
	}
	rs.rebuildQueues()
}
