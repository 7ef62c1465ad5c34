package circulation

import "strings"

// Inventory owns the catalog: every book's copy counts and reserved flag.
// It is the single authority for copy-count mutations; the loan ledger and
// the reservation queues call into it rather than touching books directly.
// Lookups return value copies so no caller can mutate internal state behind
// the coordinator's back.
type Inventory struct {
	books  []*Book
	byISBN map[string]*Book
}

// NewInventory returns an empty catalog.
func NewInventory() *Inventory {
	return &Inventory{byISBN: make(map[string]*Book)}
}

// ------------------ Catalog CRUD ------------------

// Add inserts a new book. The ISBN must be unused.
func (inv *Inventory) Add(b Book) error {
	if _, exists := inv.byISBN[b.ISBN]; exists {
		return ErrDuplicateID
	}
	rec := b
	inv.books = append(inv.books, &rec)
	inv.byISBN[rec.ISBN] = &rec
	return nil
}

// Update replaces the stored record for the book's ISBN.
func (inv *Inventory) Update(b Book) error {
	rec, ok := inv.byISBN[b.ISBN]
	if !ok {
		return ErrNotFound
	}
	*rec = b
	return nil
}

// Remove deletes a book from the catalog. Blocking removal of a title with
// outstanding loans or reservations is the caller's responsibility.
func (inv *Inventory) Remove(isbn string) error {
	if _, ok := inv.byISBN[isbn]; !ok {
		return ErrNotFound
	}
	delete(inv.byISBN, isbn)
	for i, rec := range inv.books {
		if rec.ISBN == isbn {
			inv.books = append(inv.books[:i], inv.books[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a copy of the book record.
func (inv *Inventory) Get(isbn string) (Book, error) {
	rec, ok := inv.byISBN[isbn]
	if !ok {
		return Book{}, ErrNotFound
	}
	return *rec, nil
}

// All returns copies of every book in catalog order.
func (inv *Inventory) All() []Book {
	out := make([]Book, 0, len(inv.books))
	for _, rec := range inv.books {
		out = append(out, *rec)
	}
	return out
}

// ------------------ Circulation mutations ------------------

// CanBorrow reports whether a copy of the book may leave the shelf.
func (inv *Inventory) CanBorrow(isbn string) bool {
	rec, ok := inv.byISBN[isbn]
	return ok && rec.CanBorrow()
}

// CommitBorrow takes one copy off the shelf. Decrementing past zero is an
// invariant violation: the state is left untouched and the condition is
// reported to the caller, not escalated.
func (inv *Inventory) CommitBorrow(isbn string) error {
	rec, ok := inv.byISBN[isbn]
	if !ok {
		return ErrNotFound
	}
	if rec.AvailableCopies <= 0 {
		return ErrInvariantViolation
	}
	rec.AvailableCopies--
	return nil
}

// CommitReturn puts one copy back on the shelf. Returning more copies than
// the library owns is the symmetric defensive no-op.
func (inv *Inventory) CommitReturn(isbn string) error {
	rec, ok := inv.byISBN[isbn]
	if !ok {
		return ErrNotFound
	}
	if rec.AvailableCopies >= rec.TotalCopies {
		return ErrInvariantViolation
	}
	rec.AvailableCopies++
	return nil
}

// SetReserved sets the book's reserved flag unconditionally. The
// reservation queues decide when; the flag blocks all borrowing while set.
func (inv *Inventory) SetReserved(isbn string, reserved bool) error {
	rec, ok := inv.byISBN[isbn]
	if !ok {
		return ErrNotFound
	}
	rec.Reserved = reserved
	return nil
}

// ------------------ Search & stats ------------------

// Search field selectors.
type bookField func(*Book) string

func byTitle(b *Book) string     { return b.Title }
func byAuthor(b *Book) string    { return b.Author }
func byPublisher(b *Book) string { return b.Publisher }
func byGenre(b *Book) string     { return b.Genre }

// findByField collects books whose field matches the key: exact match by
// default, case-insensitive substring match when fuzzy is set.
func (inv *Inventory) findByField(key string, field bookField, fuzzy bool) []Book {
	var results []Book
	lowerKey := strings.ToLower(key)
	for _, rec := range inv.books {
		value := field(rec)
		if fuzzy {
			if strings.Contains(strings.ToLower(value), lowerKey) {
				results = append(results, *rec)
			}
		} else if value == key {
			results = append(results, *rec)
		}
	}
	return results
}

// FindByTitle returns books matching the title.
func (inv *Inventory) FindByTitle(title string, fuzzy bool) []Book {
	return inv.findByField(title, byTitle, fuzzy)
}

// FindByAuthor returns books matching the author.
func (inv *Inventory) FindByAuthor(author string, fuzzy bool) []Book {
	return inv.findByField(author, byAuthor, fuzzy)
}

// FindByPublisher returns books matching the publisher.
func (inv *Inventory) FindByPublisher(publisher string, fuzzy bool) []Book {
	return inv.findByField(publisher, byPublisher, fuzzy)
}

// FindByGenre returns books matching the genre.
func (inv *Inventory) FindByGenre(genre string, fuzzy bool) []Book {
	return inv.findByField(genre, byGenre, fuzzy)
}

// Available returns the books that can currently be borrowed.
func (inv *Inventory) Available() []Book {
	var results []Book
	for _, rec := range inv.books {
		if rec.CanBorrow() {
			results = append(results, *rec)
		}
	}
	return results
}

// Count returns the number of catalog entries.
func (inv *Inventory) Count() int { return len(inv.books) }

// AvailableCount returns the number of borrowable titles.
func (inv *Inventory) AvailableCount() int {
	count := 0
	for _, rec := range inv.books {
		if rec.CanBorrow() {
			count++
		}
	}
	return count
}

// reset replaces the whole catalog. Used at load/restore boundaries.
func (inv *Inventory) reset(books []Book) {
	inv.books = inv.books[:0]
	inv.byISBN = make(map[string]*Book, len(books))
	for _, b := range books {
		rec := b
		inv.books = append(inv.books, &rec)
		inv.byISBN[rec.ISBN] = &rec
	}
}
