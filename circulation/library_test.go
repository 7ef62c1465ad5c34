package circulation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore keeps snapshots in memory and counts flushes.
type memStore struct {
	snap    Snapshot
	saves   int
	loadErr error
	saveErr error
}

func (s *memStore) LoadAll() (Snapshot, error) {
	if s.loadErr != nil {
		return Snapshot{}, s.loadErr
	}
	return s.snap, nil
}

func (s *memStore) SaveAll(snap Snapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snap = snap
	s.saves++
	return nil
}

func newTestLibrary(t *testing.T, store *memStore) *Library {
	t.Helper()
	lib, err := NewLibrary(store, WithClock(FixedClock(Date(2026, 8, 1))))
	require.NoError(t, err)
	return lib
}

func seedTestLibrary(t *testing.T, lib *Library) Member {
	t.Helper()
	require.NoError(t, lib.AddBook(testBook("111", 2)))
	require.NoError(t, lib.AddBook(testBook("222", 1)))
	member, err := lib.RegisterMember("Alice", "13000000001", []string{"Fiction"}, false, "pw")
	require.NoError(t, err)
	return member
}

func TestLibraryLoadsStateFromStore(t *testing.T) {
	st := &memStore{snap: Snapshot{
		Books: []Book{{ISBN: "111", Title: "Loaded", TotalCopies: 1, AvailableCopies: 1, Reserved: true}},
		Members: []Member{
			testMember("M2026100001", 2, Date(2027, 1, 1)),
		},
		Reservations: []Reservation{
			{ID: "R2026300001", MemberID: "M2026100001", ISBN: "111", ReservedOn: Date(2026, 7, 1), Active: true},
		},
	}}
	lib := newTestLibrary(t, st)

	book, err := lib.Book("111")
	require.NoError(t, err)
	assert.Equal(t, "Loaded", book.Title)

	// The waiting list was rebuilt from the loaded records.
	assert.Equal(t, []string{"R2026300001"}, lib.QueueFor("111"))

	_, err = lib.Borrow("M2026100001", "111")
	assert.ErrorIs(t, err, ErrTitleUnavailable, "reserved flag survives the load")
}

func TestLibraryPropagatesLoadError(t *testing.T) {
	st := &memStore{loadErr: errors.New("disk gone")}
	_, err := NewLibrary(st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load library state")
}

func TestLibraryAutosavesAfterEachMutation(t *testing.T) {
	st := &memStore{}
	lib := newTestLibrary(t, st)

	require.NoError(t, lib.AddBook(testBook("111", 1)))
	assert.Equal(t, 1, st.saves)

	member, err := lib.RegisterMember("Alice", "13000000001", nil, false, "pw")
	require.NoError(t, err)
	assert.Equal(t, 2, st.saves)

	_, err = lib.Borrow(member.ID, "111")
	require.NoError(t, err)
	assert.Equal(t, 3, st.saves)

	// Reads never flush.
	lib.Books()
	lib.ActiveLoans()
	assert.Equal(t, 3, st.saves)

	// A failed mutation flushes nothing.
	_, err = lib.Borrow(member.ID, "999")
	require.Error(t, err)
	assert.Equal(t, 3, st.saves)
}

func TestLibraryBatchFlushesOnce(t *testing.T) {
	st := &memStore{}
	lib := newTestLibrary(t, st)

	err := lib.Batch(func() error {
		if err := lib.AddBook(testBook("111", 2)); err != nil {
			return err
		}
		if err := lib.AddBook(testBook("222", 1)); err != nil {
			return err
		}
		_, err := lib.RegisterMember("Alice", "13000000001", nil, false, "pw")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, st.saves, "a batch flushes exactly once at the end")
	assert.Len(t, st.snap.Books, 2)
	assert.Len(t, st.snap.Members, 1)

	// Autosave is back on after the batch.
	require.NoError(t, lib.AddBook(testBook("333", 1)))
	assert.Equal(t, 2, st.saves)
}

func TestLibraryBatchStillFlushesOnError(t *testing.T) {
	st := &memStore{}
	lib := newTestLibrary(t, st)

	boom := errors.New("boom")
	err := lib.Batch(func() error {
		if err := lib.AddBook(testBook("111", 2)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	// In-memory mutations before the failure are kept and flushed.
	assert.Equal(t, 1, st.saves)
	assert.Len(t, st.snap.Books, 1)
}

func TestLibrarySnapshotRoundTrip(t *testing.T) {
	st := &memStore{}
	lib := newTestLibrary(t, st)
	member := seedTestLibrary(t, lib)

	loanID, err := lib.Borrow(member.ID, "111")
	require.NoError(t, err)
	_, err = lib.Reserve(member.ID, "222")
	require.NoError(t, err)

	// A second library over the same store sees identical state.
	reloaded := newTestLibrary(t, st)
	loan, err := reloaded.Loan(loanID)
	require.NoError(t, err)
	assert.Equal(t, member.ID, loan.MemberID)
	assert.Len(t, reloaded.QueueFor("222"), 1)

	book, _ := reloaded.Book("111")
	assert.Equal(t, 1, book.AvailableCopies)
}

func TestLibraryRestoreReplacesState(t *testing.T) {
	st := &memStore{}
	lib := newTestLibrary(t, st)
	seedTestLibrary(t, lib)

	checkpoint := lib.Snapshot()

	require.NoError(t, lib.AddBook(testBook("333", 1)))
	require.NoError(t, lib.RemoveBook("111"))

	require.NoError(t, lib.Restore(checkpoint))
	_, err := lib.Book("111")
	assert.NoError(t, err)
	_, err = lib.Book("333")
	assert.ErrorIs(t, err, ErrNotFound)

	// The restored state was flushed through to the store.
	assert.Len(t, st.snap.Books, 2)
}

func TestLibrarySearchBooksDeduplicates(t *testing.T) {
	st := &memStore{}
	lib := newTestLibrary(t, st)

	// Title and author both match the query for the same book.
	require.NoError(t, lib.AddBook(Book{
		ISBN: "1", Title: "Go Go Go", Author: "Gopher", Genre: "Tech",
		TotalCopies: 1, AvailableCopies: 1,
	}))
	require.NoError(t, lib.AddBook(Book{
		ISBN: "2", Title: "Sapiens", Author: "Harari", Genre: "History",
		TotalCopies: 1, AvailableCopies: 1,
	}))

	results := lib.SearchBooks("go")
	assert.Len(t, results, 1)
	assert.Equal(t, "1", results[0].ISBN)
}

func TestLibraryAuthenticate(t *testing.T) {
	st := &memStore{}
	lib := newTestLibrary(t, st)
	member := seedTestLibrary(t, lib)

	assert.NoError(t, lib.Authenticate(member.ID, "pw"))
	assert.ErrorIs(t, lib.Authenticate(member.ID, "nope"), ErrAuthentication)

	require.NoError(t, lib.SetPassword(member.ID, "fresh"))
	assert.NoError(t, lib.Authenticate(member.ID, "fresh"))
}
