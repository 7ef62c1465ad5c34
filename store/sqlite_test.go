package store

import (
	"path/filepath"
	"testing"
	"time"

	"library-circulation/circulation"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testSnapshot() circulation.Snapshot {
	return circulation.Snapshot{
		Books: []circulation.Book{
			{ISBN: "9787020002207", Title: "Dream of the Red Chamber", Author: "Cao Xueqin",
				Publisher: "People's Literature", Genre: "Fiction", TotalCopies: 5, AvailableCopies: 4, Reserved: true},
			{ISBN: "9787544771047", Title: "Sapiens", Author: "Yuval Noah Harari",
				Publisher: "CITIC Press", Genre: "History", TotalCopies: 3, AvailableCopies: 3},
		},
		Members: []circulation.Member{
			{ID: "M20263001", Name: "Alice", Phone: "13000000001",
				Preferences:  []string{"Fiction", "History"},
				RegisteredOn: circulation.Date(2026, 8, 1), ExpiresOn: circulation.Date(2027, 8, 1),
				MaxBooks: 2, PasswordHash: "$2a$10$abcdefg"},
			{ID: "A20263001", Name: "Root", Phone: "13000000002",
				RegisteredOn: circulation.Date(2026, 8, 1), ExpiresOn: circulation.Date(2027, 8, 1),
				MaxBooks: 10, Admin: true},
		},
		Loans: []circulation.Loan{
			{ID: "T2026300001", MemberID: "M20263001", ISBN: "9787020002207",
				BorrowedOn: circulation.Date(2026, 8, 1), DueOn: circulation.Date(2026, 8, 15)},
			{ID: "T2026300002", MemberID: "M20263001", ISBN: "9787544771047",
				BorrowedOn: circulation.Date(2026, 7, 1), DueOn: circulation.Date(2026, 7, 15),
				ReturnedOn: circulation.Date(2026, 7, 20), Renewals: 1, Fine: 10, Returned: true},
		},
		Reservations: []circulation.Reservation{
			{ID: "R2026300001", MemberID: "A20263001", ISBN: "9787020002207",
				ReservedOn: circulation.Date(2026, 8, 2), Active: true},
		},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	db := tempDB(t)
	want := testSnapshot()

	if err := db.SaveAll(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := db.LoadAll()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(got.Books) != 2 || len(got.Members) != 2 || len(got.Loans) != 2 || len(got.Reservations) != 1 {
		t.Fatalf("unexpected record counts: %d books, %d members, %d loans, %d reservations",
			len(got.Books), len(got.Members), len(got.Loans), len(got.Reservations))
	}

	book := got.Books[0]
	if book.ISBN != "9787020002207" || book.AvailableCopies != 4 || !book.Reserved {
		t.Fatalf("book did not round-trip: %+v", book)
	}

	member := got.Members[0]
	if member.ID != "M20263001" || len(member.Preferences) != 2 || member.Preferences[1] != "History" {
		t.Fatalf("member did not round-trip: %+v", member)
	}
	if !member.RegisteredOn.Equal(circulation.Date(2026, 8, 1)) {
		t.Fatalf("registration date did not round-trip: %v", member.RegisteredOn)
	}

	loan := got.Loans[1]
	if !loan.Returned || loan.Fine != 10 || loan.Renewals != 1 {
		t.Fatalf("loan did not round-trip: %+v", loan)
	}
	if !loan.ReturnedOn.Equal(circulation.Date(2026, 7, 20)) {
		t.Fatalf("return date did not round-trip: %v", loan.ReturnedOn)
	}

	res := got.Reservations[0]
	if res.MemberID != "A20263001" || !res.Active {
		t.Fatalf("reservation did not round-trip: %+v", res)
	}
}

func TestSaveAllReplacesPreviousState(t *testing.T) {
	db := tempDB(t)

	if err := db.SaveAll(testSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Save a smaller snapshot; stale rows must not survive.
	small := circulation.Snapshot{
		Books: []circulation.Book{
			{ISBN: "1", Title: "Only", Author: "A", TotalCopies: 1, AvailableCopies: 1},
		},
	}
	if err := db.SaveAll(small); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.LoadAll()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Books) != 1 || len(got.Members) != 0 || len(got.Loans) != 0 {
		t.Fatalf("stale rows survived: %d books, %d members, %d loans",
			len(got.Books), len(got.Members), len(got.Loans))
	}
}

func TestLoadAllEmptyDatabase(t *testing.T) {
	db := tempDB(t)
	got, err := db.LoadAll()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Books) != 0 || len(got.Members) != 0 || len(got.Loans) != 0 || len(got.Reservations) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", got)
	}
}

func TestZeroDatesRoundTripAsZero(t *testing.T) {
	db := tempDB(t)
	snap := circulation.Snapshot{
		Loans: []circulation.Loan{
			{ID: "T1", MemberID: "M1", ISBN: "1",
				BorrowedOn: circulation.Date(2026, 8, 1), DueOn: circulation.Date(2026, 8, 15)},
		},
	}
	if err := db.SaveAll(snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.LoadAll()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Loans[0].ReturnedOn.IsZero() {
		t.Fatalf("unset return date came back as %v", got.Loans[0].ReturnedOn)
	}
}

func TestReopenSeesPersistedState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	db, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	if err := db.SaveAll(testSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.LoadAll()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Books) != 2 {
		t.Fatalf("want 2 books after reopen, got %d", len(got.Books))
	}
}

func TestDateEncoding(t *testing.T) {
	if got := encodeDate(time.Time{}); got != "" {
		t.Fatalf("zero date encodes to %q, want empty", got)
	}
	day := circulation.Date(2026, 8, 30)
	encoded := encodeDate(day)
	if encoded != "2026-08-30" {
		t.Fatalf("encode: got %q", encoded)
	}
	decoded, err := decodeDate(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(day) {
		t.Fatalf("round-trip mismatch: %v", decoded)
	}
	if _, err := decodeDate("not-a-date"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}
