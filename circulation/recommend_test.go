package circulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recommendFixture(t *testing.T) *Library {
	t.Helper()
	st := &memStore{snap: Snapshot{
		Books: []Book{
			{ISBN: "F1", Title: "Fiction One", Genre: "Fiction", TotalCopies: 2, AvailableCopies: 2},
			{ISBN: "F2", Title: "Fiction Two", Genre: "Fiction", TotalCopies: 2, AvailableCopies: 2},
			{ISBN: "S1", Title: "Science One", Genre: "Science", TotalCopies: 2, AvailableCopies: 2},
			{ISBN: "H1", Title: "History One", Genre: "History", TotalCopies: 2, AvailableCopies: 2},
		},
		Members: []Member{
			{ID: "M1", Name: "Alice", Preferences: []string{"Fiction"}, ExpiresOn: Date(2027, 1, 1), MaxBooks: 2},
			{ID: "M2", Name: "Bob", Preferences: []string{"Fiction"}, ExpiresOn: Date(2027, 1, 1), MaxBooks: 2},
			{ID: "M3", Name: "Carol", Preferences: []string{"History"}, ExpiresOn: Date(2027, 1, 1), MaxBooks: 2},
		},
		Loans: []Loan{
			{ID: "T1", MemberID: "M1", ISBN: "F1", BorrowedOn: Date(2026, 7, 1), DueOn: Date(2026, 7, 15), Returned: true},
			{ID: "T2", MemberID: "M2", ISBN: "F1", BorrowedOn: Date(2026, 7, 2), DueOn: Date(2026, 7, 16), Returned: true},
			{ID: "T3", MemberID: "M2", ISBN: "F2", BorrowedOn: Date(2026, 7, 3), DueOn: Date(2026, 7, 17), Returned: true},
			{ID: "T4", MemberID: "M3", ISBN: "H1", BorrowedOn: Date(2026, 7, 4), DueOn: Date(2026, 7, 18), Returned: true},
		},
	}}
	return newTestLibrary(t, st)
}

func TestRecommendFromSimilarMembers(t *testing.T) {
	lib := recommendFixture(t)

	// Bob shares Alice's fiction profile and has read F2, which Alice has
	// not. F2 should lead the list; F1 is excluded as already borrowed.
	books := NewRecommender(lib).Recommend("M1", 5, 5, false)
	require.NotEmpty(t, books)
	assert.Equal(t, "F2", books[0].ISBN)
	for _, b := range books {
		assert.NotEqual(t, "F1", b.ISBN)
	}
}

func TestRecommendFallsBackToContentProfile(t *testing.T) {
	st := &memStore{snap: Snapshot{
		Books: []Book{
			{ISBN: "F1", Title: "Fiction One", Genre: "Fiction", TotalCopies: 1, AvailableCopies: 1},
			{ISBN: "S1", Title: "Science One", Genre: "Science", TotalCopies: 1, AvailableCopies: 1},
		},
		Members: []Member{
			{ID: "M1", Name: "Alice", Preferences: []string{"Fiction"}, ExpiresOn: Date(2027, 1, 1), MaxBooks: 2},
		},
	}}
	lib := newTestLibrary(t, st)

	// No other member exists, so the collaborative pass finds nothing and
	// the genre profile decides.
	books := NewRecommender(lib).Recommend("M1", 2, 5, false)
	require.Len(t, books, 2)
	assert.Equal(t, "F1", books[0].ISBN, "preferred genre ranks first")
}

func TestRecommendAvailableOnly(t *testing.T) {
	lib := recommendFixture(t)

	// Take every copy of F2 off the shelf.
	book, err := lib.Book("F2")
	require.NoError(t, err)
	book.AvailableCopies = 0
	require.NoError(t, lib.UpdateBook(book))

	books := NewRecommender(lib).Recommend("M1", 5, 5, true)
	for _, b := range books {
		assert.NotEqual(t, "F2", b.ISBN)
	}
}

func TestRecommendEdgeCases(t *testing.T) {
	lib := recommendFixture(t)
	rec := NewRecommender(lib)

	assert.Nil(t, rec.Recommend("M1", 0, 5, false), "non-positive topN yields nothing")
	assert.Nil(t, rec.Recommend("M999", 5, 5, false), "unknown member yields nothing")

	books := rec.Recommend("M1", 1, 5, false)
	assert.Len(t, books, 1, "topN caps the result")
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Zero(t, cosineSimilarity([]float64{1}, []float64{1, 2}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}
