package circulation

// Policy bundles the lending rules that are configurable at runtime.
// DefaultPolicy mirrors the library's standing rules: two weeks per loan,
// one-week renewals up to a 30-day total, $2.00/day fines capped at $14.00.
type Policy struct {
	BorrowDays      int
	RenewalDays     int
	MaxBorrowDays   int
	FinePerDay      float64
	MaxFine         float64
	DefaultMaxBooks int
	MembershipDays  int
}

// DefaultPolicy returns the standard lending rules.
func DefaultPolicy() Policy {
	return Policy{
		BorrowDays:      14,
		RenewalDays:     7,
		MaxBorrowDays:   30,
		FinePerDay:      2.0,
		MaxFine:         14.0,
		DefaultMaxBooks: 2,
		MembershipDays:  365,
	}
}
