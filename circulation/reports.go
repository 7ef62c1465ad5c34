package circulation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Reporter renders plain-text reports over a library's current state and
// writes them into a reports directory, one timestamped file per report.
type Reporter struct {
	lib *Library
	dir string
}

// NewReporter returns a reporter writing into dir. The directory is
// created on the first write.
func NewReporter(lib *Library, dir string) *Reporter {
	return &Reporter{lib: lib, dir: dir}
}

const reportBanner = "================================================"
const reportHeading = "         LIBRARY MANAGEMENT SYSTEM REPORT       "

func reportHeader(title string) []string {
	pad := (len(reportBanner) - len(title)) / 2
	return []string{
		reportBanner,
		reportHeading,
		strings.Repeat(" ", pad) + title,
		reportBanner,
		"",
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// ------------------ Report builders ------------------

// BuildSummary renders the counts across all four record types.
func (r *Reporter) BuildSummary() []string {
	snap := r.lib.Snapshot()
	today := r.lib.Today()

	available, admins, active, overdue, activeRes := 0, 0, 0, 0, 0
	for _, b := range snap.Books {
		if b.CanBorrow() {
			available++
		}
	}
	for _, m := range snap.Members {
		if m.Admin {
			admins++
		}
	}
	for _, l := range snap.Loans {
		if !l.Returned {
			active++
			if l.OverdueAt(today) {
				overdue++
			}
		}
	}
	for _, res := range snap.Reservations {
		if res.Active {
			activeRes++
		}
	}

	lines := reportHeader("SUMMARY REPORT")
	lines = append(lines,
		"Report Generated: "+formatDate(today),
		"",
		"--- Book Statistics ---",
		fmt.Sprintf("Total Books in Library: %d", len(snap.Books)),
		fmt.Sprintf("Available Number: %d", available),
		fmt.Sprintf("Borrowed Books: %d", len(snap.Books)-available),
		"",
		"--- Member Statistics ---",
		fmt.Sprintf("Total Members in Library: %d", len(snap.Members)),
		fmt.Sprintf("Admin members: %d", admins),
		fmt.Sprintf("Regular members: %d", len(snap.Members)-admins),
		"",
		"--- Loan Statistics ---",
		fmt.Sprintf("Total Loans in Library: %d", len(snap.Loans)),
		fmt.Sprintf("Active Loans: %d", active),
		fmt.Sprintf("Overdue Loans: %d", overdue),
		"",
		"--- Reservation Statistics ---",
		fmt.Sprintf("Total Reservations: %d", len(snap.Reservations)),
		fmt.Sprintf("Active Reservations: %d", activeRes),
		"",
		reportBanner,
	)
	return lines
}

// BuildInventory renders the catalog as a fixed-width table.
func (r *Reporter) BuildInventory() []string {
	snap := r.lib.Snapshot()

	lines := reportHeader("INVENTORY REPORT")
	lines = append(lines,
		"Report Generated: "+formatDate(r.lib.Today()),
		"",
		"ISBN          | Title                    | Author          | Total | Available",
		"--------------|--------------------------|-----------------|-------|----------|",
	)

	available := 0
	for _, b := range snap.Books {
		if b.CanBorrow() {
			available++
		}
		lines = append(lines, fmt.Sprintf("%-14s|%-26s|%-17s|%-7d|%-10d|",
			b.ISBN, truncate(b.Title, 24), clip(b.Author, 16), b.TotalCopies, b.AvailableCopies))
	}

	lines = append(lines,
		"",
		fmt.Sprintf("Total Books: %d", len(snap.Books)),
		fmt.Sprintf("Available Books: %d", available),
		"",
		reportBanner,
	)
	return lines
}

// BuildMembers renders the member registry.
func (r *Reporter) BuildMembers() []string {
	snap := r.lib.Snapshot()

	lines := reportHeader("MEMBER REPORT")
	lines = append(lines,
		"Report Generated: "+formatDate(r.lib.Today()),
		"",
		"Member ID | Name                 | Phone Number | Registration Date | Expiry Date",
		"----------|----------------------|--------------|-------------------|-----------",
	)

	admins := 0
	for _, m := range snap.Members {
		if m.Admin {
			admins++
		}
		lines = append(lines, fmt.Sprintf("%-10s| %-21s| %-13s| %-18s| %s",
			m.ID, m.Name, m.Phone, formatDate(m.RegisteredOn), formatDate(m.ExpiresOn)))
	}

	lines = append(lines,
		"",
		fmt.Sprintf("Total Members: %d", len(snap.Members)),
		fmt.Sprintf("Admin Accounts: %d", admins),
		"",
		reportBanner,
	)
	return lines
}

// BuildLoans renders the topN most recent loans by borrow date.
func (r *Reporter) BuildLoans(topN int) []string {
	if topN <= 0 {
		topN = 10
	}
	snap := r.lib.Snapshot()
	today := r.lib.Today()

	lines := reportHeader("LOAN REPORT")
	lines = append(lines,
		"Report Generated: "+formatDate(today),
		"",
		"Loan ID        | Member ID |     ISBN      | Borrow Date | Due Date   | Returned | Fine",
		"---------------|-----------|---------------|-------------|------------|----------|-----",
	)

	recent := make([]Loan, len(snap.Loans))
	copy(recent, snap.Loans)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].BorrowedOn.After(recent[j].BorrowedOn)
	})
	if len(recent) > topN {
		recent = recent[:topN]
	}

	active, overdue := 0, 0
	for _, l := range snap.Loans {
		if !l.Returned {
			active++
			if l.OverdueAt(today) {
				overdue++
			}
		}
	}

	policy := r.lib.Policy()
	for _, l := range recent {
		returned := "No"
		if l.Returned {
			returned = "Yes"
		}
		lines = append(lines, fmt.Sprintf("%-15s| %-10s| %-14s| %-12s| %-11s| %-9s| %.2f",
			l.ID, l.MemberID, l.ISBN, formatDate(l.BorrowedOn), formatDate(l.DueOn),
			returned, l.FineAt(today, policy)))
	}

	lines = append(lines,
		"",
		fmt.Sprintf("Total Loans: %d", len(snap.Loans)),
		fmt.Sprintf("Active Loans: %d", active),
		fmt.Sprintf("Overdue Loans: %d", overdue),
		"",
		reportBanner,
	)
	return lines
}

// BuildReservations renders every reservation record with its status.
func (r *Reporter) BuildReservations() []string {
	snap := r.lib.Snapshot()

	lines := reportHeader("RESERVATION REPORT")
	lines = append(lines,
		"Report Generated: "+formatDate(r.lib.Today()),
		"",
		"Reservation ID | Member ID |     ISBN     | Reservation Date | Status",
		"---------------|-----------|--------------|------------------|--------",
	)

	active := 0
	for _, res := range snap.Reservations {
		status := "Cancelled"
		if res.Active {
			status = "Active"
			active++
		}
		lines = append(lines, fmt.Sprintf("%-15s| %-10s| %-14s| %-17s| %s",
			res.ID, res.MemberID, res.ISBN, formatDate(res.ReservedOn), status))
	}

	lines = append(lines,
		"",
		fmt.Sprintf("Total Reservations: %d", len(snap.Reservations)),
		fmt.Sprintf("Active Reservations: %d", active),
		"",
		reportBanner,
	)
	return lines
}

// BuildTopBorrowed ranks books by how often they have been borrowed,
// counting the full loan history. Books no longer in the catalog are
// skipped.
func (r *Reporter) BuildTopBorrowed(topN int) []string {
	if topN <= 0 {
		topN = 10
	}
	snap := r.lib.Snapshot()

	counts := make(map[string]int)
	for _, l := range snap.Loans {
		counts[l.ISBN]++
	}
	type borrowCount struct {
		isbn  string
		count int
	}
	ranked := make([]borrowCount, 0, len(counts))
	for isbn, count := range counts {
		ranked = append(ranked, borrowCount{isbn, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].isbn < ranked[j].isbn
	})

	byISBN := make(map[string]Book, len(snap.Books))
	for _, b := range snap.Books {
		byISBN[b.ISBN] = b
	}

	lines := reportHeader("TOP BORROWED BOOKS REPORT")
	lines = append(lines,
		"Report Generated: "+formatDate(r.lib.Today()),
		"",
		"Rank | ISBN       | Title                    | Author          | Borrow Count",
		"-----|------------|--------------------------|-----------------|-------------",
	)

	rank := 1
	for _, entry := range ranked {
		if rank > topN {
			break
		}
		book, ok := byISBN[entry.isbn]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-5d| %-11s| %-25s| %-16s| %d",
			rank, book.ISBN, truncate(book.Title, 24), clip(book.Author, 15), entry.count))
		rank++
	}

	lines = append(lines,
		"",
		fmt.Sprintf("Total Books with Loans: %d", len(counts)),
		"",
		reportBanner,
	)
	return lines
}

// ------------------ File output ------------------

// reportFileName builds "Prefix_YYYY-MM-DD_HHMMSS.txt" from the wall
// clock. Reports are operator artifacts, so they use real time even when
// the library runs on a fixed clock.
func reportFileName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s.txt", prefix, now.Format("2006-01-02"), now.Format("150405"))
}

func (r *Reporter) write(prefix string, lines []string) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}
	path := filepath.Join(r.dir, reportFileName(prefix, time.Now()))
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}

// Summary writes the summary report and returns the file path.
func (r *Reporter) Summary() (string, error) {
	return r.write("SummaryReport", r.BuildSummary())
}

// Inventory writes the inventory report and returns the file path.
func (r *Reporter) Inventory() (string, error) {
	return r.write("InventoryReport", r.BuildInventory())
}

// Members writes the member report and returns the file path.
func (r *Reporter) Members() (string, error) {
	return r.write("MemberReport", r.BuildMembers())
}

// Loans writes the loan report and returns the file path.
func (r *Reporter) Loans(topN int) (string, error) {
	return r.write("LoanReport", r.BuildLoans(topN))
}

// Reservations writes the reservation report and returns the file path.
func (r *Reporter) Reservations() (string, error) {
	return r.write("ReservationReport", r.BuildReservations())
}

// TopBorrowed writes the top-borrowed-books report and returns the file
// path.
func (r *Reporter) TopBorrowed(topN int) (string, error) {
	return r.write("TopBorrowedBooksReport", r.BuildTopBorrowed(topN))
}

// All writes every report and returns the file paths. Generation stops at
// the first failure.
func (r *Reporter) All(topN int) ([]string, error) {
	var paths []string
	for _, gen := range []func() (string, error){
		r.Summary,
		r.Inventory,
		r.Members,
		func() (string, error) { return r.Loans(topN) },
		r.Reservations,
		func() (string, error) { return r.TopBorrowed(topN) },
	} {
		path, err := gen()
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
