package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-circulation/circulation"
	"library-circulation/config"
	"library-circulation/store"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "library-circulation",
		Short:        "Single-branch library circulation manager",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "library.yaml", "path to the config file")

	root.AddCommand(
		newReportCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newBackupsCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// openLibrary loads the config, opens the database and builds the library.
// The caller closes the returned database.
func openLibrary() (*circulation.Library, *store.Database, config.Settings, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, cfg, err
	}
	db, err := store.NewDatabase(cfg.DatabasePath)
	if err != nil {
		return nil, nil, cfg, err
	}
	lib, err := circulation.NewLibrary(db, circulation.WithPolicy(cfg.Policy()))
	if err != nil {
		db.Close()
		return nil, nil, cfg, err
	}
	return lib, db, cfg, nil
}

// ------------------ Subcommands ------------------

func newReportCmd() *cobra.Command {
	var topN int
	cmd := &cobra.Command{
		Use:   "report [summary|inventory|members|loans|reservations|top|all]",
		Short: "Generate plain-text reports",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, db, cfg, err := openLibrary()
			if err != nil {
				return err
			}
			defer db.Close()

			reporter := circulation.NewReporter(lib, cfg.ReportsDir)
			which := "all"
			if len(args) == 1 {
				which = args[0]
			}

			var paths []string
			switch which {
			case "summary":
				path, err := reporter.Summary()
				if err != nil {
					return err
				}
				paths = append(paths, path)
			case "inventory":
				path, err := reporter.Inventory()
				if err != nil {
					return err
				}
				paths = append(paths, path)
			case "members":
				path, err := reporter.Members()
				if err != nil {
					return err
				}
				paths = append(paths, path)
			case "loans":
				path, err := reporter.Loans(topN)
				if err != nil {
					return err
				}
				paths = append(paths, path)
			case "reservations":
				path, err := reporter.Reservations()
				if err != nil {
					return err
				}
				paths = append(paths, path)
			case "top":
				path, err := reporter.TopBorrowed(topN)
				if err != nil {
					return err
				}
				paths = append(paths, path)
			case "all":
				if paths, err = reporter.All(topN); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown report %q", which)
			}

			for _, path := range paths {
				fmt.Println("Wrote", path)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&topN, "top", 10, "rows in the loan and top-borrowed reports")
	return cmd
}

func newBackupCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a backup archive of the library state",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, db, cfg, err := openLibrary()
			if err != nil {
				return err
			}
			defer db.Close()

			bm := store.NewBackupManager(lib, cfg.BackupsDir)
			id, err := bm.Create(description)
			if err != nil {
				return err
			}
			fmt.Println("Created backup", id)

			if removed, err := bm.AutoClean(cfg.BackupKeep); err != nil {
				return err
			} else if removed > 0 {
				fmt.Printf("Removed %d old backup(s)\n", removed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "description stored in the backup manifest")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Restore the library state from a backup archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, db, cfg, err := openLibrary()
			if err != nil {
				return err
			}
			defer db.Close()

			bm := store.NewBackupManager(lib, cfg.BackupsDir)
			if err := bm.Restore(args[0]); err != nil {
				return err
			}
			fmt.Println("Restored backup", args[0])
			return nil
		},
	}
}

func newBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List backup archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, db, cfg, err := openLibrary()
			if err != nil {
				return err
			}
			defer db.Close()

			infos, err := store.NewBackupManager(lib, cfg.BackupsDir).List()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("No backups found.")
				return nil
			}
			fmt.Printf("%-18s %-20s %-7s %-8s %-6s %s\n", "ID", "Created", "Books", "Members", "Loans", "Description")
			fmt.Println(strings.Repeat("-", 80))
			for _, info := range infos {
				fmt.Printf("%-18s %-20s %-7d %-8d %-6d %s\n",
					info.ID, info.CreatedAt.Format("2006-01-02 15:04:05"),
					info.Books, info.Members, info.Loans, info.Description)
			}
			return nil
		},
	}
}

// ------------------ Interactive console ------------------

func runConsole() error {
	lib, db, cfg, err := openLibrary()
	if err != nil {
		return err
	}
	defer db.Close()

	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Welcome to the Library Circulation Manager!")
	fmt.Println("Available commands:")
	fmt.Println("  Books: add book, list books, search book, remove book")
	fmt.Println("  Members: register member, list members, reset password")
	fmt.Println("  Circulation: borrow, renew, return, fine")
	fmt.Println("  Reservations: reserve, cancel reservation, list reservations, next in queue")
	fmt.Println("  Insight: my loans, recommend, report")
	fmt.Println("  System: backup, exit")

	reporter := circulation.NewReporter(lib, cfg.ReportsDir)
	backups := store.NewBackupManager(lib, cfg.BackupsDir)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "add book":
			handleAddBook(scanner, lib)
		case "list books":
			handleListBooks(lib)
		case "search book":
			handleSearchBooks(scanner, lib)
		case "remove book":
			handleRemoveBook(scanner, lib)
		case "register member":
			handleRegisterMember(scanner, lib)
		case "list members":
			handleListMembers(lib)
		case "reset password":
			handleResetPassword(scanner, lib)
		case "borrow":
			handleBorrow(scanner, lib)
		case "renew":
			handleRenew(scanner, lib)
		case "return":
			handleReturn(scanner, lib)
		case "fine":
			handleFine(scanner, lib)
		case "reserve":
			handleReserve(scanner, lib)
		case "cancel reservation":
			handleCancelReservation(scanner, lib)
		case "list reservations":
			handleListReservations(scanner, lib)
		case "next in queue":
			handleNextInQueue(scanner, lib)
		case "my loans":
			handleMyLoans(scanner, lib)
		case "recommend":
			handleRecommend(scanner, lib)
		case "report":
			handleReport(reporter)
		case "backup":
			handleBackup(scanner, backups, cfg.BackupKeep)
		case "exit":
			fmt.Println("Goodbye!")
			return nil
		default:
			fmt.Println("Unknown command. Type one of the available commands listed above.")
		}
	}
	return nil
}

// readPassword securely reads a password with masking
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

// authenticateMember prompts for and verifies member credentials
func authenticateMember(lib *circulation.Library, memberID string) error {
	password, err := readPassword("Enter your password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	return lib.Authenticate(memberID, password)
}

func prompt(sc *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func handleAddBook(sc *bufio.Scanner, lib *circulation.Library) {
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}
	title, ok := prompt(sc, "Title: ")
	if !ok {
		return
	}
	author, ok := prompt(sc, "Author: ")
	if !ok {
		return
	}
	publisher, ok := prompt(sc, "Publisher: ")
	if !ok {
		return
	}
	genre, ok := prompt(sc, "Genre: ")
	if !ok {
		return
	}
	copiesStr, ok := prompt(sc, "Copies: ")
	if !ok {
		return
	}
	copies, err := strconv.Atoi(copiesStr)
	if err != nil || copies <= 0 {
		fmt.Printf("Invalid copy count: %s\n", copiesStr)
		return
	}

	book := circulation.Book{
		ISBN:            isbn,
		Title:           title,
		Author:          author,
		Publisher:       publisher,
		Genre:           genre,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	if err := lib.AddBook(book); err != nil {
		fmt.Printf("Error adding book: %v\n", err)
		return
	}
	fmt.Printf("Added '%s' (%d copies)\n", title, copies)
}

func handleListBooks(lib *circulation.Library) {
	books := lib.Books()
	if len(books) == 0 {
		fmt.Println("No books in library.")
		return
	}

	fmt.Printf("%-14s %-30s %-20s %-15s %-6s %-10s %s\n",
		"ISBN", "Title", "Author", "Genre", "Total", "Available", "Reserved")
	fmt.Println(strings.Repeat("-", 105))
	for _, b := range books {
		reserved := "No"
		if b.Reserved {
			reserved = "Yes"
		}
		fmt.Printf("%-14s %-30s %-20s %-15s %-6d %-10d %s\n",
			b.ISBN, truncateString(b.Title, 30), truncateString(b.Author, 20),
			truncateString(b.Genre, 15), b.TotalCopies, b.AvailableCopies, reserved)
	}
}

func handleSearchBooks(sc *bufio.Scanner, lib *circulation.Library) {
	query, ok := prompt(sc, "Query: ")
	if !ok {
		return
	}
	books := lib.SearchBooks(query)
	if len(books) == 0 {
		fmt.Printf("No books found matching '%s'.\n", query)
		return
	}

	fmt.Printf("Found %d book(s) matching '%s':\n", len(books), query)
	fmt.Printf("%-14s %-30s %-20s %-15s %-10s\n", "ISBN", "Title", "Author", "Genre", "Available")
	fmt.Println(strings.Repeat("-", 95))
	for _, b := range books {
		fmt.Printf("%-14s %-30s %-20s %-15s %-10d\n",
			b.ISBN, truncateString(b.Title, 30), truncateString(b.Author, 20),
			truncateString(b.Genre, 15), b.AvailableCopies)
	}
}

func handleRemoveBook(sc *bufio.Scanner, lib *circulation.Library) {
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}
	book, err := lib.Book(isbn)
	if err != nil {
		fmt.Printf("Error: book %s not found\n", isbn)
		return
	}
	if err := lib.RemoveBook(isbn); err != nil {
		fmt.Printf("Error removing book: %v\n", err)
		return
	}
	fmt.Printf("Removed '%s'\n", book.Title)
}

func handleRegisterMember(sc *bufio.Scanner, lib *circulation.Library) {
	name, ok := prompt(sc, "Name: ")
	if !ok {
		return
	}
	phone, ok := prompt(sc, "Phone: ")
	if !ok {
		return
	}
	prefsStr, ok := prompt(sc, "Genre preferences (comma-separated, optional): ")
	if !ok {
		return
	}
	var prefs []string
	for _, p := range strings.Split(prefsStr, ",") {
		if p = strings.TrimSpace(p); p != "" {
			prefs = append(prefs, p)
		}
	}
	adminStr, ok := prompt(sc, "Admin account? (y/N): ")
	if !ok {
		return
	}
	admin := strings.EqualFold(adminStr, "y")

	password, err := readPassword(fmt.Sprintf("Enter password for %s: ", name))
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	if password == "" {
		fmt.Println("Error: Password cannot be empty")
		return
	}

	member, err := lib.RegisterMember(name, phone, prefs, admin, password)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Registered '%s' with ID %s (expires %s)\n",
		member.Name, member.ID, member.ExpiresOn.Format("2006-01-02"))
}

func handleListMembers(lib *circulation.Library) {
	members := lib.Members()
	if len(members) == 0 {
		fmt.Println("No members registered.")
		return
	}

	fmt.Printf("%-10s %-25s %-14s %-12s %-12s %-6s\n",
		"ID", "Name", "Phone", "Registered", "Expires", "Admin")
	fmt.Println(strings.Repeat("-", 85))
	for _, m := range members {
		admin := "No"
		if m.Admin {
			admin = "Yes"
		}
		fmt.Printf("%-10s %-25s %-14s %-12s %-12s %-6s\n",
			m.ID, truncateString(m.Name, 25), m.Phone,
			m.RegisteredOn.Format("2006-01-02"), m.ExpiresOn.Format("2006-01-02"), admin)
	}
}

func handleResetPassword(sc *bufio.Scanner, lib *circulation.Library) {
	memberID, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	member, err := lib.Member(memberID)
	if err != nil {
		fmt.Printf("Error: member %s not found\n", memberID)
		return
	}

	newPassword, err := readPassword(fmt.Sprintf("Enter new password for %s (%s): ", member.Name, memberID))
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	if newPassword == "" {
		fmt.Println("Error: Password cannot be empty")
		return
	}

	if err := lib.SetPassword(memberID, newPassword); err != nil {
		fmt.Printf("Error resetting password: %v\n", err)
		return
	}
	fmt.Printf("Password successfully reset for %s (%s)\n", member.Name, memberID)
}

func handleBorrow(sc *bufio.Scanner, lib *circulation.Library) {
	memberID, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}

	if err := authenticateMember(lib, memberID); err != nil {
		fmt.Printf("Authentication failed: %v\n", err)
		return
	}

	loanID, err := lib.Borrow(memberID, isbn)
	if err != nil {
		fmt.Printf("Error borrowing book: %v\n", err)
		return
	}
	loan, _ := lib.Loan(loanID)
	book, _ := lib.Book(isbn)
	fmt.Printf("'%s' borrowed. Loan %s is due on %s\n",
		book.Title, loanID, loan.DueOn.Format("2006-01-02"))
}

func handleRenew(sc *bufio.Scanner, lib *circulation.Library) {
	memberID, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}

	if err := authenticateMember(lib, memberID); err != nil {
		fmt.Printf("Authentication failed: %v\n", err)
		return
	}

	if err := lib.RenewByMember(memberID, isbn); err != nil {
		if errors.Is(err, circulation.ErrRenewalLimitExceeded) {
			fmt.Println("Renewal refused: the loan has reached the maximum borrow period.")
			return
		}
		fmt.Printf("Error renewing loan: %v\n", err)
		return
	}
	fmt.Println("Loan renewed.")
}

func handleReturn(sc *bufio.Scanner, lib *circulation.Library) {
	memberID, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}

	if err := authenticateMember(lib, memberID); err != nil {
		fmt.Printf("Authentication failed: %v\n", err)
		return
	}

	if err := lib.ReturnByMember(memberID, isbn); err != nil {
		fmt.Printf("Error returning book: %v\n", err)
		return
	}
	book, _ := lib.Book(isbn)
	fmt.Printf("'%s' returned.\n", book.Title)

	if next, ok := lib.PeekNextReservation(isbn); ok {
		if member, err := lib.Member(next.MemberID); err == nil {
			fmt.Printf("Next in the reservation queue: %s (%s). Cancel reservation %s once served.\n",
				member.Name, member.ID, next.ID)
		}
	}
}

func handleFine(sc *bufio.Scanner, lib *circulation.Library) {
	loanID, ok := prompt(sc, "Loan ID: ")
	if !ok {
		return
	}
	fine, err := lib.FineFor(loanID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Fine for loan %s: $%.2f\n", loanID, fine)
}

func handleReserve(sc *bufio.Scanner, lib *circulation.Library) {
	memberID, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}

	if err := authenticateMember(lib, memberID); err != nil {
		fmt.Printf("Authentication failed: %v\n", err)
		return
	}

	reservationID, err := lib.Reserve(memberID, isbn)
	if err != nil {
		fmt.Printf("Error reserving book: %v\n", err)
		return
	}
	book, _ := lib.Book(isbn)
	fmt.Printf("'%s' reserved. Reservation ID: %s\n", book.Title, reservationID)
	if pos, err := lib.QueuePosition(reservationID); err == nil {
		fmt.Printf("Position in queue: %d\n", pos)
	}
}

func handleCancelReservation(sc *bufio.Scanner, lib *circulation.Library) {
	reservationID, ok := prompt(sc, "Reservation ID: ")
	if !ok {
		return
	}
	rec, err := lib.Reservation(reservationID)
	if err != nil {
		fmt.Printf("Error: reservation %s not found\n", reservationID)
		return
	}

	if err := authenticateMember(lib, rec.MemberID); err != nil {
		fmt.Printf("Authentication failed: %v\n", err)
		return
	}

	if err := lib.CancelReservation(reservationID); err != nil {
		fmt.Printf("Error cancelling reservation: %v\n", err)
		return
	}
	book, _ := lib.Book(rec.ISBN)
	fmt.Printf("Reservation for '%s' cancelled.\n", book.Title)
}

func handleListReservations(sc *bufio.Scanner, lib *circulation.Library) {
	isbn, ok := prompt(sc, "ISBN (or press Enter for all books): ")
	if !ok {
		return
	}

	if isbn == "" {
		handleListAllReservations(lib)
		return
	}

	book, err := lib.Book(isbn)
	if err != nil {
		fmt.Printf("Error: book %s not found\n", isbn)
		return
	}

	queue := lib.QueueFor(isbn)
	fmt.Printf("Reservations for '%s' by %s:\n", book.Title, book.Author)
	if len(queue) == 0 {
		fmt.Println("No reservations for this book.")
		return
	}

	fmt.Printf("%-10s %-16s %-10s %-25s\n", "Position", "Reservation", "Member", "Name")
	fmt.Println(strings.Repeat("-", 65))
	for i, reservationID := range queue {
		rec, err := lib.Reservation(reservationID)
		if err != nil {
			continue
		}
		name := ""
		if member, err := lib.Member(rec.MemberID); err == nil {
			name = member.Name
		}
		fmt.Printf("%-10d %-16s %-10s %-25s\n", i+1, rec.ID, rec.MemberID, truncateString(name, 25))
	}
}

func handleListAllReservations(lib *circulation.Library) {
	books := lib.Books()
	if len(books) == 0 {
		fmt.Println("No books in the library.")
		return
	}

	hasAny := false
	for _, book := range books {
		queue := lib.QueueFor(book.ISBN)
		if len(queue) == 0 {
			continue
		}
		hasAny = true
		fmt.Printf("'%s' (%s) — %d waiting:\n", book.Title, book.ISBN, len(queue))
		for i, reservationID := range queue {
			rec, err := lib.Reservation(reservationID)
			if err != nil {
				continue
			}
			name := rec.MemberID
			if member, err := lib.Member(rec.MemberID); err == nil {
				name = fmt.Sprintf("%s (%s)", member.Name, member.ID)
			}
			fmt.Printf("  %d. %s — %s\n", i+1, rec.ID, name)
		}
	}
	if !hasAny {
		fmt.Println("No active reservations in the system.")
	}
}

func handleNextInQueue(sc *bufio.Scanner, lib *circulation.Library) {
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}
	next, found := lib.PeekNextReservation(isbn)
	if !found {
		fmt.Println("No one is waiting on this book.")
		return
	}
	name := next.MemberID
	if member, err := lib.Member(next.MemberID); err == nil {
		name = fmt.Sprintf("%s (%s)", member.Name, member.ID)
	}
	fmt.Printf("Next in queue: %s, reservation %s from %s\n",
		name, next.ID, next.ReservedOn.Format("2006-01-02"))
}

func handleMyLoans(sc *bufio.Scanner, lib *circulation.Library) {
	memberID, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	loans := lib.MemberLoans(memberID)
	if len(loans) == 0 {
		fmt.Println("No active loans.")
		return
	}

	today := lib.Today()
	policy := lib.Policy()
	fmt.Printf("%-12s %-14s %-12s %-12s %-8s %s\n", "Loan", "ISBN", "Borrowed", "Due", "Overdue", "Fine")
	fmt.Println(strings.Repeat("-", 70))
	for _, loan := range loans {
		overdue := "No"
		if loan.OverdueAt(today) {
			overdue = "Yes"
		}
		fmt.Printf("%-12s %-14s %-12s %-12s %-8s $%.2f\n",
			loan.ID, loan.ISBN, loan.BorrowedOn.Format("2006-01-02"),
			loan.DueOn.Format("2006-01-02"), overdue, loan.FineAt(today, policy))
	}
}

func handleRecommend(sc *bufio.Scanner, lib *circulation.Library) {
	memberID, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	books := circulation.NewRecommender(lib).Recommend(memberID, 5, 5, true)
	if len(books) == 0 {
		fmt.Println("No recommendations available.")
		return
	}

	fmt.Println("Recommended for you:")
	for i, b := range books {
		fmt.Printf("  %d. %s by %s (%s)\n", i+1, b.Title, b.Author, b.Genre)
	}
}

func handleReport(reporter *circulation.Reporter) {
	paths, err := reporter.All(10)
	if err != nil {
		fmt.Printf("Error generating reports: %v\n", err)
		return
	}
	for _, path := range paths {
		fmt.Println("Wrote", path)
	}
}

func handleBackup(sc *bufio.Scanner, backups *store.BackupManager, keep int) {
	description, ok := prompt(sc, "Description (optional): ")
	if !ok {
		return
	}
	id, err := backups.Create(description)
	if err != nil {
		fmt.Printf("Error creating backup: %v\n", err)
		return
	}
	fmt.Println("Created backup", id)

	if removed, err := backups.AutoClean(keep); err != nil {
		fmt.Printf("Error cleaning old backups: %v\n", err)
	} else if removed > 0 {
		fmt.Printf("Removed %d old backup(s)\n", removed)
	}
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
