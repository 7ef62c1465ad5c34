// Package store persists the circulation state in SQLite and provides
// JSON backup archives of it.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"library-circulation/circulation"
)

// Database persists circulation snapshots in SQLite. Loads and saves move
// the whole state at once: SaveAll rewrites every table inside a single
// transaction, so a snapshot on disk is always internally consistent.
type Database struct {
	db *sql.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

// Close closes the underlying connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            isbn TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            publisher TEXT NOT NULL,
            genre TEXT NOT NULL,
            total_copies INTEGER NOT NULL,
            available_copies INTEGER NOT NULL,
            reserved BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            phone TEXT NOT NULL,
            preferences TEXT NOT NULL DEFAULT '',
            registered_on TEXT NOT NULL,
            expires_on TEXT NOT NULL,
            max_books INTEGER NOT NULL,
            admin BOOLEAN NOT NULL DEFAULT 0,
            password_hash TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            id TEXT PRIMARY KEY,
            member_id TEXT NOT NULL,
            isbn TEXT NOT NULL,
            borrowed_on TEXT NOT NULL,
            due_on TEXT NOT NULL,
            returned_on TEXT NOT NULL DEFAULT '',
            renewals INTEGER NOT NULL DEFAULT 0,
            fine REAL NOT NULL DEFAULT 0,
            returned BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS reservations (
            id TEXT PRIMARY KEY,
            member_id TEXT NOT NULL,
            isbn TEXT NOT NULL,
            reserved_on TEXT NOT NULL,
            active BOOLEAN NOT NULL DEFAULT 1
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Date and list encoding
// ---------------------------------------------------------------------------

const dateLayout = "2006-01-02"

func encodeDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func decodeDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func encodeList(items []string) string {
	return strings.Join(items, ";")
}

func decodeList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ";")
}

// ---------------------------------------------------------------------------
// Store implementation
// ---------------------------------------------------------------------------

// LoadAll reads the whole circulation state from the database.
func (d *Database) LoadAll() (circulation.Snapshot, error) {
	var snap circulation.Snapshot
	var err error
	if snap.Books, err = d.loadBooks(); err != nil {
		return snap, err
	}
	if snap.Members, err = d.loadMembers(); err != nil {
		return snap, err
	}
	if snap.Loans, err = d.loadLoans(); err != nil {
		return snap, err
	}
	if snap.Reservations, err = d.loadReservations(); err != nil {
		return snap, err
	}
	return snap, nil
}

// SaveAll replaces the stored state with the snapshot in one transaction.
func (d *Database) SaveAll(snap circulation.Snapshot) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"books", "members", "loans", "reservations"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, b := range snap.Books {
		if _, err := tx.Exec(
			`INSERT INTO books(isbn,title,author,publisher,genre,total_copies,available_copies,reserved)
             VALUES(?,?,?,?,?,?,?,?)`,
			b.ISBN, b.Title, b.Author, b.Publisher, b.Genre,
			b.TotalCopies, b.AvailableCopies, b.Reserved); err != nil {
			return fmt.Errorf("insert book %s: %w", b.ISBN, err)
		}
	}
	for _, m := range snap.Members {
		if _, err := tx.Exec(
			`INSERT INTO members(id,name,phone,preferences,registered_on,expires_on,max_books,admin,password_hash)
             VALUES(?,?,?,?,?,?,?,?,?)`,
			m.ID, m.Name, m.Phone, encodeList(m.Preferences),
			encodeDate(m.RegisteredOn), encodeDate(m.ExpiresOn),
			m.MaxBooks, m.Admin, m.PasswordHash); err != nil {
			return fmt.Errorf("insert member %s: %w", m.ID, err)
		}
	}
	for _, l := range snap.Loans {
		if _, err := tx.Exec(
			`INSERT INTO loans(id,member_id,isbn,borrowed_on,due_on,returned_on,renewals,fine,returned)
             VALUES(?,?,?,?,?,?,?,?,?)`,
			l.ID, l.MemberID, l.ISBN,
			encodeDate(l.BorrowedOn), encodeDate(l.DueOn), encodeDate(l.ReturnedOn),
			l.Renewals, l.Fine, l.Returned); err != nil {
			return fmt.Errorf("insert loan %s: %w", l.ID, err)
		}
	}
	for _, r := range snap.Reservations {
		if _, err := tx.Exec(
			`INSERT INTO reservations(id,member_id,isbn,reserved_on,active)
             VALUES(?,?,?,?,?)`,
			r.ID, r.MemberID, r.ISBN, encodeDate(r.ReservedOn), r.Active); err != nil {
			return fmt.Errorf("insert reservation %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

func (d *Database) loadBooks() ([]circulation.Book, error) {
	rows, err := d.db.Query(`SELECT isbn,title,author,publisher,genre,total_copies,available_copies,reserved
        FROM books ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []circulation.Book
	for rows.Next() {
		var b circulation.Book
		if err := rows.Scan(&b.ISBN, &b.Title, &b.Author, &b.Publisher, &b.Genre,
			&b.TotalCopies, &b.AvailableCopies, &b.Reserved); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (d *Database) loadMembers() ([]circulation.Member, error) {
	rows, err := d.db.Query(`SELECT id,name,phone,preferences,registered_on,expires_on,max_books,admin,password_hash
        FROM members ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []circulation.Member
	for rows.Next() {
		var m circulation.Member
		var prefs, registered, expires string
		if err := rows.Scan(&m.ID, &m.Name, &m.Phone, &prefs,
			&registered, &expires, &m.MaxBooks, &m.Admin, &m.PasswordHash); err != nil {
			return nil, err
		}
		m.Preferences = decodeList(prefs)
		if m.RegisteredOn, err = decodeDate(registered); err != nil {
			return nil, err
		}
		if m.ExpiresOn, err = decodeDate(expires); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (d *Database) loadLoans() ([]circulation.Loan, error) {
	rows, err := d.db.Query(`SELECT id,member_id,isbn,borrowed_on,due_on,returned_on,renewals,fine,returned
        FROM loans ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []circulation.Loan
	for rows.Next() {
		var l circulation.Loan
		var borrowed, due, returned string
		if err := rows.Scan(&l.ID, &l.MemberID, &l.ISBN,
			&borrowed, &due, &returned, &l.Renewals, &l.Fine, &l.Returned); err != nil {
			return nil, err
		}
		if l.BorrowedOn, err = decodeDate(borrowed); err != nil {
			return nil, err
		}
		if l.DueOn, err = decodeDate(due); err != nil {
			return nil, err
		}
		if l.ReturnedOn, err = decodeDate(returned); err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func (d *Database) loadReservations() ([]circulation.Reservation, error) {
	rows, err := d.db.Query(`SELECT id,member_id,isbn,reserved_on,active
        FROM reservations ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []circulation.Reservation
	for rows.Next() {
		var r circulation.Reservation
		var reserved string
		if err := rows.Scan(&r.ID, &r.MemberID, &r.ISBN, &reserved, &r.Active); err != nil {
			return nil, err
		}
		if r.ReservedOn, err = decodeDate(reserved); err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}
