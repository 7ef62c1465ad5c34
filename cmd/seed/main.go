// Command seed bootstraps a fresh database with default accounts and a
// handful of sample books. Running it against a non-empty database is a
// no-op for whichever side already has records.
package main

import (
	"fmt"
	"os"

	"library-circulation/circulation"
	"library-circulation/config"
	"library-circulation/store"
)

var sampleBooks = []circulation.Book{
	{ISBN: "9787020002207", Title: "Dream of the Red Chamber", Author: "Cao Xueqin", Publisher: "People's Literature", Genre: "Fiction", TotalCopies: 5, AvailableCopies: 5},
	{ISBN: "9787544253994", Title: "The Three-Body Problem", Author: "Liu Cixin", Publisher: "Chongqing Press", Genre: "Science", TotalCopies: 4, AvailableCopies: 4},
	{ISBN: "9787544771047", Title: "Sapiens", Author: "Yuval Noah Harari", Publisher: "CITIC Press", Genre: "History", TotalCopies: 3, AvailableCopies: 3},
	{ISBN: "9780307474278", Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Publisher: "Scribner", Genre: "Fiction", TotalCopies: 4, AvailableCopies: 4},
	{ISBN: "9780062315007", Title: "Steve Jobs", Author: "Walter Isaacson", Publisher: "Simon & Schuster", Genre: "Biography", TotalCopies: 2, AvailableCopies: 2},
}

func main() {
	cfg, err := config.Load("library.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	db, err := store.NewDatabase(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	lib, err := circulation.NewLibrary(db, circulation.WithPolicy(cfg.Policy()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading library: %v\n", err)
		os.Exit(1)
	}

	err = lib.Batch(func() error {
		if err := seedMembers(lib); err != nil {
			return err
		}
		return seedBooks(lib)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding database: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Seeding complete.")
	fmt.Println("Default admin: System Admin / admin123")
	fmt.Println("Default member: Default User / user123")
	fmt.Println("Run 'library-circulation' and use 'list members' to look up the generated IDs.")
}

func seedMembers(lib *circulation.Library) error {
	if len(lib.Members()) > 0 {
		fmt.Println("Members already present, skipping default accounts.")
		return nil
	}

	admin, err := lib.RegisterMember("System Admin", "13000000000",
		[]string{"Science", "History"}, true, "admin123")
	if err != nil {
		return fmt.Errorf("register admin: %w", err)
	}
	fmt.Printf("Registered admin %s (%s)\n", admin.Name, admin.ID)

	user, err := lib.RegisterMember("Default User", "13100000000",
		[]string{"Fiction", "Biography"}, false, "user123")
	if err != nil {
		return fmt.Errorf("register member: %w", err)
	}
	fmt.Printf("Registered member %s (%s)\n", user.Name, user.ID)
	return nil
}

func seedBooks(lib *circulation.Library) error {
	if len(lib.Books()) > 0 {
		fmt.Println("Books already present, skipping sample catalog.")
		return nil
	}

	for _, book := range sampleBooks {
		if err := lib.AddBook(book); err != nil {
			return fmt.Errorf("add book %s: %w", book.ISBN, err)
		}
		fmt.Printf("Added '%s' by %s\n", book.Title, book.Author)
	}
	return nil
}
