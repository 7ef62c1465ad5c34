package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"library-circulation/circulation"
)

func tempLibrary(t *testing.T) *circulation.Library {
	t.Helper()
	db := tempDB(t)
	if err := db.SaveAll(testSnapshot()); err != nil {
		t.Fatalf("seed db: %v", err)
	}
	lib, err := circulation.NewLibrary(db, circulation.WithClock(circulation.FixedClock(circulation.Date(2026, 8, 30))))
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	return lib
}

// writeArchive drops a handcrafted backup file into the manager's
// directory, bypassing the second-granularity ID clock.
func writeArchive(t *testing.T, dir, id string, created time.Time) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	archive := backupArchive{
		Manifest: BackupInfo{ID: id, CreatedAt: created},
	}
	data, err := json.Marshal(archive)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, id+".json"), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestBackupCreateAndInfo(t *testing.T) {
	lib := tempLibrary(t)
	dir := filepath.Join(t.TempDir(), "backups")
	bm := NewBackupManager(lib, dir)

	id, err := bm.Create("before upgrade")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(id) != len("B20260830_120000") || id[0] != 'B' {
		t.Fatalf("unexpected backup ID %q", id)
	}

	info, err := bm.Info(id)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Description != "before upgrade" {
		t.Fatalf("description: got %q", info.Description)
	}
	if info.Books != 2 || info.Members != 2 || info.Loans != 2 || info.Reservation != 1 {
		t.Fatalf("manifest counts wrong: %+v", info)
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	lib := tempLibrary(t)
	dir := filepath.Join(t.TempDir(), "backups")
	bm := NewBackupManager(lib, dir)

	id, err := bm.Create("checkpoint")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Mutate the library after the checkpoint.
	if err := lib.AddBook(circulation.Book{ISBN: "new", Title: "New", Author: "X", TotalCopies: 1, AvailableCopies: 1}); err != nil {
		t.Fatalf("add book: %v", err)
	}
	if len(lib.Books()) != 3 {
		t.Fatalf("want 3 books before restore, got %d", len(lib.Books()))
	}

	if err := bm.Restore(id); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(lib.Books()) != 2 {
		t.Fatalf("want 2 books after restore, got %d", len(lib.Books()))
	}
	if _, err := lib.Book("new"); err == nil {
		t.Fatal("post-checkpoint book survived the restore")
	}

	// The reservation queue was rebuilt from the restored records.
	if got := lib.QueueFor("9787020002207"); len(got) != 1 {
		t.Fatalf("queue not rebuilt: %v", got)
	}
}

func TestBackupRestoreUnknownID(t *testing.T) {
	lib := tempLibrary(t)
	bm := NewBackupManager(lib, t.TempDir())
	if err := bm.Restore("B19700101_000000"); err == nil {
		t.Fatal("expected error for missing archive")
	}
}

func TestBackupListNewestFirst(t *testing.T) {
	lib := tempLibrary(t)
	dir := filepath.Join(t.TempDir(), "backups")
	bm := NewBackupManager(lib, dir)

	writeArchive(t, dir, "B20260801_100000", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	writeArchive(t, dir, "B20260803_100000", time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC))
	writeArchive(t, dir, "B20260802_100000", time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC))

	infos, err := bm.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("want 3 archives, got %d", len(infos))
	}
	if infos[0].ID != "B20260803_100000" || infos[2].ID != "B20260801_100000" {
		t.Fatalf("wrong order: %s, %s, %s", infos[0].ID, infos[1].ID, infos[2].ID)
	}
}

func TestBackupListEmptyDir(t *testing.T) {
	lib := tempLibrary(t)
	bm := NewBackupManager(lib, filepath.Join(t.TempDir(), "missing"))
	infos, err := bm.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("want no archives, got %d", len(infos))
	}
}

func TestBackupAutoClean(t *testing.T) {
	lib := tempLibrary(t)
	dir := filepath.Join(t.TempDir(), "backups")
	bm := NewBackupManager(lib, dir)

	for i := 1; i <= 5; i++ {
		id := time.Date(2026, 8, i, 10, 0, 0, 0, time.UTC)
		writeArchive(t, dir, backupID(id), id)
	}

	removed, err := bm.AutoClean(2)
	if err != nil {
		t.Fatalf("autoclean: %v", err)
	}
	if removed != 3 {
		t.Fatalf("want 3 removed, got %d", removed)
	}

	infos, err := bm.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("want 2 archives left, got %d", len(infos))
	}
	if infos[0].ID != "B20260805_100000" || infos[1].ID != "B20260804_100000" {
		t.Fatalf("kept the wrong archives: %s, %s", infos[0].ID, infos[1].ID)
	}

	// Cleaning again is a no-op.
	removed, err = bm.AutoClean(2)
	if err != nil {
		t.Fatalf("autoclean: %v", err)
	}
	if removed != 0 {
		t.Fatalf("want 0 removed, got %d", removed)
	}
}
