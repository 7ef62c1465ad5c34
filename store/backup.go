package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"library-circulation/circulation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BackupInfo describes one backup archive on disk.
type BackupInfo struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Books       int       `json:"books"`
	Members     int       `json:"members"`
	Loans       int       `json:"loans"`
	Reservation int       `json:"reservations"`
}

// backupArchive is the on-disk layout of one backup: the manifest plus the
// full snapshot.
type backupArchive struct {
	Manifest BackupInfo           `json:"manifest"`
	State    circulation.Snapshot `json:"state"`
}

// BackupManager writes and restores point-in-time JSON archives of the
// library state. Each backup is one file, named after its ID.
type BackupManager struct {
	lib *circulation.Library
	dir string
}

// NewBackupManager returns a manager writing archives into dir. The
// directory is created on the first backup.
func NewBackupManager(lib *circulation.Library, dir string) *BackupManager {
	return &BackupManager{lib: lib, dir: dir}
}

// backupID builds "B<YYYYMMDD>_<HHMMSS>" from the wall clock.
func backupID(now time.Time) string {
	return "B" + now.Format("20060102_150405")
}

func (bm *BackupManager) archivePath(id string) string {
	return filepath.Join(bm.dir, id+".json")
}

// Create snapshots the library and writes a new archive, returning its ID.
func (bm *BackupManager) Create(description string) (string, error) {
	if err := os.MkdirAll(bm.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	now := time.Now()
	snap := bm.lib.Snapshot()
	archive := backupArchive{
		Manifest: BackupInfo{
			ID:          backupID(now),
			Description: description,
			CreatedAt:   now,
			Books:       len(snap.Books),
			Members:     len(snap.Members),
			Loans:       len(snap.Loans),
			Reservation: len(snap.Reservations),
		},
		State: snap,
	}

	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}
	path := bm.archivePath(archive.Manifest.ID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup %s: %w", path, err)
	}
	return archive.Manifest.ID, nil
}

// Restore replaces the library's state with the archived snapshot and
// flushes it through to the store.
func (bm *BackupManager) Restore(id string) error {
	archive, err := bm.readArchive(id)
	if err != nil {
		return err
	}
	return bm.lib.Restore(archive.State)
}

// Info returns the manifest of one archive.
func (bm *BackupManager) Info(id string) (BackupInfo, error) {
	archive, err := bm.readArchive(id)
	if err != nil {
		return BackupInfo{}, err
	}
	return archive.Manifest, nil
}

// List returns the manifests of every archive, newest first. Unreadable
// files are skipped.
func (bm *BackupManager) List() ([]BackupInfo, error) {
	entries, err := os.ReadDir(bm.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var infos []BackupInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "B") || !strings.HasSuffix(name, ".json") {
			continue
		}
		archive, err := bm.readArchive(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		infos = append(infos, archive.Manifest)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

// AutoClean deletes all but the keep newest archives and returns how many
// were removed.
func (bm *BackupManager) AutoClean(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	infos, err := bm.List()
	if err != nil {
		return 0, err
	}
	if len(infos) <= keep {
		return 0, nil
	}

	removed := 0
	for _, info := range infos[keep:] {
		if err := os.Remove(bm.archivePath(info.ID)); err != nil {
			return removed, fmt.Errorf("remove backup %s: %w", info.ID, err)
		}
		removed++
	}
	return removed, nil
}

func (bm *BackupManager) readArchive(id string) (backupArchive, error) {
	var archive backupArchive
	data, err := os.ReadFile(bm.archivePath(id))
	if err != nil {
		return archive, fmt.Errorf("read backup %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &archive); err != nil {
		return archive, fmt.Errorf("decode backup %s: %w", id, err)
	}
	return archive, nil
}
