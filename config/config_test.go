package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data/library.db", s.DatabasePath)
	assert.Equal(t, 14, s.Lending.BorrowDays)
	assert.Equal(t, 2.0, s.Lending.FinePerDay)
	assert.Equal(t, 14.0, s.Lending.MaxFine)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	content := []byte(`database_path: /tmp/other.db
lending:
  borrow_days: 21
  fine_per_day: 0.5
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/other.db", s.DatabasePath)
	assert.Equal(t, 21, s.Lending.BorrowDays)
	assert.Equal(t, 0.5, s.Lending.FinePerDay)
	// Untouched keys keep their defaults.
	assert.Equal(t, 7, s.Lending.RenewalDays)
	assert.Equal(t, "reports", s.ReportsDir)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lending: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LIBRARY_DB_PATH", "/var/lib/library.db")
	t.Setenv("LIBRARY_FINE_PER_DAY", "3.5")
	t.Setenv("LIBRARY_BACKUP_KEEP", "3")

	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/library.db", s.DatabasePath)
	assert.Equal(t, 3.5, s.Lending.FinePerDay)
	assert.Equal(t, 3, s.BackupKeep)
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("LIBRARY_BACKUP_KEEP", "lots")

	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 10, s.BackupKeep)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")

	s := Default()
	s.Lending.MaxFine = 99
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 99.0, loaded.Lending.MaxFine)
}

func TestPolicyConversion(t *testing.T) {
	s := Default()
	p := s.Policy()
	assert.Equal(t, 14, p.BorrowDays)
	assert.Equal(t, 7, p.RenewalDays)
	assert.Equal(t, 30, p.MaxBorrowDays)
	assert.Equal(t, 2.0, p.FinePerDay)
	assert.Equal(t, 14.0, p.MaxFine)
	assert.Equal(t, 2, p.DefaultMaxBooks)
	assert.Equal(t, 365, p.MembershipDays)
}
