// Package config loads the application settings from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"library-circulation/circulation"
)

// Settings holds everything the application reads at startup: file
// locations and the lending policy.
type Settings struct {
	DatabasePath string `yaml:"database_path"`
	ReportsDir   string `yaml:"reports_dir"`
	BackupsDir   string `yaml:"backups_dir"`
	BackupKeep   int    `yaml:"backup_keep"`

	Lending struct {
		BorrowDays      int     `yaml:"borrow_days"`
		RenewalDays     int     `yaml:"renewal_days"`
		MaxBorrowDays   int     `yaml:"max_borrow_days"`
		FinePerDay      float64 `yaml:"fine_per_day"`
		MaxFine         float64 `yaml:"max_fine"`
		DefaultMaxBooks int     `yaml:"default_max_books"`
		MembershipDays  int     `yaml:"membership_days"`
	} `yaml:"lending"`
}

// Default returns the settings used when no config file exists.
func Default() Settings {
	var s Settings
	s.DatabasePath = "data/library.db"
	s.ReportsDir = "reports"
	s.BackupsDir = "backups"
	s.BackupKeep = 10

	p := circulation.DefaultPolicy()
	s.Lending.BorrowDays = p.BorrowDays
	s.Lending.RenewalDays = p.RenewalDays
	s.Lending.MaxBorrowDays = p.MaxBorrowDays
	s.Lending.FinePerDay = p.FinePerDay
	s.Lending.MaxFine = p.MaxFine
	s.Lending.DefaultMaxBooks = p.DefaultMaxBooks
	s.Lending.MembershipDays = p.MembershipDays
	return s
}

// Load reads settings from path, layered over the defaults. A missing
// file is not an error. A .env file in the working directory and process
// environment variables override both.
func Load(path string) (Settings, error) {
	// Optional .env; ignore if absent.
	_ = godotenv.Load()

	s := Default()
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return s, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&s)
	return s, nil
}

// Save writes the settings to path as YAML.
func (s Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Policy converts the lending section into the circulation policy.
func (s Settings) Policy() circulation.Policy {
	return circulation.Policy{
		BorrowDays:      s.Lending.BorrowDays,
		RenewalDays:     s.Lending.RenewalDays,
		MaxBorrowDays:   s.Lending.MaxBorrowDays,
		FinePerDay:      s.Lending.FinePerDay,
		MaxFine:         s.Lending.MaxFine,
		DefaultMaxBooks: s.Lending.DefaultMaxBooks,
		MembershipDays:  s.Lending.MembershipDays,
	}
}

func applyEnv(s *Settings) {
	if v := os.Getenv("LIBRARY_DB_PATH"); v != "" {
		s.DatabasePath = v
	}
	if v := os.Getenv("LIBRARY_REPORTS_DIR"); v != "" {
		s.ReportsDir = v
	}
	if v := os.Getenv("LIBRARY_BACKUPS_DIR"); v != "" {
		s.BackupsDir = v
	}
	if v := os.Getenv("LIBRARY_BACKUP_KEEP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.BackupKeep = n
		}
	}
	if v := os.Getenv("LIBRARY_FINE_PER_DAY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.Lending.FinePerDay = f
		}
	}
	if v := os.Getenv("LIBRARY_MAX_FINE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.Lending.MaxFine = f
		}
	}
}
