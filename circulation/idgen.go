package circulation

import (
	"fmt"
	"strconv"
	"time"
)

// Identifier suffix widths per record type.
const (
	loanIDWidth        = 5
	reservationIDWidth = 5
	memberIDWidth      = 3
)

// Type prefixes for generated identifiers.
const (
	loanIDPrefix        = "T"
	reservationIDPrefix = "R"
	memberIDPrefix      = "M"
	adminIDPrefix       = "A"
)

// NextID derives a new sequential identifier scoped to (type prefix, year,
// calendar quarter), e.g. T2026300042 for the 42nd loan of 2026 Q3. It
// scans the existing identifiers of that type, takes the highest numeric
// suffix among those sharing the scoped prefix and emits max+1, zero-padded
// to width. A fresh quarter restarts the sequence at 1; uniqueness rests on
// the full year+quarter prefix, not the suffix value alone. Malformed
// identifiers (too short, non-digit suffix) are skipped, never an error.
func NextID(prefix string, width int, today time.Time, existing []string) string {
	scoped := scopedPrefix(prefix, today)
	maxSeq := 0
	for _, id := range existing {
		if len(id) < len(scoped)+width || id[:len(scoped)] != scoped {
			continue
		}
		suffix := id[len(scoped):]
		if !allDigits(suffix) {
			continue
		}
		seq, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return fmt.Sprintf("%s%0*d", scoped, width, maxSeq+1)
}

// scopedPrefix builds the {Prefix}{YYYY}{Q} scope for a date.
// Quarters are the four calendar quarters: Q = (month-1)/3 + 1.
func scopedPrefix(prefix string, today time.Time) string {
	quarter := (int(today.Month())-1)/3 + 1
	return fmt.Sprintf("%s%04d%d", prefix, today.Year(), quarter)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
