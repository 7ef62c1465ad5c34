package circulation

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Members is the borrower registry. It answers the two questions the
// circulation components ask about a borrower — is the membership expired,
// and how many books may they hold — and owns password credentials.
type Members struct {
	members []*Member
	byID    map[string]*Member
	clock   Clock
	policy  Policy
}

// NewMembers returns an empty registry.
func NewMembers(clock Clock, policy Policy) *Members {
	return &Members{byID: make(map[string]*Member), clock: clock, policy: policy}
}

// Register creates a new member with a generated quarter-scoped ID
// ("M" prefix, "A" for admins), a one-year membership and a hashed
// password. Returns a copy of the stored record.
func (ms *Members) Register(name, phone string, preferences []string, admin bool, password string) (Member, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return Member{}, err
	}

	prefix := memberIDPrefix
	maxBooks := ms.policy.DefaultMaxBooks
	if admin {
		prefix = adminIDPrefix
		maxBooks = adminMaxBooks
	}

	today := ms.clock.Today()
	rec := Member{
		ID:           NextID(prefix, memberIDWidth, today, ms.idsWithPrefix(prefix)),
		Name:         name,
		Phone:        phone,
		Preferences:  clampPreferences(preferences),
		RegisteredOn: today,
		ExpiresOn:    today.AddDate(0, 0, ms.policy.MembershipDays),
		MaxBooks:     maxBooks,
		Admin:        admin,
		PasswordHash: hash,
	}
	if err := ms.Add(rec); err != nil {
		return Member{}, err
	}
	return rec, nil
}

// Add inserts a fully-formed member record (load, restore, seeding).
func (ms *Members) Add(m Member) error {
	if _, exists := ms.byID[m.ID]; exists {
		return ErrDuplicateID
	}
	rec := m
	ms.members = append(ms.members, &rec)
	ms.byID[rec.ID] = &rec
	return nil
}

// Update replaces the stored record for the member's ID.
func (ms *Members) Update(m Member) error {
	rec, ok := ms.byID[m.ID]
	if !ok {
		return ErrNotFound
	}
	*rec = m
	return nil
}

// Remove deletes a member from the registry.
func (ms *Members) Remove(id string) error {
	if _, ok := ms.byID[id]; !ok {
		return ErrNotFound
	}
	delete(ms.byID, id)
	for i, rec := range ms.members {
		if rec.ID == id {
			ms.members = append(ms.members[:i], ms.members[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a copy of the member record.
func (ms *Members) Get(id string) (Member, error) {
	rec, ok := ms.byID[id]
	if !ok {
		return Member{}, ErrNotFound
	}
	return *rec, nil
}

// All returns copies of every member in registration order.
func (ms *Members) All() []Member {
	out := make([]Member, 0, len(ms.members))
	for _, rec := range ms.members {
		out = append(out, *rec)
	}
	return out
}

// IsExpired reports whether the member's membership has lapsed.
func (ms *Members) IsExpired(id string) (bool, error) {
	rec, ok := ms.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	return rec.ExpiredAt(ms.clock.Today()), nil
}

// MaxBooksAllowed returns the member's active-loan allowance.
func (ms *Members) MaxBooksAllowed(id string) (int, error) {
	rec, ok := ms.byID[id]
	if !ok {
		return 0, ErrNotFound
	}
	return rec.MaxBooks, nil
}

// ------------------ Authentication ------------------

// Authenticate verifies a member's password against the stored hash.
func (ms *Members) Authenticate(id, password string) error {
	rec, ok := ms.byID[id]
	if !ok {
		return ErrNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return ErrAuthentication
	}
	return nil
}

// SetPassword replaces the member's credential with a fresh hash.
func (ms *Members) SetPassword(id, password string) error {
	rec, ok := ms.byID[id]
	if !ok {
		return ErrNotFound
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	rec.PasswordHash = hash
	return nil
}

// HashPassword produces a bcrypt hash suitable for Member.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ------------------ Stats & internals ------------------

// Count returns the number of registered members.
func (ms *Members) Count() int { return len(ms.members) }

// AdminCount returns the number of administrator accounts.
func (ms *Members) AdminCount() int {
	count := 0
	for _, rec := range ms.members {
		if rec.Admin {
			count++
		}
	}
	return count
}

func (ms *Members) idsWithPrefix(prefix string) []string {
	var ids []string
	for _, rec := range ms.members {
		if len(rec.ID) > 0 && rec.ID[:1] == prefix {
			ids = append(ids, rec.ID)
		}
	}
	return ids
}

// reset replaces the whole registry. Used at load/restore boundaries.
func (ms *Members) reset(members []Member) {
	ms.members = ms.members[:0]
	ms.byID = make(map[string]*Member, len(members))
	for _, m := range members {
		rec := m
		ms.members = append(ms.members, &rec)
		ms.byID[rec.ID] = &rec
	}
}

// Admin accounts get a higher allowance than the configurable default.
const adminMaxBooks = 10

// clampPreferences keeps at most five genre preferences.
func clampPreferences(prefs []string) []string {
	if len(prefs) > 5 {
		prefs = prefs[:5]
	}
	out := make([]string, len(prefs))
	copy(out, prefs)
	return out
}
