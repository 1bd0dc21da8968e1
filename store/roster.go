package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"cwcinspect/models"
	"cwcinspect/workflow"
)

var (
	// ErrOfficerNotFound is returned when no officer matches a lookup.
	ErrOfficerNotFound = errors.New("officer not found")
	// ErrDuplicateOfficer is returned when a name is already on the roster.
	ErrDuplicateOfficer = errors.New("officer name already exists")
)

// officerNamespace derives stable ids for officers the remote store only
// knows by name.
var officerNamespace = uuid.MustParse("6f1d3c1e-2f0a-4f5c-9a57-4b8e2b1c7d10")

// OfficerIDForName returns the deterministic surrogate id for name.
func OfficerIDForName(name string) string {
	return uuid.NewSHA1(officerNamespace, []byte(strings.TrimSpace(name))).String()
}

// Roster is the set of officers. Officers are never removed.
type Roster struct {
	mu       sync.RWMutex
	officers []models.Officer
}

// NewRoster returns a roster seeded with officers. Officers without an id
// get the id derived from their name so sessions survive reloads.
func NewRoster(officers []models.Officer) *Roster {
	r := &Roster{}
	r.Replace(officers)
	return r
}

// Replace swaps the whole roster.
func (r *Roster) Replace(officers []models.Officer) {
	seeded := make([]models.Officer, len(officers))
	for i, o := range officers {
		if o.ID == "" {
			o.ID = OfficerIDForName(o.Name)
		}
		seeded[i] = o
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.officers = seeded
}

// All returns a copy of the roster in load order.
func (r *Roster) All() []models.Officer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Officer, len(r.officers))
	copy(out, r.officers)
	return out
}

// Sorted returns the officers whose name contains search (case-insensitive),
// highest rank first.
func (r *Roster) Sorted(search string) []models.Officer {
	needle := strings.ToLower(search)
	var out []models.Officer
	for _, o := range r.All() {
		if strings.Contains(strings.ToLower(o.Name), needle) {
			out = append(out, o)
		}
	}
	workflow.SortByRank(out)
	return out
}

// ByName returns the first officer named name.
func (r *Roster) ByName(name string) (models.Officer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.officers {
		if o.Name == name {
			return o, nil
		}
	}
	return models.Officer{}, fmt.Errorf("officer %q: %w", name, ErrOfficerNotFound)
}

// ByID returns the officer with the surrogate id.
func (r *Roster) ByID(id string) (models.Officer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.officers {
		if o.ID == id {
			return o, nil
		}
	}
	return models.Officer{}, fmt.Errorf("officer id %s: %w", id, ErrOfficerNotFound)
}

// Add appends a new officer with a fresh random id.
func (r *Roster) Add(officer models.Officer) (models.Officer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(officer.Name) >= 0 {
		return models.Officer{}, fmt.Errorf("officer %q: %w", officer.Name, ErrDuplicateOfficer)
	}
	officer.ID = uuid.NewString()
	r.officers = append(r.officers, officer)
	return officer, nil
}

// Update replaces the officer currently named oldName, keeping its id.
func (r *Roster) Update(oldName string, officer models.Officer) (models.Officer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(oldName)
	if i < 0 {
		return models.Officer{}, fmt.Errorf("officer %q: %w", oldName, ErrOfficerNotFound)
	}
	if officer.Name != oldName && r.indexOf(officer.Name) >= 0 {
		return models.Officer{}, fmt.Errorf("officer %q: %w", officer.Name, ErrDuplicateOfficer)
	}
	officer.ID = r.officers[i].ID
	r.officers[i] = officer
	return officer, nil
}

func (r *Roster) indexOf(name string) int {
	for i, o := range r.officers {
		if o.Name == name {
			return i
		}
	}
	return -1
}
