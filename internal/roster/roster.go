// Package roster holds the in-memory working set of members.
package roster

import (
	"slices"
	"sync"

	"github.com/org/rostervault/pkg/models"
)

// Roster is an in-memory collection of members. Duplicate IDs are accepted
// as-is; DuplicateIDs reports them so callers can decide what to do.
// A Roster is safe for concurrent use.
type Roster struct {
	mu      sync.RWMutex
	members []models.Member
}

// New returns an empty Roster.
func New() *Roster {
	return &Roster{}
}

// Add appends m.
func (r *Roster) Add(m models.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = append(r.members, m)
}

// ContainsID reports whether any member has the given id. It is a linear
// scan, O(n) in the roster size.
func (r *Roster) ContainsID(id int) bool {
	_, ok := r.Get(id)
	return ok
}

// Get returns the first member added with the given id.
func (r *Roster) Get(id int) (models.Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if m.ID == id {
			return m, true
		}
	}
	return models.Member{}, false
}

// All returns a copy of the members in insertion order.
func (r *Roster) All() []models.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.members)
}

// Sorted returns a copy of the members ordered by id. Members sharing an id
// keep their insertion order.
func (r *Roster) Sorted() []models.Member {
	out := r.All()
	slices.SortStableFunc(out, models.Compare)
	return out
}

// Len returns the number of members, duplicates included.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// DuplicateIDs returns, in ascending order, every id held by more than one
// member.
func (r *Roster) DuplicateIDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[int]int, len(r.members))
	var dups []int
	for _, m := range r.members {
		seen[m.ID]++
		if seen[m.ID] == 2 {
			dups = append(dups, m.ID)
		}
	}
	slices.Sort(dups)
	return dups
}

// Remove drops every member with the given id and returns how many were
// removed.
func (r *Roster) Remove(id int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.members)
	r.members = slices.DeleteFunc(r.members, func(m models.Member) bool { return m.ID == id })
	return before - len(r.members)
}

// Clear removes every member.
func (r *Roster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = nil
}
