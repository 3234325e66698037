package models

import (
	"cmp"
	"strings"
	"time"
)

// Member is one roster entry. Values are never mutated after construction.
type Member struct {
	Name       string    `json:"name"` // "Last, First"
	ID         int       `json:"id"`
	JoinDate   time.Time `json:"join_date"`
	ExpireDate time.Time `json:"expire_date"`
}

// NewMember builds a Member with both timestamps normalized to UTC and
// truncated to the minute, the precision the record files keep.
func NewMember(name string, id int, joinDate, expireDate time.Time) Member {
	return Member{
		Name:       name,
		ID:         id,
		JoinDate:   joinDate.UTC().Truncate(time.Minute),
		ExpireDate: expireDate.UTC().Truncate(time.Minute),
	}
}

// FirstName returns the part of Name after the first comma.
func (m Member) FirstName() string {
	_, first, ok := strings.Cut(m.Name, ",")
	if !ok {
		return ""
	}
	return strings.TrimSpace(first)
}

// LastName returns the part of Name before the first comma, or the whole
// name when there is no comma.
func (m Member) LastName() string {
	last, _, _ := strings.Cut(m.Name, ",")
	return strings.TrimSpace(last)
}

// Expired reports whether the membership has lapsed at now.
func (m Member) Expired(now time.Time) bool {
	return !m.ExpireDate.IsZero() && !now.Before(m.ExpireDate)
}

// Equal compares every field, using time.Time.Equal for the timestamps.
func (m Member) Equal(o Member) bool {
	return m.Name == o.Name &&
		m.ID == o.ID &&
		m.JoinDate.Equal(o.JoinDate) &&
		m.ExpireDate.Equal(o.ExpireDate)
}

// Compare orders members by ID. It is suitable for slices.SortFunc.
func Compare(a, b Member) int {
	return cmp.Compare(a.ID, b.ID)
}
