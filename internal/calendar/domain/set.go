package domain

import (
	"time"

	"github.com/google/uuid"
)

// Intervals is a fetched interval collection with the filters the
// validation rules compose. Filters return views over the same
// underlying intervals; nothing is copied or mutated.
type Intervals []*Interval

// OfKind keeps intervals of one kind.
func (s Intervals) OfKind(k Kind) Intervals {
	var out Intervals
	for _, iv := range s {
		if iv.Kind == k {
			out = append(out, iv)
		}
	}
	return out
}

// ForOrganization keeps intervals owned by the given organization.
func (s Intervals) ForOrganization(org *uuid.UUID) Intervals {
	var out Intervals
	for _, iv := range s {
		if uuidPtrEqual(iv.Organization, org) {
			out = append(out, iv)
		}
	}
	return out
}

// ExcludingOrganization keeps intervals not owned by the organization.
func (s Intervals) ExcludingOrganization(org *uuid.UUID) Intervals {
	var out Intervals
	for _, iv := range s {
		if !uuidPtrEqual(iv.Organization, org) {
			out = append(out, iv)
		}
	}
	return out
}

// ForManager keeps intervals reserved by the given manager.
func (s Intervals) ForManager(m *uuid.UUID) Intervals {
	var out Intervals
	for _, iv := range s {
		if uuidPtrEqual(iv.Manager, m) {
			out = append(out, iv)
		}
	}
	return out
}

// ExcludingManager keeps intervals not reserved by the manager.
func (s Intervals) ExcludingManager(m *uuid.UUID) Intervals {
	var out Intervals
	for _, iv := range s {
		if !uuidPtrEqual(iv.Manager, m) {
			out = append(out, iv)
		}
	}
	return out
}

// Excluding drops the interval with the given id, so an updated
// interval is never validated against itself.
func (s Intervals) Excluding(id uuid.UUID) Intervals {
	var out Intervals
	for _, iv := range s {
		if iv.ID != id {
			out = append(out, iv)
		}
	}
	return out
}

// Overlapping keeps intervals strictly overlapping [start, end).
func (s Intervals) Overlapping(start, end time.Time) Intervals {
	var out Intervals
	for _, iv := range s {
		if iv.Overlaps(start, end) {
			out = append(out, iv)
		}
	}
	return out
}

// IsContinuous reports gap-free coverage of [start, end] by the set.
func (s Intervals) IsContinuous(start, end time.Time) bool {
	return Continuous(s, start, end)
}

// Managers returns the distinct managers appearing on ManagerReserved
// and OrgReserved intervals of the set, in first-seen order.
func (s Intervals) Managers() []uuid.UUID {
	var out []uuid.UUID
	seen := make(map[uuid.UUID]struct{})
	for _, iv := range s {
		if iv.Manager == nil {
			continue
		}
		if iv.Kind != KindManagerReserved && iv.Kind != KindOrgReserved {
			continue
		}
		if _, ok := seen[*iv.Manager]; ok {
			continue
		}
		seen[*iv.Manager] = struct{}{}
		out = append(out, *iv.Manager)
	}
	return out
}
