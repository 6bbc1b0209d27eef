package domain

import (
	"time"

	"github.com/google/uuid"
)

// Interval is one reserved span on a resource's timeline. Identity for
// the algebra is the tuple (resource, kind, organization, manager);
// only identity-matching intervals are ever joined or subtracted
// against each other.
type Interval struct {
	ID           uuid.UUID
	Resource     uuid.UUID
	Kind         Kind
	Start        time.Time
	End          time.Time
	Organization *uuid.UUID
	Manager      *uuid.UUID
	Comment      *string
	CreatedAt    time.Time
}

// NewInterval builds an unsaved interval. Bounds are not validated
// here; the save pipeline owns validation so callers get the exact
// field errors the API promises.
func NewInterval(resource uuid.UUID, kind Kind, start, end time.Time) *Interval {
	return &Interval{
		ID:       uuid.New(),
		Resource: resource,
		Kind:     kind,
		Start:    start.UTC(),
		End:      end.UTC(),
	}
}

// WithOrganization sets the owning organization.
func (iv *Interval) WithOrganization(id uuid.UUID) *Interval {
	iv.Organization = &id
	return iv
}

// WithManager sets the reserving manager.
func (iv *Interval) WithManager(id uuid.UUID) *Interval {
	iv.Manager = &id
	return iv
}

// WithComment sets the free-form comment.
func (iv *Interval) WithComment(c string) *Interval {
	iv.Comment = &c
	return iv
}

// Span returns the interval length.
func (iv *Interval) Span() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Clone returns a deep copy. The algebra mutates bounds in place, so
// callers that need the original keep a clone.
func (iv *Interval) Clone() *Interval {
	c := *iv
	if iv.Organization != nil {
		org := *iv.Organization
		c.Organization = &org
	}
	if iv.Manager != nil {
		m := *iv.Manager
		c.Manager = &m
	}
	if iv.Comment != nil {
		s := *iv.Comment
		c.Comment = &s
	}
	return &c
}

// SameIdentity reports whether two intervals share the algebra identity
// tuple. Nil matches nil on the nullable references.
func (iv *Interval) SameIdentity(o *Interval) bool {
	return iv.Resource == o.Resource &&
		iv.Kind == o.Kind &&
		uuidPtrEqual(iv.Organization, o.Organization) &&
		uuidPtrEqual(iv.Manager, o.Manager)
}

// Overlaps reports strict overlap with the [start, end) span.
func (iv *Interval) Overlaps(start, end time.Time) bool {
	return iv.Start.Before(end) && iv.End.After(start)
}

// CoversInstant reports whether the instant falls strictly inside the
// interval; endpoints do not count.
func (iv *Interval) CoversInstant(t time.Time) bool {
	return iv.Start.Before(t) && iv.End.After(t)
}

// ObjectRef returns the entity an interval "belongs to" for
// presentation: the organization for OrgReserved, the manager for
// ManagerReserved, nil otherwise.
func (iv *Interval) ObjectRef() *uuid.UUID {
	switch iv.Kind {
	case KindOrgReserved:
		return iv.Organization
	case KindManagerReserved:
		return iv.Manager
	}
	return nil
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
