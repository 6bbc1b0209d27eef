package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IntervalRepository is the persistence port for intervals. Range
// queries share one boundary rule: an interval matches [from, to] when
// it touches, is contained in or contains the range, except exact
// boundary kisses (start == to or end == from).
type IntervalRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Interval, error)
	Insert(ctx context.Context, iv *Interval) error
	InsertBatch(ctx context.Context, ivs []*Interval) error
	Update(ctx context.Context, iv *Interval) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListForResourceBetween returns a resource's intervals matching
	// the range, every kind included.
	ListForResourceBetween(ctx context.Context, resource uuid.UUID, from, to time.Time) (Intervals, error)
	// ListForResourcesBetween is ListForResourceBetween over a set of
	// resources, used by the organization timeline view.
	ListForResourcesBetween(ctx context.Context, resources []uuid.UUID, from, to time.Time) (Intervals, error)
	// ListCovering returns the pair's intervals strictly covering the
	// instant (open endpoints).
	ListCovering(ctx context.Context, resource, organization uuid.UUID, at time.Time) (Intervals, error)
	// SimilarBetween returns intervals sharing iv's identity tuple
	// matching the range, excluding iv itself. Nil organization or
	// manager matches only nil.
	SimilarBetween(ctx context.Context, iv *Interval, from, to time.Time) ([]*Interval, error)
	// DeleteStartingFrom removes the pair's intervals starting at or
	// after the given instant.
	DeleteStartingFrom(ctx context.Context, resource, organization uuid.UUID, from time.Time) error
}

// OrganizationMember is the read model of one membership row in an
// organization detail view.
type OrganizationMember struct {
	ResourceExternalID int64
	HasSchedule        bool
}

// MembershipRepository is the persistence port for memberships and
// their schedule fragments.
type MembershipRepository interface {
	GetOrCreate(ctx context.Context, resource, organization uuid.UUID) (*Membership, bool, error)
	Find(ctx context.Context, resource, organization uuid.UUID) (*Membership, error)
	ListForResource(ctx context.Context, resource uuid.UUID) ([]*Membership, error)
	// ListScheduled returns memberships that carry at least one
	// schedule fragment, for the roll-forward job.
	ListScheduled(ctx context.Context) ([]*Membership, error)
	MembersOfOrganization(ctx context.Context, organization uuid.UUID) ([]OrganizationMember, error)
	// ResourceRefs maps the organization's member resources from
	// internal to external id, for the organization timeline view.
	ResourceRefs(ctx context.Context, organization uuid.UUID) (map[uuid.UUID]int64, error)
	SetWatermark(ctx context.Context, id uuid.UUID, watermark *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error

	Fragments(ctx context.Context, membership uuid.UUID) ([]*ScheduleFragment, error)
	ReplaceFragments(ctx context.Context, membership uuid.UUID, fragments []*ScheduleFragment) error
}

// repositoryBag adapts an IntervalRepository to the Bag interface so
// the algebra can run directly against stored rows inside the caller's
// transaction.
type repositoryBag struct {
	repo IntervalRepository
}

// NewRepositoryBag returns the persistent-mode Bag.
func NewRepositoryBag(repo IntervalRepository) Bag {
	return &repositoryBag{repo: repo}
}

func (b *repositoryBag) Similar(ctx context.Context, iv *Interval, from, to time.Time) ([]*Interval, error) {
	return b.repo.SimilarBetween(ctx, iv, from, to)
}

func (b *repositoryBag) Resize(ctx context.Context, iv *Interval) error {
	return b.repo.Update(ctx, iv)
}

func (b *repositoryBag) Add(ctx context.Context, iv *Interval) error {
	return b.repo.Insert(ctx, iv)
}

func (b *repositoryBag) Remove(ctx context.Context, iv *Interval) error {
	return b.repo.Delete(ctx, iv.ID)
}
