package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Join canonicalizes iv against a working set: every member of bag
// that overlaps iv, or follows it within tol, is absorbed. Afterwards
// iv spans the smallest interval covering itself and everything it
// absorbed, and the absorbed members are removed from the bag. Reports
// whether anything changed.
//
// The pass classifies each member once, mirroring the in-memory mode
// of the reservation engine. Exact touches (gap of zero under tol=0)
// are not absorbed.
func Join(ctx context.Context, bag Bag, iv *Interval, tol time.Duration) (bool, error) {
	others, err := bag.Similar(ctx, iv, iv.Start.Add(-tol), iv.End.Add(tol))
	if err != nil {
		return false, err
	}

	changed := false
	for _, o := range others {
		switch {
		case !o.Start.Before(iv.Start) && !o.End.After(iv.End):
			// Other sits inside iv (bounds inclusive): absorbed whole.

		case o.Start.Before(iv.Start) && o.End.After(iv.End):
			// Other strictly contains iv: adopt its bounds.
			iv.Start = o.Start
			iv.End = o.End

		case (o.Start.Before(iv.Start) && iv.Start.Before(o.End)) ||
			(iv.Start.After(o.End) && iv.Start.Sub(o.End) < tol):
			// Other overlaps or touches iv's left edge.
			iv.Start = o.Start

		case (o.Start.Before(iv.End) && iv.End.Before(o.End)) ||
			(o.Start.After(iv.End) && o.Start.Sub(iv.End) < tol):
			// Other overlaps or touches iv's right edge.
			iv.End = o.End

		default:
			continue
		}
		if err := bag.Remove(ctx, o); err != nil {
			return changed, err
		}
		changed = true
	}
	return changed, nil
}

// JoinStored is the persistent-mode join. It widens iv to the smallest
// span covering itself and every stored similar interval within tol of
// its bounds, then removes those rows. A stored similar set is always
// canonical (no overlaps, no gaps under tol between members), so one
// windowed fetch reaches every absorbable row and the result stays
// canonical. Reports whether any row was absorbed.
func JoinStored(ctx context.Context, bag Bag, iv *Interval, tol time.Duration) (bool, error) {
	others, err := bag.Similar(ctx, iv, iv.Start.Add(-tol), iv.End.Add(tol))
	if err != nil {
		return false, err
	}
	if len(others) == 0 {
		return false, nil
	}
	for _, o := range others {
		if o.Start.Before(iv.Start) {
			iv.Start = o.Start
		}
		if o.End.After(iv.End) {
			iv.End = o.End
		}
		if err := bag.Remove(ctx, o); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Subtract removes iv's span from every similar interval in the bag.
// Members strictly containing iv are split in two; the right piece is a
// fresh interval inheriting the member's full identity, organization
// included. Members overlapping an edge are shortened, members covered
// by iv are removed. Reports whether anything changed.
func Subtract(ctx context.Context, bag Bag, iv *Interval) (bool, error) {
	others, err := bag.Similar(ctx, iv, iv.Start, iv.End)
	if err != nil {
		return false, err
	}

	changed := false
	for _, o := range others {
		switch {
		case o.Start.Before(iv.Start) && o.End.After(iv.End):
			// Strict containment: split around iv.
			oldEnd := o.End
			o.End = iv.Start
			if err := bag.Resize(ctx, o); err != nil {
				return changed, err
			}
			piece := &Interval{
				ID:           uuid.New(),
				Resource:     o.Resource,
				Kind:         o.Kind,
				Start:        iv.End,
				End:          oldEnd,
				Organization: o.Organization,
				Manager:      o.Manager,
				Comment:      o.Comment,
			}
			if err := bag.Add(ctx, piece); err != nil {
				return changed, err
			}
			changed = true

		case o.Start.Before(iv.Start) && iv.Start.Before(o.End):
			// Overlaps iv's left edge: trim the tail.
			o.End = iv.Start
			if err := bag.Resize(ctx, o); err != nil {
				return changed, err
			}
			changed = true

		case o.Start.Before(iv.End) && iv.End.Before(o.End):
			// Overlaps iv's right edge: trim the head.
			o.Start = iv.End
			if err := bag.Resize(ctx, o); err != nil {
				return changed, err
			}
			changed = true

		case !o.Start.Before(iv.Start) && !o.End.After(iv.End):
			// Covered entirely: gone.
			if err := bag.Remove(ctx, o); err != nil {
				return changed, err
			}
			changed = true
		}
	}
	return changed, nil
}

// Continuous reports whether the union of ivs covers [start, end]
// without gaps. Members are folded into an accumulator with zero join
// tolerance; coverage holds iff exactly one accumulated interval
// remains and it spans the whole range. Exact adjacency does not count
// as coverage, mirroring the open endpoints of the at-instant query.
func Continuous(ivs []*Interval, start, end time.Time) bool {
	acc := NewWorkingSet()
	for _, iv := range ivs {
		c := iv.Clone()
		// The working-set bag never fails.
		_, _ = Join(context.Background(), acc, c, 0)
		acc.Append(c)
	}
	if acc.Len() != 1 {
		return false
	}
	got := acc.Items()[0]
	return !got.Start.After(start) && !got.End.Before(end)
}
