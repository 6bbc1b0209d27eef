package commands

import (
	"context"
	"sort"
	"time"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
)

// materializer projects a membership's weekly template into stored
// reserved-for-organization intervals. All methods expect to run inside
// the caller's transaction with the resource row locked.
type materializer struct {
	intervals   caldomain.IntervalRepository
	memberships caldomain.MembershipRepository
	now         func() time.Time
}

// apply materializes a template over [start, end]. A nil fragments
// slice means "use the persisted template"; a non-nil empty slice wipes
// the window without creating anything, which combined with
// saveAsDefault clears the persisted template too. Reports whether the
// window was processed.
func (mz *materializer) apply(ctx context.Context, m *caldomain.Membership, start, end time.Time, fragments []*caldomain.ScheduleFragment, saveAsDefault bool) (bool, error) {
	stored, err := mz.memberships.Fragments(ctx, m.ID)
	if err != nil {
		return false, err
	}
	if len(fragments) == 0 && len(stored) == 0 {
		return false, nil
	}
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return false, nil
	}

	used := fragments
	if fragments == nil {
		used = stored
	}

	// Wipe the pair's reserved time over the window first. The window
	// rows are fed to the subtraction directly: a manager tag on a row
	// must not shield it from the clearing pass.
	probe := caldomain.NewInterval(m.Resource, caldomain.KindOrgReserved, start, end).WithOrganization(m.Organization)
	window, err := mz.intervals.ListForResourceBetween(ctx, m.Resource, start, end)
	if err != nil {
		return false, err
	}
	owned := window.OfKind(caldomain.KindOrgReserved).ForOrganization(probe.Organization)
	if _, err := caldomain.Subtract(ctx, &orgWindowBag{repo: mz.intervals, window: owned}, probe); err != nil {
		return false, err
	}

	byDay := make(map[int][]*caldomain.ScheduleFragment, len(used))
	for _, f := range used {
		byDay[f.DayOfWeek] = append(byDay[f.DayOfWeek], f)
	}

	ws := caldomain.NewWorkingSet()
	first := caldomain.StartOfDay(start)
	for i := 0; i <= caldomain.DaysBetween(start, end); i++ {
		day := first.AddDate(0, 0, i)
		for _, f := range byDay[caldomain.DayOfWeek(day)] {
			s := caldomain.DateAt(day, f.StartTime)
			e := caldomain.DateAt(day, f.EndTime)
			// A local start before the UTC offset wraps past midnight
			// when normalized; the span belongs to the previous day.
			if s.After(e) {
				s = s.AddDate(0, 0, -1)
			}
			c := caldomain.NewInterval(m.Resource, caldomain.KindOrgReserved, s, e).WithOrganization(m.Organization)
			if _, err := caldomain.Join(ctx, ws, c, caldomain.JoinGap); err != nil {
				return false, err
			}
			ws.Append(c)
		}
	}

	created := make([]*caldomain.Interval, 0, ws.Len())
	for _, iv := range ws.Items() {
		if iv.Span() >= caldomain.JoinGap {
			created = append(created, iv)
		}
	}
	sort.Slice(created, func(i, j int) bool { return created[i].Start.Before(created[j].Start) })

	// Only the outermost spans can touch stored neighbors; join them so
	// the pair's timeline stays canonical across the window edges.
	if len(created) > 0 {
		bag := caldomain.NewRepositoryBag(mz.intervals)
		if _, err := caldomain.JoinStored(ctx, bag, created[0], caldomain.JoinGap); err != nil {
			return false, err
		}
		if len(created) > 1 {
			if _, err := caldomain.JoinStored(ctx, bag, created[len(created)-1], caldomain.JoinGap); err != nil {
				return false, err
			}
		}
	}
	if err := mz.intervals.InsertBatch(ctx, created); err != nil {
		return false, err
	}

	if saveAsDefault && fragments != nil {
		for _, f := range fragments {
			f.Membership = m.ID
		}
		if err := mz.memberships.ReplaceFragments(ctx, m.ID, fragments); err != nil {
			return false, err
		}
	}
	return true, nil
}

// extend rolls the persisted template forward to end, picking up from
// the watermark (or now when the template was never applied). The
// watermark only advances when something was applied. Returns the span
// start actually used.
func (mz *materializer) extend(ctx context.Context, m *caldomain.Membership, end time.Time) (bool, time.Time, error) {
	if m.ScheduleExtendedTo != nil && !m.ScheduleExtendedTo.Before(end) {
		return false, time.Time{}, nil
	}
	start := mz.now()
	if m.ScheduleExtendedTo != nil {
		start = *m.ScheduleExtendedTo
	}
	applied, err := mz.apply(ctx, m, start, end, nil, false)
	if err != nil || !applied {
		return false, start, err
	}
	if err := mz.memberships.SetWatermark(ctx, m.ID, &end); err != nil {
		return false, start, err
	}
	m.ScheduleExtendedTo = &end
	return true, start, nil
}

// strip cuts the pair's standing time at the given instant: the
// watermark moves there and every interval of the pair covering it is
// truncated to end there.
func (mz *materializer) strip(ctx context.Context, m *caldomain.Membership, at time.Time) error {
	if err := mz.memberships.SetWatermark(ctx, m.ID, &at); err != nil {
		return err
	}
	m.ScheduleExtendedTo = &at

	covering, err := mz.intervals.ListCovering(ctx, m.Resource, m.Organization, at)
	if err != nil {
		return err
	}
	for _, iv := range covering {
		iv.End = at
		if err := mz.intervals.Update(ctx, iv); err != nil {
			return err
		}
	}
	return nil
}

// orgWindowBag runs the algebra over a pre-fetched window of the pair's
// reserved rows. Identity matching would skip rows carrying a manager
// tag, but the materializer's clearing pass owns the whole window.
type orgWindowBag struct {
	repo   caldomain.IntervalRepository
	window caldomain.Intervals
}

func (b *orgWindowBag) Similar(_ context.Context, iv *caldomain.Interval, _, _ time.Time) ([]*caldomain.Interval, error) {
	out := make([]*caldomain.Interval, 0, len(b.window))
	for _, o := range b.window {
		if o != iv {
			out = append(out, o)
		}
	}
	return out, nil
}

func (b *orgWindowBag) Resize(ctx context.Context, iv *caldomain.Interval) error {
	return b.repo.Update(ctx, iv)
}

func (b *orgWindowBag) Add(ctx context.Context, iv *caldomain.Interval) error {
	return b.repo.Insert(ctx, iv)
}

func (b *orgWindowBag) Remove(ctx context.Context, iv *caldomain.Interval) error {
	return b.repo.Delete(ctx, iv.ID)
}
