package domain

import (
	"context"
	"time"
)

// Bag abstracts the collection an interval is joined into or subtracted
// from. The algebra in algebra.go runs the same classification over
// both implementations: the in-memory working set below, used by the
// schedule materializer and the continuity test, and the
// repository-backed bag in the persistence layer, which turns the same
// steps into row updates inside the caller's transaction.
type Bag interface {
	// Similar returns the intervals sharing iv's identity whose spans
	// touch the [from, to] window, excluding iv itself.
	Similar(ctx context.Context, iv *Interval, from, to time.Time) ([]*Interval, error)
	// Resize records a bounds change of a member.
	Resize(ctx context.Context, iv *Interval) error
	// Add records a new member (the right piece of a split).
	Add(ctx context.Context, iv *Interval) error
	// Remove drops a member consumed by a join or subtract.
	Remove(ctx context.Context, iv *Interval) error
}

// WorkingSet is the in-memory Bag. It deliberately skips identity and
// window filtering: callers build it from intervals that already share
// one identity, and the classification ignores far-away members anyway.
type WorkingSet struct {
	items []*Interval
}

// NewWorkingSet wraps the given intervals. The slice is copied; the
// intervals themselves are shared and may be mutated by the algebra.
func NewWorkingSet(items ...*Interval) *WorkingSet {
	ws := &WorkingSet{items: make([]*Interval, len(items))}
	copy(ws.items, items)
	return ws
}

// Items returns the current members in insertion order.
func (ws *WorkingSet) Items() []*Interval {
	return ws.items
}

// Len returns the member count.
func (ws *WorkingSet) Len() int {
	return len(ws.items)
}

// Append adds an interval without running any algebra.
func (ws *WorkingSet) Append(iv *Interval) {
	ws.items = append(ws.items, iv)
}

// Similar implements Bag over the full member snapshot.
func (ws *WorkingSet) Similar(_ context.Context, iv *Interval, _, _ time.Time) ([]*Interval, error) {
	out := make([]*Interval, 0, len(ws.items))
	for _, o := range ws.items {
		if o != iv {
			out = append(out, o)
		}
	}
	return out, nil
}

// Resize is a no-op: members are mutated in place.
func (ws *WorkingSet) Resize(_ context.Context, _ *Interval) error {
	return nil
}

// Add implements Bag.
func (ws *WorkingSet) Add(_ context.Context, iv *Interval) error {
	ws.items = append(ws.items, iv)
	return nil
}

// Remove implements Bag.
func (ws *WorkingSet) Remove(_ context.Context, iv *Interval) error {
	for i, o := range ws.items {
		if o == iv {
			ws.items = append(ws.items[:i], ws.items[i+1:]...)
			return nil
		}
	}
	return nil
}
