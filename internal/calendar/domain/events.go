package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Event kinds pushed to the per-request sink. Calling services switch
// on these labels, so they are wire contract.
const (
	EventCreateInterval   = "create-interval"
	EventDeleteInterval   = "delete-interval"
	EventAddUnavailable   = "add-unavailable-interval"
	EventClearUnavailable = "clear-unavailable-interval"
	EventApplySchedule    = "apply-schedule"
)

// Event is one domain event record. Payload fields are flattened next
// to the kind tag when serialized, and entity references carry the
// external ids of the calling service, not internal ones.
type Event struct {
	Kind    string
	Payload map[string]any
}

// MarshalJSON renders the payload flat with the kind tag mixed in.
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Payload)+1)
	for k, v := range e.Payload {
		m[k] = v
	}
	m["kind"] = e.Kind
	return json.Marshal(m)
}

// EventRefs carries the resolved external ids an event payload points
// at. Nil references serialize as null.
type EventRefs struct {
	Resource     *int64
	Organization *int64
	Manager      *int64
}

// NewIntervalCreated describes a saved interval.
func NewIntervalCreated(kind Kind, refs EventRefs, comment *string, start, end time.Time) Event {
	return intervalEvent(EventCreateInterval, kind, refs, comment, start, end)
}

// NewIntervalDeleted describes a removed interval.
func NewIntervalDeleted(kind Kind, refs EventRefs, comment *string, start, end time.Time) Event {
	return intervalEvent(EventDeleteInterval, kind, refs, comment, start, end)
}

func intervalEvent(name string, kind Kind, refs EventRefs, comment *string, start, end time.Time) Event {
	return Event{
		Kind: name,
		Payload: map[string]any{
			"interval_kind": kind.String(),
			"organization":  refs.Organization,
			"resource":      refs.Resource,
			"manager":       refs.Manager,
			"comment":       comment,
			"start":         start,
			"end":           end,
			"duration":      [2]time.Time{start, end},
			"timedelta":     end.Sub(start).Seconds(),
		},
	}
}

// NewUnavailableAdded notifies a manager that unavailability appeared
// inside time they care about.
func NewUnavailableAdded(refs EventRefs, comment *string, start, end time.Time) Event {
	e := unavailableEvent(EventAddUnavailable, refs, start, end)
	e.Payload["comment"] = comment
	return e
}

// NewUnavailableCleared notifies a manager that unavailability was
// lifted.
func NewUnavailableCleared(refs EventRefs, start, end time.Time) Event {
	return unavailableEvent(EventClearUnavailable, refs, start, end)
}

func unavailableEvent(name string, refs EventRefs, start, end time.Time) Event {
	return Event{
		Kind: name,
		Payload: map[string]any{
			"resource":     refs.Resource,
			"manager":      refs.Manager,
			"organization": refs.Organization,
			"duration":     [2]time.Time{start, end},
			"timedelta":    end.Sub(start).Seconds(),
		},
	}
}

// NewScheduleApplied describes a materialized schedule template.
func NewScheduleApplied(refs EventRefs, permanent bool, start, end time.Time) Event {
	return Event{
		Kind: EventApplySchedule,
		Payload: map[string]any{
			"manager":      refs.Manager,
			"resource":     refs.Resource,
			"organization": refs.Organization,
			"permanent":    permanent,
			"duration":     [2]time.Time{start, end},
		},
	}
}

// Sink is the per-request ordered event list. The transport binds a
// fresh sink to every request context and appends its contents to the
// response body; nothing outside a request ever sees it. A nil sink
// swallows pushes so background jobs can run the same code paths.
type Sink struct {
	events []Event
}

// NewSink returns an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Push appends an event, keeping emission order.
func (s *Sink) Push(e Event) {
	if s == nil {
		return
	}
	s.events = append(s.events, e)
}

// Events returns the collected events in emission order.
func (s *Sink) Events() []Event {
	if s == nil {
		return nil
	}
	return s.events
}

// Len reports the number of collected events.
func (s *Sink) Len() int {
	if s == nil {
		return 0
	}
	return len(s.events)
}

type sinkKey struct{}

// WithSink binds a sink to the request context.
func WithSink(ctx context.Context, s *Sink) context.Context {
	return context.WithValue(ctx, sinkKey{}, s)
}

// SinkFrom returns the bound sink, or nil when the context carries
// none. The nil sink is safe to push to.
func SinkFrom(ctx context.Context) *Sink {
	s, _ := ctx.Value(sinkKey{}).(*Sink)
	return s
}
