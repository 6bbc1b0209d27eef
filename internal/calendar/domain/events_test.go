package domain_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marfateam/rcalendar/internal/calendar/domain"
)

func int64p(v int64) *int64 { return &v }

func TestSink_OrderAndContext(t *testing.T) {
	sink := domain.NewSink()
	ctx := domain.WithSink(context.Background(), sink)

	start, end := at(9, 0), at(10, 0)
	refs := domain.EventRefs{Resource: int64p(7)}

	domain.SinkFrom(ctx).Push(domain.NewIntervalCreated(domain.KindOrgReserved, refs, nil, start, end))
	domain.SinkFrom(ctx).Push(domain.NewUnavailableCleared(refs, start, end))

	events := sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventCreateInterval, events[0].Kind)
	assert.Equal(t, domain.EventClearUnavailable, events[1].Kind)
}

func TestSink_NilSafe(t *testing.T) {
	// Background jobs run without a sink; pushes must not panic.
	sink := domain.SinkFrom(context.Background())
	require.Nil(t, sink)
	sink.Push(domain.Event{Kind: domain.EventApplySchedule})
	assert.Zero(t, sink.Len())
	assert.Nil(t, sink.Events())
}

func TestEventMarshal_FlattensPayload(t *testing.T) {
	start := time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	comment := "standup"

	e := domain.NewIntervalCreated(domain.KindManagerReserved, domain.EventRefs{
		Resource:     int64p(3),
		Organization: int64p(11),
		Manager:      int64p(42),
	}, &comment, start, end)

	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "create-interval", decoded["kind"])
	assert.Equal(t, "manager", decoded["interval_kind"])
	assert.Equal(t, float64(3), decoded["resource"])
	assert.Equal(t, float64(11), decoded["organization"])
	assert.Equal(t, float64(42), decoded["manager"])
	assert.Equal(t, "standup", decoded["comment"])
	assert.Equal(t, 5400.0, decoded["timedelta"])
	require.Len(t, decoded["duration"], 2)
}

func TestEventMarshal_NullReferences(t *testing.T) {
	e := domain.NewUnavailableAdded(domain.EventRefs{Resource: int64p(3)}, nil, at(13, 0), at(16, 0))

	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	// Absent references serialize as explicit nulls, not missing keys.
	org, present := decoded["organization"]
	assert.True(t, present)
	assert.Nil(t, org)
	manager, present := decoded["manager"]
	assert.True(t, present)
	assert.Nil(t, manager)
	comment, present := decoded["comment"]
	assert.True(t, present)
	assert.Nil(t, comment)
}

func TestScheduleAppliedPayload(t *testing.T) {
	e := domain.NewScheduleApplied(domain.EventRefs{
		Resource:     int64p(3),
		Organization: int64p(11),
	}, true, at(0, 0), at(23, 0))

	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "apply-schedule", decoded["kind"])
	assert.Equal(t, true, decoded["permanent"])
	_, hasTimedelta := decoded["timedelta"]
	assert.False(t, hasTimedelta)
}
