package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	t.Run("fills identity, payload and metadata", func(t *testing.T) {
		aggregateID := uuid.New()
		meta := Metadata{CorrelationID: uuid.NewString(), App: "scheduler"}

		msg, err := NewMessage("Interval", aggregateID, "calendar.interval.created",
			map[string]any{"resource": 7}, meta)

		require.NoError(t, err)
		require.NotNil(t, msg)
		assert.NotEqual(t, uuid.Nil, msg.EventID)
		assert.Equal(t, "Interval", msg.AggregateType)
		assert.Equal(t, aggregateID, msg.AggregateID)
		assert.Equal(t, "calendar.interval.created", msg.EventType)
		assert.Equal(t, "calendar.interval.created", msg.RoutingKey)
		assert.JSONEq(t, `{"resource": 7}`, string(msg.Payload))
		assert.Contains(t, string(msg.Metadata), meta.CorrelationID)
		assert.Contains(t, string(msg.Metadata), "scheduler")
		assert.False(t, msg.CreatedAt.IsZero())
	})

	t.Run("starts unpublished with zero id", func(t *testing.T) {
		msg, err := NewMessage("Interval", uuid.New(), "calendar.interval.deleted", nil, Metadata{})

		require.NoError(t, err)
		assert.Equal(t, int64(0), msg.ID)
		assert.Nil(t, msg.PublishedAt)
		assert.Nil(t, msg.NextRetryAt)
		assert.Equal(t, 0, msg.RetryCount)
		assert.Nil(t, msg.LastError)
		assert.Nil(t, msg.DeadLetteredAt)
	})

	t.Run("rejects unmarshalable payloads", func(t *testing.T) {
		_, err := NewMessage("Interval", uuid.New(), "calendar.interval.created",
			map[string]any{"bad": make(chan int)}, Metadata{})

		assert.Error(t, err)
	})

	t.Run("empty metadata marshals to an empty object", func(t *testing.T) {
		msg, err := NewMessage("Interval", uuid.New(), "calendar.interval.created", nil, Metadata{})

		require.NoError(t, err)
		assert.Equal(t, json.RawMessage(`{}`), msg.Metadata)
	})
}

func TestMessage_IsPublished(t *testing.T) {
	msg := &Message{}
	assert.False(t, msg.IsPublished())

	now := time.Now()
	msg.PublishedAt = &now
	assert.True(t, msg.IsPublished())
}

func TestMessage_CanRetry(t *testing.T) {
	cases := []struct {
		retryCount int
		maxRetries int
		want       bool
	}{
		{0, 5, true},
		{2, 5, true},
		{5, 5, false},
		{10, 5, false},
		{0, 1, true},
		{0, 0, false},
	}

	for _, tc := range cases {
		msg := &Message{RetryCount: tc.retryCount}
		assert.Equal(t, tc.want, msg.CanRetry(tc.maxRetries),
			"retryCount=%d maxRetries=%d", tc.retryCount, tc.maxRetries)
	}
}
