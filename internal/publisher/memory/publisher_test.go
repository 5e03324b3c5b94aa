package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "summaries", map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "audit", "payload")
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "summaries", msgs[0].Topic)
	assert.Equal(t, "audit", msgs[1].Topic)

	msgs[0].Topic = "modified"
	assert.Equal(t, "summaries", pub.Messages()[0].Topic)
}

func TestPublisherFailure(t *testing.T) {
	t.Parallel()

	pub := New()
	pub.FailWith(assert.AnError)
	_, err := pub.Publish(context.Background(), "summaries", "x")
	require.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, pub.Messages())
}

func TestPublisherEvictsOldest(t *testing.T) {
	t.Parallel()

	pub := NewWithCapacity(3)
	var lastID string
	for i := 1; i <= 1000; i++ {
		id, err := pub.Publish(context.Background(), "summaries", i)
		require.NoError(t, err)
		lastID = id
	}
	assert.Equal(t, "memory-1000", lastID)

	msgs := pub.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, []any{998, 999, 1000}, []any{msgs[0].Payload, msgs[1].Payload, msgs[2].Payload})
}

func TestPublisherDefaultCapacity(t *testing.T) {
	t.Parallel()

	pub := NewWithCapacity(0)
	for i := 0; i < DefaultCapacity+10; i++ {
		_, err := pub.Publish(context.Background(), "summaries", i)
		require.NoError(t, err)
	}
	msgs := pub.Messages()
	require.Len(t, msgs, DefaultCapacity)
	assert.Equal(t, 10, msgs[0].Payload)
	assert.Equal(t, DefaultCapacity+9, msgs[DefaultCapacity-1].Payload)
}
