package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryBrokerDelay(t *testing.T) {
	broker := NewMemoryBroker(4)
	defer broker.Close()

	now, err := NewJob("now", nil)
	require.NoError(t, err)
	later, err := NewJob("later", nil)
	require.NoError(t, err)

	require.NoError(t, broker.Enqueue(context.Background(), later, 30*time.Millisecond))
	require.NoError(t, broker.Enqueue(context.Background(), now, 0))
	require.Equal(t, 1, broker.Len())

	jobs := broker.Dequeue(context.Background())
	require.Equal(t, now.ID, (<-jobs).ID)

	select {
	case job := <-jobs:
		require.Equal(t, later.ID, job.ID)
	case <-time.After(time.Second):
		t.Fatal("delayed job never became ready")
	}
}

func TestMemoryBrokerFull(t *testing.T) {
	broker := NewMemoryBroker(1)
	defer broker.Close()

	job, err := NewJob("deck", nil)
	require.NoError(t, err)
	require.NoError(t, broker.Enqueue(context.Background(), job, 0))
	require.ErrorIs(t, broker.Enqueue(context.Background(), job, 0), ErrQueueFull)
}

func TestMemoryBrokerClosed(t *testing.T) {
	broker := NewMemoryBroker(1)
	job, err := NewJob("deck", nil)
	require.NoError(t, err)
	require.NoError(t, broker.Enqueue(context.Background(), job, time.Hour))

	require.NoError(t, broker.Close())
	require.NoError(t, broker.Close())
	require.ErrorIs(t, broker.Enqueue(context.Background(), job, 0), ErrClosed)
	require.ErrorIs(t, broker.Enqueue(context.Background(), job, time.Second), ErrClosed)

	_, ok := <-broker.Dequeue(context.Background())
	require.False(t, ok)
}
