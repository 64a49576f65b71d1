package jobs

import (
	"context"
	"sync"
	"time"
)

// Broker moves jobs from dispatchers to workers.
type Broker interface {
	// Enqueue makes the job available to workers after delay, it never waits
	// for a worker to pick the job up.
	Enqueue(ctx context.Context, job Job, delay time.Duration) error
	// Dequeue returns the channel workers receive jobs from.
	Dequeue(ctx context.Context) <-chan Job
	Close() error
}

const defaultMemoryCapacity = 100000

// MemoryBroker is a Broker local to the process backed by a buffered channel.
type MemoryBroker struct {
	jobs chan Job

	mu     sync.RWMutex
	closed bool
	timers map[*time.Timer]struct{}
}

func NewMemoryBroker(capacity int) *MemoryBroker {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryBroker{
		jobs:   make(chan Job, capacity),
		timers: map[*time.Timer]struct{}{},
	}
}

func (b *MemoryBroker) push(job Job) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}
	select {
	case b.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (b *MemoryBroker) Enqueue(ctx context.Context, job Job, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return b.push(job)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		b.mu.Lock()
		delete(b.timers, timer)
		b.mu.Unlock()
		// a full queue or a closed broker drops the delayed job
		_ = b.push(job)
	})
	b.timers[timer] = struct{}{}
	return nil
}

func (b *MemoryBroker) Dequeue(context.Context) <-chan Job {
	return b.jobs
}

// Len returns the number of jobs ready to be picked up.
func (b *MemoryBroker) Len() int {
	return len(b.jobs)
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for timer := range b.timers {
		timer.Stop()
	}
	b.timers = nil
	close(b.jobs)
	return nil
}
