// Package jobs runs background units of work with at-least-once delivery.
//
// A job is dispatched by kind with a json payload, a Pool of workers reads
// jobs off a Broker and runs the handler registered for the kind under the
// Policy of the kind: soft time limit, bounded retries with a fixed delay and
// an optional start rate limit.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

type Job struct {
	ID      uuid.UUID       `json:"id"`
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
	// Attempt is 0 for the first run and incremented on every retry.
	Attempt int `json:"attempt"`
}

func NewJob(kind Kind, payload any) (Job, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return Job{
		ID:      uuid.New(),
		Kind:    kind,
		Payload: encoded,
	}, nil
}

var (
	ErrSoftTimeLimit = errors.New("soft time limit exceeded")
	ErrUnknownKind   = errors.New("unknown job kind")
	ErrClosed        = errors.New("broker closed")
	ErrQueueFull     = errors.New("queue full")
)

// Policy is the failure handling contract of a job kind.
type Policy struct {
	// SoftTimeLimit cancels the context of a run, 0 means no limit.
	SoftTimeLimit time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	// RatePerMinute bounds how many runs of the kind start per minute
	// across the pool, 0 means unlimited.
	RatePerMinute int
}

// DefaultPolicy is the policy of network bound jobs.
var DefaultPolicy = Policy{
	SoftTimeLimit: 5 * time.Second,
	MaxRetries:    5,
	RetryDelay:    3 * time.Second,
}

// WithRate returns a copy of the policy limited to n starts per minute.
func (p Policy) WithRate(n int) Policy {
	p.RatePerMinute = n
	return p
}

// interval is the minimum time between two starts of the kind.
func (p Policy) interval() time.Duration {
	if p.RatePerMinute <= 0 {
		return 0
	}
	return time.Minute / time.Duration(p.RatePerMinute)
}

// WithSoftTimeLimit returns a copy of the policy with another soft time limit.
func (p Policy) WithSoftTimeLimit(d time.Duration) Policy {
	p.SoftTimeLimit = d
	return p
}
