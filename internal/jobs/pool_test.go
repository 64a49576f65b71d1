package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"mtgstats-backend/internal/components/telemetry"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type transitionLog struct {
	mu          sync.Mutex
	transitions []Transition
}

func (l *transitionLog) observe(t Transition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transitions = append(l.transitions, t)
}

func (l *transitionLog) states() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]State, len(l.transitions))
	for i, t := range l.transitions {
		out[i] = t.State
	}
	return out
}

func (l *transitionLog) errs() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []error
	for _, t := range l.transitions {
		if t.Err != nil {
			out = append(out, t.Err)
		}
	}
	return out
}

type testPool struct {
	pool     *Pool
	registry *Registry
	log      *transitionLog
	tel      *telemetry.Recorder
	run      func(t testing.TB)
}

func newTestPool(t testing.TB, workers int) testPool {
	broker := NewMemoryBroker(0)
	registry := NewRegistry()
	log := &transitionLog{}
	tel := telemetry.NewRecorder()
	pool := NewPool(broker, registry, tel, WithWorkers(workers), WithObserver(log.observe))

	return testPool{
		pool:     pool,
		registry: registry,
		log:      log,
		tel:      tel,
		// run starts the workers and waits for every dispatched job to settle
		run: func(t testing.TB) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				pool.Run(ctx)
				close(done)
			}()
			t.Cleanup(func() {
				cancel()
				<-done
				broker.Close()
			})

			waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer waitCancel()
			require.NoError(t, pool.Wait(waitCtx))
		},
	}
}

var fastPolicy = Policy{
	SoftTimeLimit: time.Second,
	MaxRetries:    3,
	RetryDelay:    5 * time.Millisecond,
}

type pagePayload struct {
	Page int `json:"page"`
}

func TestPoolRunsJob(t *testing.T) {
	p := newTestPool(t, 2)

	var mu sync.Mutex
	var pages []int
	Register(p.registry, "page", fastPolicy, func(ctx context.Context, payload pagePayload) error {
		mu.Lock()
		defer mu.Unlock()
		pages = append(pages, payload.Page)
		return nil
	})

	require.NoError(t, p.pool.Dispatch(context.Background(), "page", pagePayload{Page: 3}))
	p.run(t)

	require.Equal(t, []int{3}, pages)
	require.Equal(t, []State{STATE_PENDING, STATE_DISPATCHED, STATE_STORED}, p.log.states())
	require.Zero(t, p.pool.Pending())
}

func TestPoolUnknownKind(t *testing.T) {
	p := newTestPool(t, 1)
	err := p.pool.Dispatch(context.Background(), "missing", nil)
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestPoolRetriesUntilSuccess(t *testing.T) {
	p := newTestPool(t, 1)

	calls := 0
	p.registry.Handle("flaky", fastPolicy, func(ctx context.Context, _ json.RawMessage) error {
		calls++
		if calls < 3 {
			return Retry(errors.New("connection reset"))
		}
		return nil
	})

	require.NoError(t, p.pool.Dispatch(context.Background(), "flaky", nil))
	p.run(t)

	require.Equal(t, 3, calls)
	states := p.log.states()
	require.Equal(t, STATE_STORED, states[len(states)-1])
	require.Equal(t, 2, count(states, STATE_FAILED_RETRYABLE))
	require.Len(t, p.tel.Reports(telemetry.REPORT_WARNING, report_pool_handle), 2)
	require.Empty(t, p.tel.Reports(telemetry.REPORT_BROKEN, report_pool_handle))
}

func TestPoolRetriesAreBounded(t *testing.T) {
	p := newTestPool(t, 1)

	calls := 0
	p.registry.Handle("down", fastPolicy, func(ctx context.Context, _ json.RawMessage) error {
		calls++
		return Retry(errors.New("503"))
	})

	require.NoError(t, p.pool.Dispatch(context.Background(), "down", nil))
	p.run(t)

	// the first run plus MaxRetries retries
	require.Equal(t, 4, calls)
	states := p.log.states()
	require.Equal(t, STATE_FAILED, states[len(states)-1])
	require.Len(t, p.tel.Reports(telemetry.REPORT_BROKEN, report_pool_handle), 1)
}

func TestPoolPermanentFailure(t *testing.T) {
	p := newTestPool(t, 1)

	calls := 0
	p.registry.Handle("broken", fastPolicy, func(ctx context.Context, _ json.RawMessage) error {
		calls++
		return errors.New("unexpected deck link")
	})

	require.NoError(t, p.pool.Dispatch(context.Background(), "broken", nil))
	p.run(t)

	require.Equal(t, 1, calls)
	require.Equal(t, []State{STATE_PENDING, STATE_DISPATCHED, STATE_FAILED}, p.log.states())
}

func TestPoolSoftTimeLimit(t *testing.T) {
	p := newTestPool(t, 1)

	calls := 0
	policy := fastPolicy.WithSoftTimeLimit(20 * time.Millisecond)
	policy.MaxRetries = 1
	p.registry.Handle("slow", policy, func(ctx context.Context, _ json.RawMessage) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})

	require.NoError(t, p.pool.Dispatch(context.Background(), "slow", nil))
	p.run(t)

	require.Equal(t, 2, calls)
	errs := p.log.errs()
	require.Len(t, errs, 2)
	for _, err := range errs {
		require.ErrorIs(t, err, ErrSoftTimeLimit)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	}
	states := p.log.states()
	require.Equal(t, STATE_FAILED, states[len(states)-1])
}

func TestPoolRecoversPanics(t *testing.T) {
	p := newTestPool(t, 1)

	calls := 0
	p.registry.Handle("panics", fastPolicy, func(ctx context.Context, _ json.RawMessage) error {
		calls++
		panic("nil deck")
	})

	require.NoError(t, p.pool.Dispatch(context.Background(), "panics", nil))
	p.run(t)

	require.Equal(t, 1, calls)
	errs := p.log.errs()
	require.Len(t, errs, 1)
	require.ErrorContains(t, errs[0], "nil deck")
	require.False(t, IsRetryable(errs[0]))
}

func TestPoolPayloadDecodeFailure(t *testing.T) {
	p := newTestPool(t, 1)

	calls := 0
	Register(p.registry, "page", fastPolicy, func(ctx context.Context, payload pagePayload) error {
		calls++
		return nil
	})

	require.NoError(t, p.pool.Dispatch(context.Background(), "page", "not a page"))
	p.run(t)

	require.Zero(t, calls)
	states := p.log.states()
	require.Equal(t, STATE_FAILED, states[len(states)-1])
}

func TestPoolRateLimit(t *testing.T) {
	p := newTestPool(t, 4)

	var mu sync.Mutex
	var starts []time.Time
	var pages []int
	// 600 per minute is one start every 100ms
	Register(p.registry, "tournament", fastPolicy.WithRate(600), func(ctx context.Context, payload pagePayload) error {
		mu.Lock()
		defer mu.Unlock()
		starts = append(starts, time.Now())
		pages = append(pages, payload.Page)
		return nil
	})

	for i := range 4 {
		require.NoError(t, p.pool.Dispatch(context.Background(), "tournament", pagePayload{Page: i}))
	}
	p.run(t)

	require.Len(t, starts, 4)
	slices.SortFunc(starts, func(a, b time.Time) int { return a.Compare(b) })
	for i := 1; i < len(starts); i++ {
		require.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), 90*time.Millisecond)
	}

	slices.Sort(pages)
	require.Equal(t, []int{0, 1, 2, 3}, pages)

	// held back jobs are not failures
	states := p.log.states()
	require.Zero(t, count(states, STATE_FAILED_RETRYABLE))
	require.Equal(t, 4, count(states, STATE_STORED))
	p.log.mu.Lock()
	defer p.log.mu.Unlock()
	for _, transition := range p.log.transitions {
		require.Zero(t, transition.Job.Attempt)
	}
}

func TestPoolWaitsForChildJobs(t *testing.T) {
	p := newTestPool(t, 2)

	var mu sync.Mutex
	var done []int
	Register(p.registry, "child", fastPolicy, func(ctx context.Context, payload pagePayload) error {
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		done = append(done, payload.Page)
		return nil
	})
	Register(p.registry, "parent", fastPolicy, func(ctx context.Context, payload pagePayload) error {
		for i := range payload.Page {
			err := p.pool.Dispatch(ctx, "child", pagePayload{Page: i})
			if err != nil {
				return err
			}
		}
		return nil
	})

	require.NoError(t, p.pool.Dispatch(context.Background(), "parent", pagePayload{Page: 5}))
	p.run(t)

	slices.Sort(done)
	require.Equal(t, []int{0, 1, 2, 3, 4}, done)
}

func TestPoolWaitHonorsContext(t *testing.T) {
	p := newTestPool(t, 1)
	p.registry.Handle("never-run", fastPolicy, func(ctx context.Context, _ json.RawMessage) error {
		return nil
	})
	// no workers are running so the job stays pending
	require.NoError(t, p.pool.Dispatch(context.Background(), "never-run", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, p.pool.Wait(ctx), context.DeadlineExceeded)
	require.Equal(t, 1, p.pool.Pending())
}

func count(states []State, want State) int {
	n := 0
	for _, s := range states {
		if s == want {
			n++
		}
	}
	return n
}
