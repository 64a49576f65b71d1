package jobs

import (
	"context"
	"errors"
	"fmt"
	"mtgstats-backend/internal/components/assert"
	"mtgstats-backend/internal/components/telemetry"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

const (
	report_pool_dispatch = "pool.dispatch"
	report_pool_handle   = "pool.handle"
	report_pool_pending  = "pool.pending"
)

// Dispatcher is what handlers use to fan work out to other jobs.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind Kind, payload any) error
}

type State int

const (
	// STATE_PENDING is a job waiting in the broker, including retries and
	// jobs held back by the rate limit of their kind.
	STATE_PENDING State = iota
	STATE_DISPATCHED
	STATE_STORED
	// STATE_FAILED_RETRYABLE is a failed run that will be retried.
	STATE_FAILED_RETRYABLE
	// STATE_FAILED is final, the error was permanent or retries ran out.
	STATE_FAILED
)

func (s State) String() string {
	switch s {
	case STATE_PENDING:
		return "pending"
	case STATE_DISPATCHED:
		return "dispatched"
	case STATE_STORED:
		return "stored"
	case STATE_FAILED_RETRYABLE:
		return "failed_retryable"
	case STATE_FAILED:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Transition is a change of state of a job.
type Transition struct {
	Job   Job
	State State
	Err   error
}

type Option func(p *Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithObserver calls fn on every job transition, fn must be safe for concurrent use.
func WithObserver(fn func(Transition)) Option {
	return func(p *Pool) {
		p.observer = fn
	}
}

// Pool runs registered jobs on a fixed number of workers.
type Pool struct {
	broker   Broker
	registry *Registry
	workers  int
	observer func(Transition)
	tel      telemetry.API

	limitersMu sync.Mutex
	limiters   map[Kind]*rate.Limiter

	pendingMu sync.Mutex
	pending   int
	idle      chan struct{}

	processed metric.Int64Counter
}

func NewPool(broker Broker, registry *Registry, tel telemetry.API, opts ...Option) *Pool {
	assert.NotNil(broker)
	assert.NotNil(registry)
	assert.NotNil(tel)

	idle := make(chan struct{})
	close(idle)

	p := &Pool{
		broker:   broker,
		registry: registry,
		workers:  4,
		tel:      telemetry.NewScopedAPI("jobs", tel),
		limiters: map[Kind]*rate.Limiter{},
		idle:     idle,
	}
	for _, opt := range opts {
		opt(p)
	}

	processed, err := otel.Meter("mtgstats.jobs").Int64Counter(
		"jobs.transitions",
		metric.WithDescription("job state transitions by kind"),
	)
	if err != nil {
		p.tel.ReportBroken(report_pool_handle, fmt.Errorf("create counter: %w", err))
	}
	p.processed = processed

	return p
}

func (p *Pool) observe(ctx context.Context, job Job, state State, err error) {
	if p.processed != nil {
		p.processed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(job.Kind)),
			attribute.String("state", state.String()),
		))
	}
	if p.observer != nil {
		p.observer(Transition{Job: job, State: state, Err: err})
	}
}

func (p *Pool) addPending() {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	if p.pending == 0 {
		p.idle = make(chan struct{})
	}
	p.pending++
}

// donePending never goes below zero, jobs enqueued by other processes are
// not counted.
func (p *Pool) donePending() {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	if p.pending == 0 {
		return
	}
	p.pending--
	if p.pending == 0 {
		close(p.idle)
	}
}

// Pending returns the number of jobs dispatched by this process that have not
// reached a final state.
func (p *Pool) Pending() int {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	return p.pending
}

// Wait blocks until every job dispatched by this process (and every job they
// dispatched) reached a final state.
func (p *Pool) Wait(ctx context.Context) error {
	for {
		p.pendingMu.Lock()
		if p.pending == 0 {
			p.pendingMu.Unlock()
			return nil
		}
		idle := p.idle
		p.pendingMu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Dispatch enqueues a job, it does not wait for the job to run.
func (p *Pool) Dispatch(ctx context.Context, kind Kind, payload any) error {
	if _, ok := p.registry.lookup(kind); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	job, err := NewJob(kind, payload)
	if err != nil {
		return err
	}
	return p.enqueue(ctx, job, 0)
}

func (p *Pool) enqueue(ctx context.Context, job Job, delay time.Duration) error {
	p.addPending()
	err := p.broker.Enqueue(ctx, job, delay)
	if err != nil {
		p.donePending()
		p.tel.ReportBroken(report_pool_dispatch, err, string(job.Kind))
		return fmt.Errorf("enqueue %s: %w", job.Kind, err)
	}
	p.observe(ctx, job, STATE_PENDING, nil)
	return nil
}

func (p *Pool) limiter(kind Kind, policy Policy) *rate.Limiter {
	if policy.RatePerMinute <= 0 {
		return nil
	}
	p.limitersMu.Lock()
	defer p.limitersMu.Unlock()

	limiter, ok := p.limiters[kind]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(policy.interval()), 1)
		p.limiters[kind] = limiter
	}
	return limiter
}

// Run starts the workers, it returns once ctx is done or the broker is closed.
func (p *Pool) Run(ctx context.Context) {
	jobs := p.broker.Dequeue(ctx)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-jobs:
					if !ok {
						return
					}
					p.handle(ctx, job)
				}
			}
		}()
	}
	wg.Wait()
}

func (p *Pool) handle(ctx context.Context, job Job) {
	defer p.donePending()

	def, ok := p.registry.lookup(job.Kind)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownKind, job.Kind)
		p.tel.ReportBroken(report_pool_handle, err)
		p.observe(ctx, job, STATE_FAILED, err)
		return
	}

	// a rate limited job goes back to the broker instead of holding a worker
	if limiter := p.limiter(job.Kind, def.policy); limiter != nil && !limiter.Allow() {
		p.requeue(ctx, job, def.policy.interval())
		return
	}

	p.observe(ctx, job, STATE_DISPATCHED, nil)
	err := p.run(ctx, def, job)
	if err == nil {
		p.observe(ctx, job, STATE_STORED, nil)
		return
	}

	// a run interrupted by shutdown goes back to the broker as it was
	if ctx.Err() != nil {
		p.requeue(ctx, job, 0)
		return
	}

	if IsRetryable(err) && job.Attempt < def.policy.MaxRetries {
		p.tel.ReportWarning(report_pool_handle, err, string(job.Kind), job.ID.String(), job.Attempt)
		p.observe(ctx, job, STATE_FAILED_RETRYABLE, err)
		job.Attempt++
		p.requeue(ctx, job, def.policy.RetryDelay)
		return
	}

	p.tel.ReportBroken(report_pool_handle, err, string(job.Kind), job.ID.String(), job.Attempt)
	p.observe(ctx, job, STATE_FAILED, err)
}

func (p *Pool) requeue(ctx context.Context, job Job, delay time.Duration) {
	// the job must survive the cancellation of the context it ran under
	err := p.enqueue(context.WithoutCancel(ctx), job, delay)
	if err != nil {
		p.observe(ctx, job, STATE_FAILED, err)
	}
}

// run calls the handler under the soft time limit of the kind, a panic fails
// the job permanently.
func (p *Pool) run(ctx context.Context, def definition, job Job) (err error) {
	runCtx := ctx
	if def.policy.SoftTimeLimit > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, def.policy.SoftTimeLimit)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("panic: %v\n%s", r, debug.Stack()))
		}
	}()

	err = def.handler(runCtx, job.Payload)
	if err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrSoftTimeLimit, err)
	}
	return err
}

// ReportPending reports the number of pending jobs every interval until ctx is done.
func (p *Pool) ReportPending(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tel.ReportCount(report_pool_pending, int64(p.Pending()))
		}
	}
}
