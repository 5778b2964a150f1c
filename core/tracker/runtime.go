// Package tracker implements the activity runtime: it owns the live session state,
// accrues focused and audible time into per-minute buckets, and persists them.
//
// All state lives on a single actor goroutine. Handlers, timers and content signals
// enqueue jobs that run strictly one after another, so no two accruals ever observe
// or mutate the session concurrently.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/schema"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrClosed is returned when work is submitted to a runtime that has shut down.
var ErrClosed = errors.New("tracker runtime is closed")

// storeTimeout bounds a single store call made from the actor.
const storeTimeout = 5 * time.Second

// Store is the persistence the runtime writes through.
type Store interface {
	contract.BucketStore
	contract.EventStore
	contract.StateStore
}

// job is a unit of work for the actor. It resolves to the number of seconds it accrued.
type job struct {
	run    func() int
	result chan int
}

// Runtime is the activity runtime. Create it with New, then call Start.
type Runtime struct {
	cfg   contract.TrackerConfig
	store Store
	host  contract.HostLookup
	log   *zap.Logger
	now   func() time.Time
	loc   *time.Location

	newBackOff func() backoff.BackOff

	jobs      chan job
	quit      chan struct{}
	wg        sync.WaitGroup
	cron      *cron.Cron
	startOnce sync.Once
	closeOnce sync.Once
	started   bool

	// Owned by the actor goroutine.
	state   schema.SessionState
	live    *schema.Bucket
	unsaved map[string]schema.Bucket
}

// Option customizes a Runtime.
type Option func(*Runtime)

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Runtime) { r.log = log }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runtime) { r.now = now }
}

// WithLocation sets the time zone used for bucket dates and minutes.
func WithLocation(loc *time.Location) Option {
	return func(r *Runtime) { r.loc = loc }
}

// WithBackOff sets the retry policy factory used for bucket writes.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(r *Runtime) { r.newBackOff = fn }
}

// New creates a runtime over store and host.
func New(cfg contract.TrackerConfig, store Store, host contract.HostLookup, opts ...Option) *Runtime {
	r := &Runtime{
		cfg:     cfg,
		store:   store,
		host:    host,
		log:     zap.NewNop(),
		now:     time.Now,
		loc:     time.Local,
		jobs:    make(chan job),
		quit:    make(chan struct{}),
		state:   schema.DefaultSessionState(),
		unsaved: map[string]schema.Bucket{},
	}
	r.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 50 * time.Millisecond
		b.MaxInterval = time.Second
		return b
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cfg.LookupTimeout <= 0 {
		r.cfg.LookupTimeout = contract.DefaultLookupTimeout
	}
	return r
}

// everySpec renders an interval as a cron schedule.
var everySpec = func(d time.Duration) string { return "@every " + d.String() }

// Start restores the persisted session, schedules the periodic accrual and flush ticks,
// and starts the actor. Intervals of zero disable the scheduler. When scheduling fails
// nothing is started.
func (r *Runtime) Start(ctx context.Context) error {
	var err error
	r.startOnce.Do(func() {
		var c *cron.Cron
		if r.cfg.AccrueInterval > 0 && r.cfg.FlushInterval > 0 {
			c = cron.New()
			if _, err = c.AddFunc(everySpec(r.cfg.AccrueInterval), r.tickAccrue); err != nil {
				return
			}
			if _, err = c.AddFunc(everySpec(r.cfg.FlushInterval), r.tickFlush); err != nil {
				return
			}
		}

		r.restoreState(ctx)
		r.wg.Add(1)
		go r.loop()
		r.started = true

		if c == nil {
			return
		}
		r.cron = c
		r.cron.Start()
		r.log.Info("tracker started",
			zap.Duration("accrue_interval", r.cfg.AccrueInterval),
			zap.Duration("flush_interval", r.cfg.FlushInterval))
	})
	return err
}

func (r *Runtime) tickAccrue() {
	if _, err := r.Accrue(context.Background(), r.now(), false); err != nil {
		r.log.Debug("scheduled accrual skipped", zap.Error(err))
	}
}

func (r *Runtime) tickFlush() {
	if err := r.Flush(context.Background()); err != nil {
		r.log.Debug("scheduled flush skipped", zap.Error(err))
	}
}

// Close stops the scheduler, accrues and flushes one last time, and stops the actor.
func (r *Runtime) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		if r.cron != nil {
			<-r.cron.Stop().Done()
		}
		if r.started {
			_, err = r.submit(ctx, func() int {
				n := r.accrue(r.now(), true)
				r.flushAll()
				return n
			})
		}
		close(r.quit)
		r.wg.Wait()
		r.log.Info("tracker stopped")
	})
	return err
}

// loop is the actor. Jobs run in the order they were submitted.
func (r *Runtime) loop() {
	defer r.wg.Done()
	for {
		select {
		case j := <-r.jobs:
			j.result <- r.exec(j.run)
		case <-r.quit:
			return
		}
	}
}

// exec runs fn, resolving a panic to zero so the queue never stalls.
func (r *Runtime) exec(fn func() int) (n int) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("tracker job panicked", zap.Any("panic", p))
			n = 0
		}
	}()
	return fn()
}

// submit enqueues fn and waits for its result.
func (r *Runtime) submit(ctx context.Context, fn func() int) (int, error) {
	j := job{run: fn, result: make(chan int, 1)}
	select {
	case r.jobs <- j:
	case <-r.quit:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case n := <-j.result:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Accrue enqueues an accrual of focused and audible time up to now and returns the
// number of seconds it added. With forceSave the live bucket is persisted right away.
func (r *Runtime) Accrue(ctx context.Context, now time.Time, forceSave bool) (int, error) {
	return r.submit(ctx, func() int {
		return r.accrue(now, forceSave)
	})
}

// Flush accrues pending time, then persists and detaches the live bucket along with
// any bucket whose earlier write failed.
func (r *Runtime) Flush(ctx context.Context) error {
	_, err := r.submit(ctx, func() int {
		n := r.accrue(r.now(), true)
		r.flushAll()
		return n
	})
	return err
}

// State returns a copy of the live session state.
func (r *Runtime) State(ctx context.Context) (schema.SessionState, error) {
	var out schema.SessionState
	_, err := r.submit(ctx, func() int {
		out = cloneState(r.state)
		return 0
	})
	if err != nil {
		return schema.SessionState{}, err
	}
	return out, nil
}

// LiveBucket returns a copy of the unflushed bucket, or nil when there is none.
func (r *Runtime) LiveBucket(ctx context.Context) (*schema.Bucket, error) {
	var out *schema.Bucket
	_, err := r.submit(ctx, func() int {
		if r.live != nil {
			b := *r.live
			out = &b
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
