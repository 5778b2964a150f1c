package tracker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/schema"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// memStore is an in-memory Store that can be told to fail bucket writes.
type memStore struct {
	mu       sync.Mutex
	buckets  map[string]schema.Bucket
	events   []schema.Event
	state    map[string][]byte
	failPuts int
}

var _ Store = &memStore{} // Compile-time check

func newMemStore() *memStore {
	return &memStore{buckets: map[string]schema.Bucket{}, state: map[string][]byte{}}
}

func (s *memStore) PutBucket(_ context.Context, b schema.Bucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPuts > 0 {
		s.failPuts--
		return errors.New("disk full")
	}
	s.buckets[b.Key()] = b
	return nil
}

func (s *memStore) GetBucket(_ context.Context, key string) (*schema.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *memStore) GetBucketsForDate(_ context.Context, date string) ([]schema.Bucket, error) {
	return s.GetBucketsInRange(context.Background(), date, date)
}

func (s *memStore) GetBucketsInRange(_ context.Context, startDate, endDate string) ([]schema.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []schema.Bucket{}
	for _, b := range s.buckets {
		if b.Date >= startDate && b.Date <= endDate {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (s *memStore) AppendEvent(_ context.Context, e schema.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *memStore) GetEventsForDate(_ context.Context, date string) ([]schema.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []schema.Event{}
	for _, e := range s.events {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) ClearEventsBefore(_ context.Context, date string) (int64, error) {
	return 0, nil
}

func (s *memStore) GetState(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[key], nil
}

func (s *memStore) SetState(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = value
	return nil
}

func (s *memStore) bucket(key string) (schema.Bucket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	return b, ok
}

func (s *memStore) stateValue(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[key]
}

func (s *memStore) allEvents() []schema.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.Event(nil), s.events...)
}

// newHost returns a host mock with no audible tabs and the given tabs resolvable by id.
func newHost(tabs ...schema.Tab) *contract.MockHostLookup {
	host := &contract.MockHostLookup{}
	host.On("AudibleTabs", mock.Anything).Return([]schema.Tab(nil), nil).Maybe()
	for _, tab := range tabs {
		host.On("GetTab", mock.Anything, tab.ID).Return(tab, nil).Maybe()
	}
	host.On("GetTab", mock.Anything, mock.Anything).Return(schema.Tab{}, errors.New("no such tab")).Maybe()
	host.On("ActiveTab", mock.Anything).Return(schema.Tab{}, errors.New("no active tab")).Maybe()
	return host
}

// startRuntime starts a runtime on a fake clock set to t0. The scheduler is disabled.
func startRuntime(t *testing.T, store Store, host contract.HostLookup) (*Runtime, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: t0}
	r := New(contract.TrackerConfig{LookupTimeout: 50 * time.Millisecond, PersistRetries: 1}, store, host,
		WithClock(clock.Now),
		WithLocation(time.UTC),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	require.NoError(t, r.Start(context.Background()))
	return r, clock
}

func closeRuntime(t *testing.T, r *Runtime) {
	t.Helper()
	require.NoError(t, r.Close(context.Background()))
}
