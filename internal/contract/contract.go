// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"errors"

	"github.com/huangsam/stimstrain/schema"
)

// ErrStoreDisabled is returned by operations that need a real backend when the none backend is active.
var ErrStoreDisabled = errors.New("store is disabled (backend none)")

// HostLookup defines the read-only queries the runtime makes against the host.
// Every call is best-effort: callers bound it with a context deadline and treat
// an error as "no information available".
type HostLookup interface {
	// GetTab resolves a tab by id.
	GetTab(ctx context.Context, tabID int) (schema.Tab, error)

	// ActiveTab returns the active tab of the focused window.
	ActiveTab(ctx context.Context) (schema.Tab, error)

	// AudibleTabs returns every tab currently producing sound.
	AudibleTabs(ctx context.Context) ([]schema.Tab, error)
}

// StoreManager defines the interface for managing the record store.
// This allows the store layer to be mocked for testing.
type StoreManager interface {
	GetLedgerStore() LedgerStore
}

// BucketStore persists per-minute activity buckets.
type BucketStore interface {
	// PutBucket upserts a bucket keyed by date and minute.
	PutBucket(ctx context.Context, b schema.Bucket) error

	// GetBucket returns the bucket for key, or nil when absent.
	GetBucket(ctx context.Context, key string) (*schema.Bucket, error)

	// GetBucketsForDate returns the buckets of a day ordered by minute.
	GetBucketsForDate(ctx context.Context, date string) ([]schema.Bucket, error)

	// GetBucketsInRange returns the buckets between two dates (inclusive) ordered by date and minute.
	GetBucketsInRange(ctx context.Context, startDate, endDate string) ([]schema.Bucket, error)
}

// EventStore is the append-only raw event log.
type EventStore interface {
	AppendEvent(ctx context.Context, e schema.Event) error

	// GetEventsForDate returns the events of a day ascending by time.
	GetEventsForDate(ctx context.Context, date string) ([]schema.Event, error)

	// ClearEventsBefore deletes events older than date and returns the number removed.
	ClearEventsBefore(ctx context.Context, date string) (int64, error)
}

// BiometricStore persists imported heart-rate days and physical activities.
type BiometricStore interface {
	PutHeartRate(ctx context.Context, day schema.HeartRateDay) error
	GetHeartRate(ctx context.Context, date string) (*schema.HeartRateDay, error)
	PutActivities(ctx context.Context, date string, activities []schema.PhysicalActivity) error
	GetActivities(ctx context.Context, date string) ([]schema.PhysicalActivity, error)
}

// StateStore is a small key/value store for session snapshots and per-day markers.
type StateStore interface {
	// GetState returns the value for key, or nil when absent.
	GetState(ctx context.Context, key string) ([]byte, error)
	SetState(ctx context.Context, key string, value []byte) error
}

// LedgerStore bundles every store the application uses behind one connection.
type LedgerStore interface {
	BucketStore
	EventStore
	BiometricStore
	StateStore

	// GetStatus returns status information about the store.
	GetStatus() (schema.StoreStatus, error)

	// Close closes the underlying connection.
	Close() error
}
