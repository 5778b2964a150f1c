package iostore

import (
	"context"

	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetLedgerStore implements the StoreManager interface.
func (m *MockStoreManager) GetLedgerStore() contract.LedgerStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.LedgerStore)
	return store
}

// MockLedgerStore is a mock implementation of LedgerStore for testing.
type MockLedgerStore struct {
	mock.Mock
}

var _ contract.LedgerStore = &MockLedgerStore{} // Compile-time check

// PutBucket implements the BucketStore interface.
func (m *MockLedgerStore) PutBucket(ctx context.Context, b schema.Bucket) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

// GetBucket implements the BucketStore interface.
func (m *MockLedgerStore) GetBucket(ctx context.Context, key string) (*schema.Bucket, error) {
	args := m.Called(ctx, key)
	b, _ := args.Get(0).(*schema.Bucket)
	return b, args.Error(1)
}

// GetBucketsForDate implements the BucketStore interface.
func (m *MockLedgerStore) GetBucketsForDate(ctx context.Context, date string) ([]schema.Bucket, error) {
	args := m.Called(ctx, date)
	buckets, _ := args.Get(0).([]schema.Bucket)
	return buckets, args.Error(1)
}

// GetBucketsInRange implements the BucketStore interface.
func (m *MockLedgerStore) GetBucketsInRange(ctx context.Context, startDate, endDate string) ([]schema.Bucket, error) {
	args := m.Called(ctx, startDate, endDate)
	buckets, _ := args.Get(0).([]schema.Bucket)
	return buckets, args.Error(1)
}

// AppendEvent implements the EventStore interface.
func (m *MockLedgerStore) AppendEvent(ctx context.Context, e schema.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

// GetEventsForDate implements the EventStore interface.
func (m *MockLedgerStore) GetEventsForDate(ctx context.Context, date string) ([]schema.Event, error) {
	args := m.Called(ctx, date)
	events, _ := args.Get(0).([]schema.Event)
	return events, args.Error(1)
}

// ClearEventsBefore implements the EventStore interface.
func (m *MockLedgerStore) ClearEventsBefore(ctx context.Context, date string) (int64, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(int64), args.Error(1)
}

// PutHeartRate implements the BiometricStore interface.
func (m *MockLedgerStore) PutHeartRate(ctx context.Context, day schema.HeartRateDay) error {
	args := m.Called(ctx, day)
	return args.Error(0)
}

// GetHeartRate implements the BiometricStore interface.
func (m *MockLedgerStore) GetHeartRate(ctx context.Context, date string) (*schema.HeartRateDay, error) {
	args := m.Called(ctx, date)
	day, _ := args.Get(0).(*schema.HeartRateDay)
	return day, args.Error(1)
}

// PutActivities implements the BiometricStore interface.
func (m *MockLedgerStore) PutActivities(ctx context.Context, date string, activities []schema.PhysicalActivity) error {
	args := m.Called(ctx, date, activities)
	return args.Error(0)
}

// GetActivities implements the BiometricStore interface.
func (m *MockLedgerStore) GetActivities(ctx context.Context, date string) ([]schema.PhysicalActivity, error) {
	args := m.Called(ctx, date)
	activities, _ := args.Get(0).([]schema.PhysicalActivity)
	return activities, args.Error(1)
}

// GetState implements the StateStore interface.
func (m *MockLedgerStore) GetState(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	value, _ := args.Get(0).([]byte)
	return value, args.Error(1)
}

// SetState implements the StateStore interface.
func (m *MockLedgerStore) SetState(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// GetStatus implements the LedgerStore interface.
func (m *MockLedgerStore) GetStatus() (schema.StoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the LedgerStore interface.
func (m *MockLedgerStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
