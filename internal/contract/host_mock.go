package contract

import (
	"context"

	"github.com/huangsam/stimstrain/schema"
	"github.com/stretchr/testify/mock"
)

// MockHostLookup is a mock implementation of HostLookup for testing.
type MockHostLookup struct {
	mock.Mock
}

var _ HostLookup = &MockHostLookup{} // Compile-time check

// GetTab implements the HostLookup interface.
func (m *MockHostLookup) GetTab(ctx context.Context, tabID int) (schema.Tab, error) {
	args := m.Called(ctx, tabID)
	return args.Get(0).(schema.Tab), args.Error(1)
}

// ActiveTab implements the HostLookup interface.
func (m *MockHostLookup) ActiveTab(ctx context.Context) (schema.Tab, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.Tab), args.Error(1)
}

// AudibleTabs implements the HostLookup interface.
func (m *MockHostLookup) AudibleTabs(ctx context.Context) ([]schema.Tab, error) {
	args := m.Called(ctx)
	tabs, _ := args.Get(0).([]schema.Tab)
	return tabs, args.Error(1)
}
