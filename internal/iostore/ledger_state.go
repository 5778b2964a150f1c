package iostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var stateColumns = []string{"state_key", "state_value", "updated_at"}

// GetState returns the value stored under key, or nil when absent.
func (s *LedgerStoreImpl) GetState(ctx context.Context, key string) ([]byte, error) {
	if s.disabled() {
		return nil, nil
	}
	var value []byte
	query := s.selectQuery(stateTable, stateColumns[1:2], "WHERE state_key = "+s.ph(1))
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state %s: %w", key, err)
	}
	return value, nil
}

// SetState inserts or replaces the value stored under key.
func (s *LedgerStoreImpl) SetState(ctx context.Context, key string, value []byte) error {
	if s.disabled() {
		return nil
	}
	query := upsertQuery(s.backend, stateTable, stateColumns, []string{"state_key"})
	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save state %s: %w", key, err)
	}
	return nil
}
