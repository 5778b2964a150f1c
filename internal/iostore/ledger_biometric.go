package iostore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/stimstrain/schema"
)

var heartRateColumns = []string{"hr_date", "samples", "resting_hr", "min_hr", "max_hr", "imported_at"}

var activityColumns = []string{"activity_date", "seq", "activity_name", "start_time_local", "duration_seconds"}

// nullable converts an optional float into a driver value.
func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// fromNull converts a scanned nullable float back into an optional value.
func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// PutHeartRate upserts the heart-rate series of a day.
func (s *LedgerStoreImpl) PutHeartRate(ctx context.Context, day schema.HeartRateDay) error {
	if s.disabled() {
		return nil
	}
	samples, err := json.Marshal(day.Samples)
	if err != nil {
		return fmt.Errorf("failed to encode heart rate samples: %w", err)
	}
	query := upsertQuery(s.backend, heartRateTable, heartRateColumns, []string{"hr_date"})
	args := []any{day.Date, string(samples), nullable(day.RestingHR), nullable(day.MinHR), nullable(day.MaxHR), time.Now().Unix()}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save heart rate for %s: %w", day.Date, err)
	}
	return nil
}

// GetHeartRate returns the heart-rate series of a day, or nil when none was imported.
func (s *LedgerStoreImpl) GetHeartRate(ctx context.Context, date string) (*schema.HeartRateDay, error) {
	if s.disabled() {
		return nil, nil
	}
	query := s.selectQuery(heartRateTable, heartRateColumns[:5], "WHERE hr_date = "+s.ph(1))
	var day schema.HeartRateDay
	var samples string
	var resting, minHR, maxHR sql.NullFloat64
	err := s.db.QueryRowContext(ctx, query, date).Scan(&day.Date, &samples, &resting, &minHR, &maxHR)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load heart rate for %s: %w", date, err)
	}
	if err := json.Unmarshal([]byte(samples), &day.Samples); err != nil {
		return nil, fmt.Errorf("failed to decode heart rate samples for %s: %w", date, err)
	}
	day.RestingHR = fromNull(resting)
	day.MinHR = fromNull(minHR)
	day.MaxHR = fromNull(maxHR)
	return &day, nil
}

// PutActivities replaces the physical activities logged for a day.
func (s *LedgerStoreImpl) PutActivities(ctx context.Context, date string, activities []schema.PhysicalActivity) error {
	if s.disabled() {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	del := fmt.Sprintf("DELETE FROM %s WHERE activity_date = %s", quoteTableName(activitiesTable, s.backend), s.ph(1))
	if _, err := tx.ExecContext(ctx, del, date); err != nil {
		return fmt.Errorf("failed to clear activities for %s: %w", date, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteTableName(activitiesTable, s.backend), joinColumns(activityColumns), placeholders(s.backend, 1, len(activityColumns)))
	for i, a := range activities {
		if _, err := tx.ExecContext(ctx, insert, date, i, a.Name, a.StartTimeLocal, a.DurationSeconds); err != nil {
			return fmt.Errorf("failed to save activity %q: %w", a.Name, err)
		}
	}
	return tx.Commit()
}

// GetActivities returns the physical activities logged for a day in insertion order.
func (s *LedgerStoreImpl) GetActivities(ctx context.Context, date string) ([]schema.PhysicalActivity, error) {
	activities := []schema.PhysicalActivity{}
	if s.disabled() {
		return activities, nil
	}
	query := s.selectQuery(activitiesTable, activityColumns[2:], "WHERE activity_date = "+s.ph(1)+" ORDER BY seq")
	rows, err := s.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var a schema.PhysicalActivity
		if err := rows.Scan(&a.Name, &a.StartTimeLocal, &a.DurationSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
