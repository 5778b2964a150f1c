// Package garmin parses Garmin Connect daily heart-rate and activity exports.
package garmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/schema"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// heartRateFile mirrors the daily heart-rate JSON.
type heartRateFile struct {
	CalendarDate     string       `json:"calendarDate"`
	RestingHeartRate *float64     `json:"restingHeartRate"`
	MinHeartRate     *float64     `json:"minHeartRate"`
	MaxHeartRate     *float64     `json:"maxHeartRate"`
	HeartRateValues  [][]*float64 `json:"heartRateValues"`
}

// activity mirrors one entry of the activity list.
type activity struct {
	ActivityName    string   `json:"activityName"`
	StartTimeLocal  string   `json:"startTimeLocal"`
	StartTimeGMT    string   `json:"startTimeGMT"`
	Duration        *float64 `json:"duration"`
	ElapsedDuration *float64 `json:"elapsedDuration"`
}

// activitiesFile is the wrapped activity export; a bare list is accepted too.
type activitiesFile struct {
	CalendarDate string     `json:"calendarDate"`
	Activities   []activity `json:"activities"`
}

// clean strips a UTF-8 byte order mark and surrounding whitespace.
func clean(data []byte) []byte {
	return bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
}

// ParseHeartRate decodes a daily heart-rate export. Samples without a timestamp or
// reading are dropped. The day is calendarDate, or else the local date of the first sample.
func ParseHeartRate(data []byte, loc *time.Location) (schema.HeartRateDay, error) {
	var raw heartRateFile
	if err := json.Unmarshal(clean(data), &raw); err != nil {
		return schema.HeartRateDay{}, fmt.Errorf("invalid heart rate JSON: %w", err)
	}

	day := schema.HeartRateDay{
		Date:      raw.CalendarDate,
		RestingHR: raw.RestingHeartRate,
		MinHR:     raw.MinHeartRate,
		MaxHR:     raw.MaxHeartRate,
		Samples:   []schema.HRSample{},
	}
	for _, pair := range raw.HeartRateValues {
		if len(pair) < 2 || pair[0] == nil || *pair[0] <= 0 || pair[1] == nil {
			continue
		}
		day.Samples = append(day.Samples, schema.HRSample{TS: int64(*pair[0]), BPM: *pair[1]})
	}

	if day.Date == "" {
		if len(day.Samples) == 0 {
			return schema.HeartRateDay{}, fmt.Errorf("heart rate export has neither calendarDate nor samples")
		}
		day.Date = time.UnixMilli(day.Samples[0].TS).In(loc).Format(contract.DateFormat)
	}
	if _, err := time.Parse(contract.DateFormat, day.Date); err != nil {
		return schema.HeartRateDay{}, fmt.Errorf("invalid calendarDate %q: %w", day.Date, err)
	}
	return day, nil
}

// ParseActivities decodes an activity export, either {"calendarDate", "activities"}
// or a bare list. The returned date is empty for a bare list.
func ParseActivities(data []byte) (string, []schema.PhysicalActivity, error) {
	data = clean(data)

	var wrapped activitiesFile
	var list []activity
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &list); err != nil {
			return "", nil, fmt.Errorf("invalid activities JSON: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return "", nil, fmt.Errorf("invalid activities JSON: %w", err)
		}
		list = wrapped.Activities
	}

	out := make([]schema.PhysicalActivity, 0, len(list))
	for _, a := range list {
		start := a.StartTimeLocal
		if start == "" {
			start = a.StartTimeGMT
		}
		var duration float64
		switch {
		case a.Duration != nil:
			duration = *a.Duration
		case a.ElapsedDuration != nil:
			duration = *a.ElapsedDuration
		}
		out = append(out, schema.PhysicalActivity{
			Name:            a.ActivityName,
			StartTimeLocal:  start,
			DurationSeconds: duration,
		})
	}
	return wrapped.CalendarDate, out, nil
}

// ImportResult summarizes an import.
type ImportResult struct {
	Date       string
	Samples    int
	Activities int
}

// Import reads a heart-rate export and an optional activities export and stores them.
// Activities are filed under the heart-rate day unless their file names another date.
func Import(ctx context.Context, store contract.BiometricStore, hrPath, activitiesPath string, loc *time.Location) (ImportResult, error) {
	var result ImportResult

	data, err := os.ReadFile(hrPath)
	if err != nil {
		return result, fmt.Errorf("failed to read heart rate file: %w", err)
	}
	day, err := ParseHeartRate(data, loc)
	if err != nil {
		return result, err
	}
	if err := store.PutHeartRate(ctx, day); err != nil {
		return result, err
	}
	result.Date = day.Date
	result.Samples = len(day.Samples)

	if activitiesPath == "" {
		return result, nil
	}
	data, err = os.ReadFile(activitiesPath)
	if err != nil {
		return result, fmt.Errorf("failed to read activities file: %w", err)
	}
	date, activities, err := ParseActivities(data)
	if err != nil {
		return result, err
	}
	if date == "" {
		date = day.Date
	}
	if err := store.PutActivities(ctx, date, activities); err != nil {
		return result, err
	}
	result.Activities = len(activities)
	return result, nil
}
