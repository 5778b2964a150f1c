package schema

import (
	"encoding/json"
	"fmt"
)

// HRSample is a single heart-rate reading.
type HRSample struct {
	TS  int64   // epoch ms
	BPM float64 // beats per minute
}

// MarshalJSON encodes the sample as a [ts, bpm] pair.
func (s HRSample) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{float64(s.TS), s.BPM})
}

// UnmarshalJSON decodes a [ts, bpm] pair.
func (s *HRSample) UnmarshalJSON(data []byte) error {
	var pair []*float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("heart rate sample must be a [ts, bpm] pair: %w", err)
	}
	if len(pair) != 2 || pair[0] == nil || pair[1] == nil {
		return fmt.Errorf("heart rate sample must be a [ts, bpm] pair")
	}
	s.TS = int64(*pair[0])
	s.BPM = *pair[1]
	return nil
}

// HeartRateDay is the biometric series for one calendar day.
type HeartRateDay struct {
	Date      string     `json:"date"`
	Samples   []HRSample `json:"heart_rate_values"`
	RestingHR *float64   `json:"resting_heart_rate,omitempty"`
	MinHR     *float64   `json:"min_heart_rate,omitempty"`
	MaxHR     *float64   `json:"max_heart_rate,omitempty"`
}

// KnownResting returns the device-reported resting rate, falling back to the day minimum.
func (d *HeartRateDay) KnownResting() *float64 {
	if d == nil {
		return nil
	}
	if d.RestingHR != nil {
		return d.RestingHR
	}
	return d.MinHR
}

// PhysicalActivity is a logged exercise period, excluded from elevation analysis.
type PhysicalActivity struct {
	Name            string  `json:"name"`
	StartTimeLocal  string  `json:"start_time_local"` // e.g. 2025-01-02 07:30:00
	DurationSeconds float64 `json:"duration_seconds"`
}
