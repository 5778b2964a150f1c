package schema

import "time"

// StimulationType names a per-type stimulation group used in HR breakdowns.
type StimulationType string

// All stimulation types.
const (
	StimShortForm    StimulationType = "shortForm"
	StimMusic        StimulationType = "music"
	StimYouTubeWatch StimulationType = "ytWatch"
	StimFeed         StimulationType = "feed"
)

// StimulationTypes is the display order of stimulation types.
var StimulationTypes = []StimulationType{StimShortForm, StimMusic, StimYouTubeWatch, StimFeed}

// BreakdownEntry is one named strain contributor.
type BreakdownEntry struct {
	Key   BreakdownKey `json:"key"`
	Value float64      `json:"value"`
}

// StrainResult is the scored summary of a set of buckets.
type StrainResult struct {
	Score        int              `json:"score"`
	Breakdown    []BreakdownEntry `json:"breakdown"`
	FocusMinutes float64          `json:"focus_minutes"`
	LongestBlock float64          `json:"longest_block"`
}

// StimulatedInterval is a merged stimulation episode.
// StartMinute and EndMinute are minute indices of the day; EndMinute is exclusive
// and includes the decay tail. LastStimulatedMinute is the final flagged minute.
type StimulatedInterval struct {
	StartHourFrac        float64 `json:"start_hour_frac"`
	EndHourFrac          float64 `json:"end_hour_frac"`
	Intensity            float64 `json:"intensity"`
	StartMinute          int     `json:"start_minute"`
	EndMinute            int     `json:"end_minute"`
	LastStimulatedMinute int     `json:"last_stimulated_minute"`
}

// Segment is a span of the day expressed in fractional hours.
type Segment struct {
	StartHourFrac float64 `json:"start_hour_frac"`
	EndHourFrac   float64 `json:"end_hour_frac"`
}

// SampleCounts splits in-window samples by stimulation membership.
type SampleCounts struct {
	Stimulated int `json:"stimulated"`
	Baseline   int `json:"baseline"`
}

// TypeHRStats is the heart-rate summary for one stimulation type.
type TypeHRStats struct {
	HRMean      *float64 `json:"hr_mean"`
	HRBaseline  *float64 `json:"hr_baseline"`
	Delta       *float64 `json:"delta"`
	SampleCount int      `json:"sample_count"`
}

// HRCorrelation holds the stimulation vs heart-rate statistics for a day.
// Nil pointers mean insufficient data.
type HRCorrelation struct {
	MeanStimulated   *float64                        `json:"hr_mean_stimulated"`
	MeanBaseline     *float64                        `json:"hr_mean_baseline"`
	RestingBaseline  *float64                        `json:"hr_resting_baseline"`
	Correlation      *float64                        `json:"correlation"`
	Elevation        *float64                        `json:"elevation"`
	Elevated         bool                            `json:"elevated"`
	ElevatedSegments []Segment                       `json:"hr_elevated_segments"`
	SampleCounts     SampleCounts                    `json:"sample_counts"`
	Intervals        []StimulatedInterval            `json:"stimulated_intervals"`
	ByType           map[StimulationType]TypeHRStats `json:"by_type,omitempty"`
}

// HourSlot is one hour of the day timeline.
type HourSlot struct {
	Hour    int     `json:"hour"`
	Strain  float64 `json:"strain"`
	Music   bool    `json:"music"`
	YouTube bool    `json:"youtube"`
	Shorts  bool    `json:"shorts"`
	Reels   bool    `json:"reels"`
	TikTok  bool    `json:"tiktok"`
	Feed    bool    `json:"feed"`
}

// TrendPoint is one day of the multi-day trend.
type TrendPoint struct {
	Date   string  `json:"date"`
	Strain int     `json:"strain"`
	Focus  float64 `json:"focus"`
}

// DayReport is the complete summary of one tracked day.
type DayReport struct {
	Date          string         `json:"date"`
	Strain        StrainResult   `json:"strain"`
	TotalSwitches int            `json:"total_switches"`
	SessionStart  *int64         `json:"session_start,omitempty"`
	BucketCount   int            `json:"bucket_count"`
	Hourly        []HourSlot     `json:"hourly"`
	Trend         []TrendPoint   `json:"trend"`
	HeartRate     *HRCorrelation `json:"heart_rate,omitempty"`
}

// ExportPayload is the enriched bucket dump for a day.
type ExportPayload struct {
	Date    string   `json:"date"`
	Buckets []Bucket `json:"buckets"`
}

// StoreStatus represents the status of the record store.
type StoreStatus struct {
	Backend          string           `json:"backend"`
	Connected        bool             `json:"connected"`
	TableRows        map[string]int64 `json:"table_rows"`
	OldestBucketDate string           `json:"oldest_bucket_date"`
	NewestBucketDate string           `json:"newest_bucket_date"`
	LastWriteTime    time.Time        `json:"last_write_time"`
	TableSizeBytes   int64            `json:"table_size_bytes"`
}

// CorrelationReport pairs a day with its heart-rate correlation.
type CorrelationReport struct {
	Date       string             `json:"date"`
	Activities []PhysicalActivity `json:"activities,omitempty"`
	HeartRate  HRCorrelation      `json:"heart_rate"`
}
