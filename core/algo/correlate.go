package algo

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"time"

	"github.com/huangsam/stimstrain/schema"
)

// Night window used to estimate a resting heart rate from sleep samples.
const (
	nightStartHour = 1
	nightEndHour   = 6

	minNightSamples       = 5
	minCorrelationSamples = 10
	fallbackRestingBPM    = 60.0
	defaultIntensity      = 0.5
)

// Per-type stimulation thresholds.
const (
	typeMinSeconds  = 15
	typeMinFeedMins = 0.25
	msPerHour       = float64(time.Hour / time.Millisecond)
	minutesInDay    = 24 * 60
)

// CorrelationConfig holds the tunable thresholds of the correlation engine.
type CorrelationConfig struct {
	StimulationStrainThreshold  float64 `json:"stimulation_strain_threshold"`
	ShortFormCountsAsStimulated bool    `json:"short_form_counts_as_stimulated"`
	StimulationMinSeconds       int     `json:"stimulation_min_seconds"`
	LagMinutes                  int     `json:"hr_lag_minutes"`
	DecayMinutes                int     `json:"hr_decay_minutes"`
	ElevatedBPM                 float64 `json:"elevated_hr_threshold_bpm"`
	ElevatedPct                 float64 `json:"elevated_hr_threshold_pct"`
	UseAbsoluteElevation        bool    `json:"use_absolute_elevation"`
	GrowthWindowMinutes         int     `json:"hr_growth_window_minutes"`
	GrowthMinBPM                float64 `json:"hr_growth_min_bpm"`
	GrowthStartHour             int     `json:"hr_growth_start_hour"`
	GrowthEndHour               int     `json:"hr_growth_end_hour"`
	StartHour                   float64 `json:"start_hour"` // analysis window start
	EndHour                     float64 `json:"end_hour"`   // analysis window end
}

// DefaultCorrelationConfig returns the stock thresholds.
func DefaultCorrelationConfig() CorrelationConfig {
	return CorrelationConfig{
		StimulationStrainThreshold:  0.5,
		ShortFormCountsAsStimulated: true,
		StimulationMinSeconds:       15,
		LagMinutes:                  1,
		DecayMinutes:                2,
		ElevatedBPM:                 3,
		ElevatedPct:                 0.05,
		UseAbsoluteElevation:        true,
		GrowthWindowMinutes:         2,
		GrowthMinBPM:                3,
		GrowthStartHour:             6,
		GrowthEndHour:               23,
		StartHour:                   0,
		EndHour:                     24,
	}
}

// Validate checks that thresholds are usable.
func (c CorrelationConfig) Validate() error {
	switch {
	case c.StimulationStrainThreshold < 0:
		return fmt.Errorf("stimulation strain threshold must be non-negative (received %v)", c.StimulationStrainThreshold)
	case c.StimulationMinSeconds < 0:
		return fmt.Errorf("stimulation min seconds must be non-negative (received %d)", c.StimulationMinSeconds)
	case c.LagMinutes < 0:
		return fmt.Errorf("lag minutes must be non-negative (received %d)", c.LagMinutes)
	case c.DecayMinutes < 0:
		return fmt.Errorf("decay minutes must be non-negative (received %d)", c.DecayMinutes)
	case c.GrowthWindowMinutes < 0:
		return fmt.Errorf("growth window minutes must be non-negative (received %d)", c.GrowthWindowMinutes)
	case c.GrowthMinBPM < 0 || c.ElevatedBPM < 0 || c.ElevatedPct < 0:
		return fmt.Errorf("heart rate thresholds must be non-negative")
	case c.GrowthStartHour < 0 || c.GrowthEndHour > 23 || c.GrowthStartHour > c.GrowthEndHour:
		return fmt.Errorf("growth hours must satisfy 0 <= start <= end <= 23 (received %d-%d)", c.GrowthStartHour, c.GrowthEndHour)
	case c.StartHour < 0 || c.EndHour > 24 || c.StartHour >= c.EndHour:
		return fmt.Errorf("analysis window must satisfy 0 <= start < end <= 24 (received %v-%v)", c.StartHour, c.EndHour)
	}
	return nil
}

// windowMinutes returns the first and last minute index of the analysis window.
func (c CorrelationConfig) windowMinutes() (int, int) {
	return int(math.Floor(c.StartHour * 60)), int(math.Floor(c.EndHour * 60))
}

// bucketsByMinute groups buckets by their minute index.
func bucketsByMinute(buckets []schema.Bucket) map[int][]schema.Bucket {
	out := make(map[int][]schema.Bucket, len(buckets))
	for _, b := range buckets {
		m := b.MinuteOfDay()
		if m < 0 {
			continue
		}
		out[m] = append(out[m], b)
	}
	return out
}

// StimulatedMinutes flags minutes in the analysis window as stimulated and returns
// their intensity. A minute is stimulated when its raw strain reaches the threshold,
// or when a bucket shows short-form viewing or enough music/video seconds.
func StimulatedMinutes(rawByMinute map[int]float64, buckets []schema.Bucket, cfg CorrelationConfig) map[int]float64 {
	start, end := cfg.windowMinutes()
	byMinute := bucketsByMinute(buckets)
	out := make(map[int]float64)
	for m := start; m <= end; m++ {
		raw := rawByMinute[m]
		stim := raw >= cfg.StimulationStrainThreshold
		if !stim {
			for _, b := range byMinute[m] {
				if cfg.ShortFormCountsAsStimulated && b.ShortFormCount() > 0 {
					stim = true
					break
				}
				if b.StimulationSeconds+b.YouTubeWatchSeconds >= cfg.StimulationMinSeconds {
					stim = true
					break
				}
			}
		}
		if !stim {
			continue
		}
		if raw > 0 {
			out[m] = raw
		} else {
			out[m] = defaultIntensity
		}
	}
	return out
}

// MergeStimulatedMinutes merges flagged minutes into intervals. Each flagged minute is
// shifted forward by the lag, and an interval stays open until more than decay minutes
// pass without a flagged minute. Intervals are sorted and non-overlapping.
func MergeStimulatedMinutes(flags map[int]float64, cfg CorrelationConfig) []schema.StimulatedInterval {
	start, end := cfg.windowMinutes()
	lag := max(0, cfg.LagMinutes)
	decay := max(0, cfg.DecayMinutes)

	var intervals []schema.StimulatedInterval
	var cur schema.StimulatedInterval
	open := false
	lastFlagged := 0

	closeAt := func(m int) {
		cur.EndMinute = m
		cur.StartHourFrac = float64(cur.StartMinute) / 60
		cur.EndHourFrac = math.Min(cfg.EndHour, float64(m)/60)
		if cur.EndHourFrac > cur.StartHourFrac {
			intervals = append(intervals, cur)
		}
		open = false
	}

	for m := start; m <= end+lag+decay+1; m++ {
		src := m - lag
		intensity, flagged := 0.0, false
		if src >= start && src <= end {
			intensity, flagged = flags[src]
			flagged = flagged && intensity > 0
		}
		switch {
		case flagged:
			if !open {
				open = true
				cur = schema.StimulatedInterval{StartMinute: m}
			}
			lastFlagged = m
			cur.LastStimulatedMinute = m
			cur.Intensity = math.Max(cur.Intensity, intensity)
		case open && m-lastFlagged > decay:
			closeAt(m)
		}
	}
	if open {
		closeAt(end + lag + decay + 2)
	}
	return intervals
}

// BuildStimulatedIntervals runs both stimulation stages over a day's buckets.
func BuildStimulatedIntervals(buckets []schema.Bucket, cfg CorrelationConfig) []schema.StimulatedInterval {
	return MergeStimulatedMinutes(StimulatedMinutes(RawStrainByMinute(buckets), buckets, cfg), cfg)
}

// dayStart returns the local midnight of date in loc.
func dayStart(date string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", date, loc)
}

// RestingBaselineFromNight estimates resting heart rate as the 10th percentile of
// plausible samples between 01:00 and 06:00. It returns nil with fewer than 5 samples.
func RestingBaselineFromNight(samples []schema.HRSample, date string, loc *time.Location) *float64 {
	start, err := dayStart(date, loc)
	if err != nil {
		return nil
	}
	from := start.Add(nightStartHour * time.Hour).UnixMilli()
	to := start.Add(nightEndHour * time.Hour).UnixMilli()
	var hrs []float64
	for _, s := range samples {
		if s.TS >= from && s.TS < to && s.BPM > 0 && s.BPM < 200 {
			hrs = append(hrs, s.BPM)
		}
	}
	if len(hrs) < minNightSamples {
		return nil
	}
	sort.Float64s(hrs)
	p10 := hrs[int(math.Floor(float64(len(hrs))*0.1))]
	return &p10
}

var activityClock = regexp.MustCompile(`[T ](\d{2}):(\d{2})`)

// activityLayouts are the accepted startTimeLocal formats.
var activityLayouts = []string{
	"2006-01-02T15:04:05.0",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ActivityMinuteSet returns the minute indices covered by activities starting on date.
func ActivityMinuteSet(activities []schema.PhysicalActivity, date string, loc *time.Location) map[int]struct{} {
	set := make(map[int]struct{})
	start, err := dayStart(date, loc)
	if err != nil {
		return set
	}
	for _, a := range activities {
		if a.DurationSeconds <= 0 || len(a.StartTimeLocal) < 10 || a.StartTimeLocal[:10] != date {
			continue
		}
		if !activityClock.MatchString(a.StartTimeLocal) {
			continue
		}
		var began time.Time
		for _, layout := range activityLayouts {
			if t, err := time.ParseInLocation(layout, a.StartTimeLocal, loc); err == nil {
				began = t
				break
			}
		}
		if began.IsZero() {
			continue
		}
		offset := began.Sub(start)
		first := int(offset / time.Minute)
		last := int((offset + time.Duration(a.DurationSeconds*float64(time.Second))) / time.Minute)
		for m := max(0, first); m <= last && m < minutesInDay; m++ {
			set[m] = struct{}{}
		}
	}
	return set
}

// CorrelationInput is the biometric side of a correlation run.
type CorrelationInput struct {
	Samples         []schema.HRSample
	Date            string
	Location        *time.Location
	RestingBaseline *float64         // device-reported resting rate, if known
	ActivityMinutes map[int]struct{} // minutes excluded from growth detection
}

// timedSample is an in-window sample positioned in fractional hours.
type timedSample struct {
	hourFrac   float64
	bpm        float64
	stimulated bool
}

// intervalMinuteSet expands intervals into the minutes they cover.
func intervalMinuteSet(intervals []schema.StimulatedInterval) map[int]struct{} {
	set := make(map[int]struct{})
	for _, iv := range intervals {
		for m := iv.StartMinute; m < iv.EndMinute; m++ {
			set[m] = struct{}{}
		}
	}
	return set
}

// mean returns the arithmetic mean, or nil for an empty slice.
func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}

// pearson returns the correlation of xs and ys, or 0 when either has no variance.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n
	var num, denX, denY float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		num += dx * dy
		denX += dx * dx
		denY += dy * dy
	}
	den := math.Sqrt(denX * denY)
	if den <= 1e-10 {
		return 0
	}
	return num / den
}

// ComputeHRCorrelation compares heart rate inside and outside stimulated intervals.
// An empty or out-of-window series yields nil statistics rather than an error.
func ComputeHRCorrelation(in CorrelationInput, intervals []schema.StimulatedInterval, cfg CorrelationConfig) schema.HRCorrelation {
	result := schema.HRCorrelation{
		ElevatedSegments: []schema.Segment{},
		Intervals:        intervals,
	}
	if result.Intervals == nil {
		result.Intervals = []schema.StimulatedInterval{}
	}
	if len(in.Samples) == 0 {
		return result
	}
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	start, err := dayStart(in.Date, loc)
	if err != nil {
		return result
	}
	dayFrom := start.UnixMilli()
	dayTo := start.AddDate(0, 0, 1).UnixMilli() - 1

	stimSet := intervalMinuteSet(intervals)
	var timed []timedSample
	var stimHR, baseHR []float64
	for _, s := range in.Samples {
		if s.TS < dayFrom || s.TS > dayTo {
			continue
		}
		hourFrac := float64(s.TS-dayFrom) / msPerHour
		if hourFrac < cfg.StartHour || hourFrac > cfg.EndHour {
			continue
		}
		_, stim := stimSet[int(math.Floor(hourFrac*60))]
		timed = append(timed, timedSample{hourFrac: hourFrac, bpm: s.BPM, stimulated: stim})
		if stim {
			stimHR = append(stimHR, s.BPM)
		} else {
			baseHR = append(baseHR, s.BPM)
		}
	}
	sort.SliceStable(timed, func(i, j int) bool { return timed[i].hourFrac < timed[j].hourFrac })

	result.MeanStimulated = mean(stimHR)
	result.MeanBaseline = mean(baseHR)
	result.SampleCounts = schema.SampleCounts{Stimulated: len(stimHR), Baseline: len(baseHR)}
	result.RestingBaseline = restingBaseline(in, result.MeanBaseline, loc)

	if len(timed) >= minCorrelationSamples {
		xs := make([]float64, len(timed))
		ys := make([]float64, len(timed))
		for i, s := range timed {
			if s.stimulated {
				xs[i] = 1
			}
			ys[i] = s.bpm
		}
		r := pearson(xs, ys)
		result.Correlation = &r
	}

	if result.MeanStimulated != nil {
		elevation := *result.MeanStimulated - *result.RestingBaseline
		result.Elevation = &elevation
		if cfg.UseAbsoluteElevation {
			result.Elevated = elevation >= cfg.ElevatedBPM
		} else {
			result.Elevated = elevation >= cfg.ElevatedPct * *result.RestingBaseline
		}
	}

	result.ElevatedSegments = growthSegments(timed, in.ActivityMinutes, cfg)
	return result
}

// restingBaseline prefers the supplied value, then the night estimate, then the baseline mean.
func restingBaseline(in CorrelationInput, baselineMean *float64, loc *time.Location) *float64 {
	if in.RestingBaseline != nil {
		v := *in.RestingBaseline
		return &v
	}
	if night := RestingBaselineFromNight(in.Samples, in.Date, loc); night != nil {
		return night
	}
	if baselineMean != nil {
		v := *baselineMean
		return &v
	}
	v := fallbackRestingBPM
	return &v
}

// growthSegments finds runs where heart rate rises by at least GrowthMinBPM over the
// growth window while stimulated, outside activities and inside the growth hours.
func growthSegments(timed []timedSample, activity map[int]struct{}, cfg CorrelationConfig) []schema.Segment {
	segments := []schema.Segment{}
	window := max(1, int(math.Ceil(float64(cfg.GrowthWindowMinutes)/2)))
	open := false
	var segStart float64
	for i, s := range timed {
		_, inActivity := activity[int(math.Floor(s.hourFrac*60))]
		hour := int(math.Floor(s.hourFrac))
		inHours := hour >= cfg.GrowthStartHour && hour <= cfg.GrowthEndHour
		growing := s.stimulated && !inActivity && inHours && i >= window &&
			s.bpm-timed[i-window].bpm >= cfg.GrowthMinBPM
		switch {
		case growing && !open:
			open = true
			segStart = timed[i-window].hourFrac
		case !growing && open:
			segments = append(segments, schema.Segment{StartHourFrac: segStart, EndHourFrac: s.hourFrac})
			open = false
		}
	}
	if open {
		segments = append(segments, schema.Segment{StartHourFrac: segStart, EndHourFrac: timed[len(timed)-1].hourFrac})
	}
	return segments
}

// stimulationTypeMinutes assigns window minutes to per-type stimulation sets.
func stimulationTypeMinutes(buckets []schema.Bucket, cfg CorrelationConfig) map[schema.StimulationType]map[int]struct{} {
	start, end := cfg.windowMinutes()
	byType := make(map[schema.StimulationType]map[int]struct{}, len(schema.StimulationTypes))
	for _, t := range schema.StimulationTypes {
		byType[t] = make(map[int]struct{})
	}
	for m, list := range bucketsByMinute(buckets) {
		if m < start || m > end {
			continue
		}
		for _, b := range list {
			if b.ShortFormCount() > 0 {
				byType[schema.StimShortForm][m] = struct{}{}
			}
			if (b.Category == schema.CategorySpotify || b.Category == schema.CategoryMusic) && b.StimulationSeconds >= typeMinSeconds {
				byType[schema.StimMusic][m] = struct{}{}
			}
			if b.YouTubeWatchSeconds >= typeMinSeconds {
				byType[schema.StimYouTubeWatch][m] = struct{}{}
			}
			if isSocialFeed(b.Category) && float64(b.FocusedSeconds)/60 >= typeMinFeedMins {
				byType[schema.StimFeed][m] = struct{}{}
			}
		}
	}
	return byType
}

// isSocialFeed covers reddit and X pages plus the YouTube home feed.
func isSocialFeed(c schema.Category) bool {
	switch c {
	case schema.CategoryRedditFeed, schema.CategoryRedditThread,
		schema.CategoryXHome, schema.CategoryXSearch, schema.CategoryXOther, schema.CategoryXThread,
		schema.CategoryYouTubeHome:
		return true
	}
	return false
}

// hrMeanForMinutes averages in-window samples whose minute is in set.
func hrMeanForMinutes(in CorrelationInput, set map[int]struct{}, cfg CorrelationConfig, loc *time.Location) *float64 {
	if len(in.Samples) == 0 || len(set) == 0 {
		return nil
	}
	start, err := dayStart(in.Date, loc)
	if err != nil {
		return nil
	}
	from := start.UnixMilli()
	var hrs []float64
	for _, s := range in.Samples {
		hourFrac := float64(s.TS-from) / msPerHour
		if hourFrac < cfg.StartHour || hourFrac > cfg.EndHour {
			continue
		}
		if _, ok := set[int(math.Floor(hourFrac*60))]; ok {
			hrs = append(hrs, s.BPM)
		}
	}
	return mean(hrs)
}

// CorrelationByType summarizes heart rate per stimulation type against the
// unstimulated minutes of the window.
func CorrelationByType(buckets []schema.Bucket, in CorrelationInput, cfg CorrelationConfig) map[schema.StimulationType]schema.TypeHRStats {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	byType := stimulationTypeMinutes(buckets, cfg)
	start, end := cfg.windowMinutes()
	baseline := make(map[int]struct{})
	for m := start; m <= end; m++ {
		stimulated := false
		for _, set := range byType {
			if _, ok := set[m]; ok {
				stimulated = true
				break
			}
		}
		if !stimulated {
			baseline[m] = struct{}{}
		}
	}
	hrBaseline := hrMeanForMinutes(in, baseline, cfg, loc)

	out := make(map[schema.StimulationType]schema.TypeHRStats, len(byType))
	for _, t := range schema.StimulationTypes {
		set := byType[t]
		stats := schema.TypeHRStats{
			HRMean:      hrMeanForMinutes(in, set, cfg, loc),
			HRBaseline:  hrBaseline,
			SampleCount: len(set),
		}
		if stats.HRMean != nil && stats.HRBaseline != nil {
			d := *stats.HRMean - *stats.HRBaseline
			stats.Delta = &d
		}
		out[t] = stats
	}
	return out
}

// RunHRCorrelation builds intervals from buckets and correlates them with a heart-rate day.
func RunHRCorrelation(buckets []schema.Bucket, hr *schema.HeartRateDay, activities []schema.PhysicalActivity, loc *time.Location, cfg CorrelationConfig) schema.HRCorrelation {
	intervals := BuildStimulatedIntervals(buckets, cfg)
	if hr == nil {
		return ComputeHRCorrelation(CorrelationInput{}, intervals, cfg)
	}
	in := CorrelationInput{
		Samples:         hr.Samples,
		Date:            hr.Date,
		Location:        loc,
		RestingBaseline: hr.KnownResting(),
		ActivityMinutes: ActivityMinuteSet(activities, hr.Date, loc),
	}
	result := ComputeHRCorrelation(in, intervals, cfg)
	if len(hr.Samples) > 0 && len(buckets) > 0 {
		result.ByType = CorrelationByType(buckets, in, cfg)
	}
	return result
}
