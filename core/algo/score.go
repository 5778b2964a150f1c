// Package algo holds the pure scoring, enrichment and correlation algorithms.
package algo

import (
	"math"
	"regexp"
	"sort"

	"github.com/huangsam/stimstrain/core/classify"
	"github.com/huangsam/stimstrain/schema"
)

// Coefficients and caps of the per-dimension diminishing-returns curves.
const (
	shortFormCoeff = 2.2
	shortFormCap   = 20.0
	stimCoeff      = 1.8
	stimCap        = 14.0
	feedCoeff      = 1.8
	feedCap        = 14.0
	fragCoeff      = 1.2
	fragCap        = 10.0
	lateCoeff      = 0.4
	lateCap        = 8.0

	// saturation controls how quickly the final score approaches 100.
	saturation = 25.0
)

// Fragmentation thresholds for a single minute.
const (
	shortSessionSeconds = 90
	highSwitchCount     = 4
	highScrollCount     = 20
	highScrollDistance  = 2000
)

// Focus eligibility thresholds for a single minute.
const (
	focusMaxSwitches       = 2
	focusMaxScrolls        = 5
	focusMaxScrollDistance = 500
)

// implicitShortSeconds is the watch time on a shorts URL that counts as one short.
const implicitShortSeconds = 10

var shortsURL = regexp.MustCompile(`(?i)youtube\.com/shorts/`)

// focusCategories are the categories compatible with deep work.
// YOUTUBE_WATCH and X_THREAD also feed stimulation and feed-adjacent signals elsewhere.
var focusCategories = map[schema.Category]struct{}{
	schema.CategoryDocsWork:     {},
	schema.CategoryRedditThread: {},
	schema.CategoryYouTubeWatch: {},
	schema.CategoryXThread:      {},
}

// Dimensions are the raw per-day totals the strain score is built from.
type Dimensions struct {
	ShortForm          float64 // shorts + reels + tiktoks
	StimulationMinutes float64 // music and video-watch minutes
	FeedMinutes        float64 // focused minutes on feed categories
	FragmentedMinutes  float64 // minutes that look fragmented
	LateNightMinutes   float64 // active minutes between 22:00 and 06:00
}

// InferShorts returns the explicit shorts count, or 1 when a shorts URL was held long enough.
func InferShorts(b schema.Bucket) int {
	if b.ShortsCount > 0 {
		return b.ShortsCount
	}
	if b.Category == schema.CategoryYouTubeShorts && shortsURL.MatchString(b.URL) &&
		b.YouTubeWatchSeconds+b.FocusedSeconds >= implicitShortSeconds {
		return 1
	}
	return 0
}

// IsShortSession reports a minute with some but little focused time.
func IsShortSession(b schema.Bucket) bool {
	return b.FocusedSeconds > 0 && b.FocusedSeconds < shortSessionSeconds
}

// IsHighSwitch reports a minute with many tab switches.
func IsHighSwitch(b schema.Bucket) bool {
	return b.Switches >= highSwitchCount
}

// IsHighScroll reports a minute with heavy scrolling.
func IsHighScroll(b schema.Bucket) bool {
	return b.Scrolls > highScrollCount || b.ScrollDistance > highScrollDistance
}

// IsFragmented reports whether a minute counts toward fragmentation.
func IsFragmented(b schema.Bucket) bool {
	return IsShortSession(b) || IsHighSwitch(b) || IsHighScroll(b)
}

// HasActivity reports whether any focused time or short-form viewing happened in the minute.
func HasActivity(b schema.Bucket) bool {
	return b.FocusedSeconds+b.ShortFormCount() > 0
}

// IsLateNight reports whether hour falls in [22,24) or [0,6).
func IsLateNight(hour int) bool {
	return hour >= 22 || hour < 6
}

// isLateNightActive reports a late-night minute with activity.
func isLateNightActive(b schema.Bucket) bool {
	return IsLateNight(b.DerivedHour()) && HasActivity(b)
}

// feedSeconds returns the focused seconds of a feed-category minute.
func feedSeconds(b schema.Bucket) int {
	if classify.IsFeed(b.Category) {
		return b.FocusedSeconds
	}
	return 0
}

// AccumulateDimensions sums the raw dimension totals across buckets.
func AccumulateDimensions(buckets []schema.Bucket) Dimensions {
	var d Dimensions
	var stimSeconds, feedSecs int
	for _, b := range buckets {
		d.ShortForm += float64(InferShorts(b) + b.ReelsCount + b.TiktoksCount)
		stimSeconds += b.StimulationSeconds + b.YouTubeWatchSeconds
		feedSecs += feedSeconds(b)
		if IsFragmented(b) {
			d.FragmentedMinutes++
		}
		if isLateNightActive(b) {
			d.LateNightMinutes++
		}
	}
	d.StimulationMinutes = float64(stimSeconds) / 60
	d.FeedMinutes = float64(feedSecs) / 60
	return d
}

// sqrtCurve maps n through coeff*sqrt(n), capped at limit.
func sqrtCurve(n, coeff, limit float64) float64 {
	if n <= 0 {
		return 0
	}
	return math.Min(limit, coeff*math.Sqrt(n))
}

// RawStrain returns the sum of the capped dimension scores.
func (d Dimensions) RawStrain() float64 {
	raw := sqrtCurve(d.ShortForm, shortFormCoeff, shortFormCap)
	raw += sqrtCurve(d.StimulationMinutes, stimCoeff, stimCap)
	raw += sqrtCurve(d.FeedMinutes, feedCoeff, feedCap)
	raw += sqrtCurve(d.FragmentedMinutes, fragCoeff, fragCap)
	raw += math.Min(lateCap, lateCoeff*math.Max(0, d.LateNightMinutes))
	return raw
}

// ScoreDimensions maps dimension totals to a 0-100 strain score.
func ScoreDimensions(d Dimensions) int {
	raw := d.RawStrain()
	score := int(math.Round(100 * (1 - math.Exp(-raw/saturation))))
	return min(100, max(0, score))
}

// ComputeStrain scores a list of buckets from 0 to 100.
func ComputeStrain(buckets []schema.Bucket) int {
	return ScoreDimensions(AccumulateDimensions(buckets))
}

// ComputeBreakdown attributes strain to named, non-negative contributors.
func ComputeBreakdown(buckets []schema.Bucket) map[schema.BreakdownKey]float64 {
	breakdown := make(map[schema.BreakdownKey]float64, len(schema.BreakdownOrder))
	for _, key := range schema.BreakdownOrder {
		breakdown[key] = 0
	}
	for _, b := range buckets {
		breakdown[schema.BreakdownYouTubeShorts] += float64(InferShorts(b))
		breakdown[schema.BreakdownInstagramReels] += float64(b.ReelsCount)
		breakdown[schema.BreakdownTikToks] += float64(b.TiktoksCount)
		breakdown[schema.BreakdownMusicMinutes] += float64(b.StimulationSeconds) / 60
		breakdown[schema.BreakdownYouTubeWatchMins] += float64(b.YouTubeWatchSeconds) / 60
		breakdown[schema.BreakdownFeedMinutes] += float64(feedSeconds(b)) / 60
		if IsShortSession(b) {
			breakdown[schema.BreakdownShortSessions]++
		}
		if IsHighSwitch(b) {
			breakdown[schema.BreakdownHighSwitchMinutes]++
		}
		if IsHighScroll(b) {
			breakdown[schema.BreakdownHighScrollMinutes]++
		}
		if isLateNightActive(b) {
			breakdown[schema.BreakdownLateNightMinutes]++
		}
	}
	return breakdown
}

// NonZeroBreakdown returns the positive breakdown entries in display order,
// rounded to one decimal.
func NonZeroBreakdown(breakdown map[schema.BreakdownKey]float64) []schema.BreakdownEntry {
	entries := make([]schema.BreakdownEntry, 0, len(breakdown))
	for _, key := range schema.BreakdownOrder {
		if v := breakdown[key]; v > 0 {
			entries = append(entries, schema.BreakdownEntry{Key: key, Value: round1(v)})
		}
	}
	return entries
}

// IsFocusEligible reports whether a minute counts toward focus time.
func IsFocusEligible(b schema.Bucket) bool {
	if _, ok := focusCategories[b.Category]; !ok {
		return false
	}
	return b.Switches <= focusMaxSwitches &&
		b.Scrolls <= focusMaxScrolls &&
		b.ScrollDistance <= focusMaxScrollDistance
}

// ComputeFocusMinutes returns total focus minutes and the longest uninterrupted focus block.
// Buckets are walked in chronological order; any ineligible minute resets the block.
func ComputeFocusMinutes(buckets []schema.Bucket) (total, longest float64) {
	var current float64
	for _, b := range chronological(buckets) {
		if !IsFocusEligible(b) {
			current = 0
			continue
		}
		mins := float64(b.FocusedSeconds) / 60
		total += mins
		current += mins
		longest = math.Max(longest, current)
	}
	return round1(total), round1(longest)
}

// Summarize scores buckets into a StrainResult.
func Summarize(buckets []schema.Bucket) schema.StrainResult {
	total, longest := ComputeFocusMinutes(buckets)
	return schema.StrainResult{
		Score:        ComputeStrain(buckets),
		Breakdown:    NonZeroBreakdown(ComputeBreakdown(buckets)),
		FocusMinutes: total,
		LongestBlock: longest,
	}
}

// RawStrainOf returns the per-minute raw strain contribution of a bucket.
func RawStrainOf(b schema.Bucket) float64 {
	stimMins := float64(b.StimulationSeconds+b.YouTubeWatchSeconds) / 60
	feedMins := float64(feedSeconds(b)) / 60
	return float64(b.ShortFormCount())*3 + stimMins*2 + feedMins*1.5 + float64(b.Switches)*0.8
}

// RawStrainByMinute sums raw strain per minute index of the day.
func RawStrainByMinute(buckets []schema.Bucket) map[int]float64 {
	out := make(map[int]float64, len(buckets))
	for _, b := range buckets {
		m := b.MinuteOfDay()
		if m < 0 {
			continue
		}
		out[m] += RawStrainOf(b)
	}
	return out
}

// BuildHourlyTimeline returns 24 hour slots with summed raw strain and activity flags.
func BuildHourlyTimeline(buckets []schema.Bucket) []schema.HourSlot {
	slots := make([]schema.HourSlot, 24)
	for h := range slots {
		slots[h].Hour = h
	}
	for _, b := range buckets {
		h := b.DerivedHour()
		if h < 0 || h > 23 {
			continue
		}
		slot := &slots[h]
		slot.Strain += RawStrainOf(b)
		slot.Music = slot.Music || b.StimulationSeconds > 5
		slot.YouTube = slot.YouTube || b.YouTubeWatchSeconds > 5
		slot.Shorts = slot.Shorts || b.ShortsCount > 0
		slot.Reels = slot.Reels || b.ReelsCount > 0
		slot.TikTok = slot.TikTok || b.TiktoksCount > 0
		slot.Feed = slot.Feed || feedSeconds(b) > 0
	}
	for h := range slots {
		slots[h].Strain = round1(slots[h].Strain)
	}
	return slots
}

// TotalSwitches sums tab switches across buckets.
func TotalSwitches(buckets []schema.Bucket) int {
	total := 0
	for _, b := range buckets {
		total += b.Switches
	}
	return total
}

// chronological returns a copy of buckets sorted by date and minute.
func chronological(buckets []schema.Bucket) []schema.Bucket {
	sorted := make([]schema.Bucket, len(buckets))
	copy(sorted, buckets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].MinuteOfDay() < sorted[j].MinuteOfDay()
	})
	return sorted
}

// round1 rounds v to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
