package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/huangsam/stimstrain/core/algo"
	"github.com/huangsam/stimstrain/core/classify"
	"github.com/huangsam/stimstrain/core/tracker"
	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/schema"
	"golang.org/x/sync/errgroup"
)

// ErrNoHeartRate is returned when a day has no imported heart-rate data.
var ErrNoHeartRate = errors.New("no heart rate data for date")

// dayInputs holds everything stored for one day.
type dayInputs struct {
	buckets      []schema.Bucket
	events       []schema.Event
	hr           *schema.HeartRateDay
	activities   []schema.PhysicalActivity
	sessionStart *int64
	snapshot     []byte
}

// ledgerStore returns the configured store or an error when stores are not initialized.
func ledgerStore(mgr contract.StoreManager) (contract.LedgerStore, error) {
	if mgr == nil {
		return nil, fmt.Errorf("store manager is not configured")
	}
	store := mgr.GetLedgerStore()
	if store == nil {
		return nil, fmt.Errorf("record store is not initialized")
	}
	return store, nil
}

// flushIfToday asks the live runtime, when present, to persist the current minute.
func flushIfToday(ctx context.Context, cfg *contract.Config) error {
	if !cfg.IsToday() {
		return nil
	}
	if f := flusherFrom(ctx); f != nil {
		if err := f.Flush(ctx); err != nil {
			return fmt.Errorf("failed to flush live activity: %w", err)
		}
	}
	return nil
}

// loadDay reads the stored records of date in parallel.
func loadDay(ctx context.Context, store contract.LedgerStore, date string) (dayInputs, error) {
	var in dayInputs
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		buckets, err := store.GetBucketsForDate(gctx, date)
		if err != nil {
			return fmt.Errorf("failed to load buckets for %s: %w", date, err)
		}
		in.buckets = buckets
		return nil
	})
	g.Go(func() error {
		events, err := store.GetEventsForDate(gctx, date)
		if err != nil {
			return fmt.Errorf("failed to load events for %s: %w", date, err)
		}
		in.events = events
		return nil
	})
	g.Go(func() error {
		hr, err := store.GetHeartRate(gctx, date)
		if err != nil {
			return fmt.Errorf("failed to load heart rate for %s: %w", date, err)
		}
		in.hr = hr
		return nil
	})
	g.Go(func() error {
		activities, err := store.GetActivities(gctx, date)
		if err != nil {
			return fmt.Errorf("failed to load activities for %s: %w", date, err)
		}
		in.activities = activities
		return nil
	})
	g.Go(func() error {
		raw, err := store.GetState(gctx, tracker.SessionStartKey(date))
		if err != nil {
			return fmt.Errorf("failed to load session start for %s: %w", date, err)
		}
		if ts, ok := tracker.ParseSessionStart(raw); ok {
			in.sessionStart = &ts
		}
		return nil
	})
	g.Go(func() error {
		raw, err := store.GetState(gctx, tracker.SessionStateKey)
		if err != nil {
			return fmt.Errorf("failed to load session snapshot: %w", err)
		}
		in.snapshot = raw
		return nil
	})

	if err := g.Wait(); err != nil {
		return dayInputs{}, err
	}
	return in, nil
}

// fallbackVisits derives a single visit from the last session snapshot when a day
// has no recorded tab activations.
func fallbackVisits(snapshot []byte) []schema.Visit {
	if len(snapshot) == 0 {
		return nil
	}
	var state schema.SessionState
	if err := json.Unmarshal(snapshot, &state); err != nil {
		return nil
	}
	if !classify.IsWebURL(state.ActiveURL) {
		return nil
	}
	var ts int64
	if state.TabActivatedAt != nil {
		ts = *state.TabActivatedAt
	}
	return []schema.Visit{{
		TS:       ts,
		Domain:   classify.DomainOf(state.ActiveURL),
		Category: classify.Classify(state.ActiveURL),
		URL:      state.ActiveURL,
	}}
}

// enrichDay projects visits and enriches the buckets of a loaded day.
func enrichDay(in dayInputs, loc *time.Location) []schema.Bucket {
	visits := algo.BuildVisits(in.events)
	if len(visits) == 0 {
		visits = fallbackVisits(in.snapshot)
	}
	return algo.EnrichBuckets(in.buckets, visits, loc)
}

// heartRateFor applies the configured resting-rate override to a stored day.
func heartRateFor(cfg *contract.Config, hr *schema.HeartRateDay) *schema.HeartRateDay {
	if hr == nil || cfg.RestingHR == nil {
		return hr
	}
	out := *hr
	v := *cfg.RestingHR
	out.RestingHR = &v
	return &out
}

// GetDayReport builds the complete report of cfg.Date.
func GetDayReport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (schema.DayReport, error) {
	store, err := ledgerStore(mgr)
	if err != nil {
		return schema.DayReport{}, err
	}
	if err := flushIfToday(ctx, cfg); err != nil {
		return schema.DayReport{}, err
	}

	in, err := loadDay(ctx, store, cfg.Date)
	if err != nil {
		return schema.DayReport{}, err
	}
	enriched := enrichDay(in, cfg.Loc())

	trend, err := GetTrend(ctx, cfg, mgr)
	if err != nil {
		return schema.DayReport{}, err
	}

	report := schema.DayReport{
		Date:          cfg.Date,
		Strain:        algo.Summarize(enriched),
		TotalSwitches: algo.TotalSwitches(enriched),
		SessionStart:  in.sessionStart,
		BucketCount:   len(enriched),
		Hourly:        algo.BuildHourlyTimeline(enriched),
		Trend:         trend,
	}
	if in.hr != nil {
		corr := algo.RunHRCorrelation(enriched, heartRateFor(cfg, in.hr), in.activities, cfg.Loc(), cfg.Correlation)
		report.HeartRate = &corr
	}
	return report, nil
}

// GetTrend returns one point per tracked day in the cfg.Days window ending at cfg.Date,
// ascending by date. Days without buckets are omitted.
func GetTrend(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) ([]schema.TrendPoint, error) {
	store, err := ledgerStore(mgr)
	if err != nil {
		return nil, err
	}
	end, err := time.ParseInLocation(contract.DateFormat, cfg.Date, cfg.Loc())
	if err != nil {
		return nil, fmt.Errorf("invalid report date %q: %w", cfg.Date, err)
	}
	days := cfg.Days
	if days < 1 {
		days = contract.DefaultTrendDays
	}
	start := end.AddDate(0, 0, -(days - 1)).Format(contract.DateFormat)

	buckets, err := store.GetBucketsInRange(ctx, start, cfg.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to load buckets for %s..%s: %w", start, cfg.Date, err)
	}
	return buildTrend(buckets), nil
}

// buildTrend groups buckets by date and scores every day.
func buildTrend(buckets []schema.Bucket) []schema.TrendPoint {
	byDate := make(map[string][]schema.Bucket)
	for _, b := range buckets {
		byDate[b.Date] = append(byDate[b.Date], b)
	}
	points := make([]schema.TrendPoint, 0, len(byDate))
	for date, dayBuckets := range byDate {
		focus, _ := algo.ComputeFocusMinutes(dayBuckets)
		points = append(points, schema.TrendPoint{
			Date:   date,
			Strain: algo.ComputeStrain(dayBuckets),
			Focus:  focus,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// GetHRCorrelation correlates the stimulation of cfg.Date with its heart-rate day.
// It returns ErrNoHeartRate when nothing was imported for the date.
func GetHRCorrelation(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (schema.CorrelationReport, error) {
	store, err := ledgerStore(mgr)
	if err != nil {
		return schema.CorrelationReport{}, err
	}
	if err := flushIfToday(ctx, cfg); err != nil {
		return schema.CorrelationReport{}, err
	}
	in, err := loadDay(ctx, store, cfg.Date)
	if err != nil {
		return schema.CorrelationReport{}, err
	}
	if in.hr == nil {
		return schema.CorrelationReport{}, fmt.Errorf("%w %s", ErrNoHeartRate, cfg.Date)
	}
	enriched := enrichDay(in, cfg.Loc())
	return schema.CorrelationReport{
		Date:       cfg.Date,
		Activities: in.activities,
		HeartRate:  algo.RunHRCorrelation(enriched, heartRateFor(cfg, in.hr), in.activities, cfg.Loc(), cfg.Correlation),
	}, nil
}

// GetExport returns the enriched buckets of cfg.Date.
func GetExport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (schema.ExportPayload, error) {
	store, err := ledgerStore(mgr)
	if err != nil {
		return schema.ExportPayload{}, err
	}
	if err := flushIfToday(ctx, cfg); err != nil {
		return schema.ExportPayload{}, err
	}
	in, err := loadDay(ctx, store, cfg.Date)
	if err != nil {
		return schema.ExportPayload{}, err
	}
	return schema.ExportPayload{Date: cfg.Date, Buckets: enrichDay(in, cfg.Loc())}, nil
}

// PruneEvents deletes events older than cfg.KeepDays days before today.
func PruneEvents(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (string, int64, error) {
	store, err := ledgerStore(mgr)
	if err != nil {
		return "", 0, err
	}
	today, err := time.ParseInLocation(contract.DateFormat, cfg.Today(), cfg.Loc())
	if err != nil {
		return "", 0, err
	}
	cutoff := today.AddDate(0, 0, -cfg.KeepDays).Format(contract.DateFormat)
	removed, err := store.ClearEventsBefore(ctx, cutoff)
	if err != nil {
		return cutoff, 0, fmt.Errorf("failed to prune events before %s: %w", cutoff, err)
	}
	return cutoff, removed, nil
}
