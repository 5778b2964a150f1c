package algo

import (
	"sort"
	"time"

	"github.com/huangsam/stimstrain/core/classify"
	"github.com/huangsam/stimstrain/schema"
)

// BuildVisits projects active-tab events into an ascending visit history.
func BuildVisits(events []schema.Event) []schema.Visit {
	visits := make([]schema.Visit, 0, len(events))
	for _, e := range events {
		if e.Type != schema.EventActiveTabChanged {
			continue
		}
		visits = append(visits, schema.Visit{TS: e.TS, Domain: e.Domain, Category: e.Category, URL: e.URL})
	}
	sort.SliceStable(visits, func(i, j int) bool { return visits[i].TS < visits[j].TS })
	return visits
}

// BucketTimestamp returns the bucket's minute start in epoch ms, deriving it from
// Date and Minute in loc when the stored timestamp is missing.
func BucketTimestamp(b schema.Bucket, loc *time.Location) int64 {
	if b.Timestamp > 0 {
		return b.Timestamp
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.Minute, loc)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

// visitAt returns the latest visit at or before ts, or the earliest visit when none precede it.
func visitAt(visits []schema.Visit, ts int64) schema.Visit {
	idx := sort.Search(len(visits), func(i int) bool { return visits[i].TS > ts })
	if idx == 0 {
		return visits[0]
	}
	return visits[idx-1]
}

// visitURL resolves the URL a visit stands for, synthesizing one from its domain.
func visitURL(v schema.Visit) string {
	if classify.IsWebURL(v.URL) {
		return v.URL
	}
	if v.Domain != "" && v.Domain != classify.UnknownDomain {
		return "https://" + v.Domain
	}
	return ""
}

// EnrichBucket fills a missing URL from visits and resolves generic categories.
func EnrichBucket(b schema.Bucket, visits []schema.Visit, loc *time.Location) schema.Bucket {
	if b.URL == "" && len(visits) > 0 {
		b.URL = visitURL(visitAt(visits, BucketTimestamp(b, loc)))
	}
	if b.URL != "" && classify.IsUnresolved(b.Category) {
		if c := classify.Classify(b.URL); c != schema.CategoryOther && c != schema.CategoryUnknown {
			b.Category = c
		}
	}
	if classify.IsUnresolved(b.Category) {
		switch {
		case b.ShortsCount > 0:
			b.Category = schema.CategoryYouTubeShorts
		case b.ReelsCount > 0:
			b.Category = schema.CategoryInstagramReels
		case b.TiktoksCount > 0:
			b.Category = schema.CategoryTikTok
		}
	}
	if b.Category == "" {
		b.Category = schema.CategoryUnknown
	}
	b.Hour = b.DerivedHour()
	return b
}

// EnrichBuckets returns enriched copies of buckets. The input slice is not modified.
func EnrichBuckets(buckets []schema.Bucket, visits []schema.Visit, loc *time.Location) []schema.Bucket {
	out := make([]schema.Bucket, len(buckets))
	for i, b := range buckets {
		out[i] = EnrichBucket(b, visits, loc)
	}
	return out
}
