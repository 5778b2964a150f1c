// Package parquet provides data structures and functions for exporting activity
// buckets to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/stimstrain/schema"
	"github.com/parquet-go/parquet-go"
)

// ActivityBucket is one enriched minute of activity.
// This struct maps to the activity_buckets database table.
type ActivityBucket struct {
	// Date is the local calendar day (YYYY-MM-DD)
	Date string `parquet:"bucket_date,snappy"`

	// Minute is the local minute of the day (HH:MM)
	Minute string `parquet:"bucket_minute,snappy"`

	// MinuteStart is the start of the minute (stored as TIMESTAMP with nanosecond precision)
	MinuteStart time.Time `parquet:"minute_start,snappy"`

	Hour                int32 `parquet:"bucket_hour,snappy"`
	FocusedSeconds      int32 `parquet:"focused_seconds,snappy"`
	Switches            int32 `parquet:"switches,snappy"`
	Scrolls             int32 `parquet:"scrolls,snappy"`
	ScrollDistance      int32 `parquet:"scroll_distance,snappy"`
	Clicks              int32 `parquet:"clicks,snappy"`
	ShortsCount         int32 `parquet:"shorts_count,snappy"`
	ReelsCount          int32 `parquet:"reels_count,snappy"`
	TiktoksCount        int32 `parquet:"tiktoks_count,snappy"`
	StimulationSeconds  int32 `parquet:"stimulation_seconds,snappy"`
	YouTubeWatchSeconds int32 `parquet:"youtube_watch_seconds,snappy"`
	SpotifySeconds      int32 `parquet:"spotify_seconds,snappy"`
	OtherMusicSeconds   int32 `parquet:"other_music_seconds,snappy"`
	AudioPlayingSeconds int32 `parquet:"audio_playing_seconds,snappy"`

	// Category is the classifier label after enrichment
	Category string `parquet:"category,snappy"`

	// URL is the page the minute was attributed to (nullable)
	URL *string `parquet:"url,optional,snappy"`

	// RawStrain is the per-minute strain contribution
	RawStrain float64 `parquet:"raw_strain,snappy"`
}

// WriteBucketsParquet writes a slice of ActivityBucket structs to a Parquet file.
func WriteBucketsParquet(data []ActivityBucket, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the ActivityBucket struct tags
	writer := parquet.NewGenericWriter[ActivityBucket](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertBuckets converts enriched buckets to ActivityBucket rows.
// rawStrain supplies the per-minute strain of each bucket.
func ConvertBuckets(buckets []schema.Bucket, rawStrain func(schema.Bucket) float64) []ActivityBucket {
	result := make([]ActivityBucket, len(buckets))
	for i, b := range buckets {
		row := ActivityBucket{
			Date:                b.Date,
			Minute:              b.Minute,
			MinuteStart:         time.UnixMilli(b.Timestamp).UTC(),
			Hour:                int32(b.DerivedHour()),
			FocusedSeconds:      int32(b.FocusedSeconds),
			Switches:            int32(b.Switches),
			Scrolls:             int32(b.Scrolls),
			ScrollDistance:      int32(b.ScrollDistance),
			Clicks:              int32(b.Clicks),
			ShortsCount:         int32(b.ShortsCount),
			ReelsCount:          int32(b.ReelsCount),
			TiktoksCount:        int32(b.TiktoksCount),
			StimulationSeconds:  int32(b.StimulationSeconds),
			YouTubeWatchSeconds: int32(b.YouTubeWatchSeconds),
			SpotifySeconds:      int32(b.SpotifySeconds),
			OtherMusicSeconds:   int32(b.OtherMusicSeconds),
			AudioPlayingSeconds: int32(b.AudioPlayingSeconds),
			Category:            string(b.Category),
		}
		if b.URL != "" {
			u := b.URL
			row.URL = &u
		}
		if rawStrain != nil {
			row.RawStrain = rawStrain(b)
		}
		result[i] = row
	}
	return result
}
