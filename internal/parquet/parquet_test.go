package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/stimstrain/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBuckets() []schema.Bucket {
	ts := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC).UnixMilli()
	return []schema.Bucket{
		{
			Date: "2025-03-04", Minute: "10:00", Timestamp: ts, Hour: 10,
			FocusedSeconds: 60, Switches: 2, Scrolls: 14, ScrollDistance: 4200,
			Category: schema.CategoryRedditFeed, URL: "https://www.reddit.com/",
		},
		{
			Date: "2025-03-04", Minute: "10:01", Timestamp: ts + 60_000, Hour: 10,
			ShortsCount: 3, FocusedSeconds: 45, Category: schema.CategoryYouTubeShorts,
		},
	}
}

func TestActivityBucketStructTags(t *testing.T) {
	// Verify struct tags are properly defined for parquet schema inference
	s := parquet.SchemaOf(new(ActivityBucket))
	require.NotNil(t, s)

	expectedColumns := []string{
		"bucket_date",
		"bucket_minute",
		"minute_start",
		"bucket_hour",
		"focused_seconds",
		"switches",
		"scrolls",
		"shorts_count",
		"stimulation_seconds",
		"youtube_watch_seconds",
		"category",
		"url",
		"raw_strain",
	}

	for _, colName := range expectedColumns {
		col, ok := s.Lookup(colName)
		require.True(t, ok, "Column %s should exist in schema", colName)
		require.NotNil(t, col, "Column %s should not be nil", colName)
	}
}

func TestConvertBuckets(t *testing.T) {
	rows := ConvertBuckets(sampleBuckets(), func(b schema.Bucket) float64 { return float64(b.Switches) })
	require.Len(t, rows, 2)

	assert.Equal(t, "10:00", rows[0].Minute)
	assert.Equal(t, int32(10), rows[0].Hour)
	assert.Equal(t, int32(4200), rows[0].ScrollDistance)
	require.NotNil(t, rows[0].URL)
	assert.Equal(t, "https://www.reddit.com/", *rows[0].URL)
	assert.Equal(t, 2.0, rows[0].RawStrain)
	assert.True(t, time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC).Equal(rows[0].MinuteStart))

	assert.Nil(t, rows[1].URL, "empty URL should be stored as null")
	assert.Equal(t, int32(3), rows[1].ShortsCount)
	assert.Equal(t, string(schema.CategoryYouTubeShorts), rows[1].Category)

	assert.Zero(t, ConvertBuckets(sampleBuckets(), nil)[0].RawStrain)
}

func TestWriteBucketsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "buckets.parquet")
	data := ConvertBuckets(sampleBuckets(), nil)

	require.NoError(t, WriteBucketsParquet(data, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err, "Output file should exist")
	assert.Greater(t, info.Size(), int64(0), "Output file should not be empty")

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[ActivityBucket](file)
	defer func() { _ = reader.Close() }()

	readData := make([]ActivityBucket, reader.NumRows())
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err, "Should be able to read data")
	}
	require.Equal(t, len(data), n, "Should read all records")

	for i := range data {
		assert.Equal(t, data[i].Minute, readData[i].Minute)
		assert.Equal(t, data[i].FocusedSeconds, readData[i].FocusedSeconds)
		assert.Equal(t, data[i].Category, readData[i].Category)
		assert.WithinDuration(t, data[i].MinuteStart, readData[i].MinuteStart, time.Millisecond)
		if data[i].URL == nil {
			assert.Nil(t, readData[i].URL)
		} else {
			require.NotNil(t, readData[i].URL)
			assert.Equal(t, *data[i].URL, *readData[i].URL)
		}
	}
}

func TestWriteBucketsParquet_EmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteBucketsParquet([]ActivityBucket{}, outputPath))

	_, err := os.Stat(outputPath)
	require.NoError(t, err, "Output file should exist even for empty data")
}

func TestWriteBucketsParquet_BadPath(t *testing.T) {
	err := WriteBucketsParquet(nil, filepath.Join(t.TempDir(), "missing", "out.parquet"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output file")
}
