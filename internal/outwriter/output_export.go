package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/huangsam/stimstrain/core/algo"
	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/internal/parquet"
	"github.com/huangsam/stimstrain/schema"
)

// exportColumns is the CSV header of a bucket export.
var exportColumns = []string{
	"date", "minute", "hour", "timestamp",
	"focused_seconds", "switches", "scrolls", "scroll_distance", "clicks",
	"shorts_count", "reels_count", "tiktoks_count",
	"stimulation_seconds", "youtube_watch_seconds", "spotify_seconds", "other_music_seconds", "audio_playing_seconds",
	"category", "url", "raw_strain",
}

// PrintExport writes the enriched buckets of a day. Parquet output requires an output file.
func PrintExport(payload schema.ExportPayload, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.ParquetOut {
		if cfg.OutputFile == "" {
			return fmt.Errorf("parquet export requires --output-file")
		}
		rows := parquet.ConvertBuckets(payload.Buckets, algo.RawStrainOf)
		if err := parquet.WriteBucketsParquet(rows, cfg.OutputFile); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(os.Stderr, "💾 Wrote %d buckets to %s\n", len(rows), cfg.OutputFile)
		return nil
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteExport(w, payload, cfg, duration)
	}, "Wrote export")
}

// WriteExport outputs the export payload, dispatching based on the output format configured.
func WriteExport(w io.Writer, payload schema.ExportPayload, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(reportPrecision)
	if payload.Buckets == nil {
		payload.Buckets = []schema.Bucket{}
	}

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, payload); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVWithHeader(w, exportColumns, func(cw *csv.Writer) error {
			for _, b := range payload.Buckets {
				if err := cw.Write(exportRow(b, fmtFloat)); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return fmt.Errorf("parquet export must be written to a file")
	default:
		if err := writeExportTable(w, payload, cfg, duration); err != nil {
			return fmt.Errorf("error writing export table output: %w", err)
		}
	}
	return nil
}

// exportRow formats a bucket in exportColumns order.
func exportRow(b schema.Bucket, fmtFloat func(float64) string) []string {
	itoa := strconv.Itoa
	return []string{
		b.Date, b.Minute, itoa(b.DerivedHour()), strconv.FormatInt(b.Timestamp, 10),
		itoa(b.FocusedSeconds), itoa(b.Switches), itoa(b.Scrolls), itoa(b.ScrollDistance), itoa(b.Clicks),
		itoa(b.ShortsCount), itoa(b.ReelsCount), itoa(b.TiktoksCount),
		itoa(b.StimulationSeconds), itoa(b.YouTubeWatchSeconds), itoa(b.SpotifySeconds), itoa(b.OtherMusicSeconds), itoa(b.AudioPlayingSeconds),
		string(b.Category), b.URL, fmtFloat(algo.RawStrainOf(b)),
	}
}

// writeExportTable prints one row per minute.
func writeExportTable(w io.Writer, payload schema.ExportPayload, cfg *contract.Config, duration time.Duration) error {
	urlWidth := GetMaxTableURLWidth(cfg)
	data := make([][]string, 0, len(payload.Buckets))
	for _, b := range payload.Buckets {
		data = append(data, []string{
			b.Minute,
			strconv.Itoa(b.FocusedSeconds),
			strconv.Itoa(b.Switches),
			strconv.Itoa(b.Scrolls),
			strconv.Itoa(b.ShortFormCount()),
			strconv.Itoa(b.StimulationSeconds + b.YouTubeWatchSeconds),
			string(b.Category),
			contract.TruncateURL(b.URL, urlWidth),
		})
	}
	headers := []string{"Minute", "Focus", "Switches", "Scrolls", "Short-form", "Audio", "Category", "URL"}
	if err := renderTable(w, headers, data); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Exported %d minutes for %s in %v. Store backend: %s\n", len(payload.Buckets), payload.Date, duration, cfg.StoreBackend)
	return nil
}
