package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/schema"
)

// PrintTrend outputs the multi-day trend to the configured file or stdout.
func PrintTrend(points []schema.TrendPoint, cfg *contract.Config, duration time.Duration) error {
	if err := checkTabular(cfg.Output); err != nil {
		return err
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteTrend(w, points, cfg, duration)
	}, "Wrote trend")
}

// WriteTrend outputs the trend, dispatching based on the output format configured.
func WriteTrend(w io.Writer, points []schema.TrendPoint, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(reportPrecision)
	if points == nil {
		points = []schema.TrendPoint{}
	}

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, points); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		err := writeCSVWithHeader(w, []string{"date", "strain", "label", "focus_minutes"}, func(cw *csv.Writer) error {
			for _, p := range points {
				row := []string{p.Date, strconv.Itoa(p.Strain), contract.GetPlainLabel(float64(p.Strain)), fmtFloat(p.Focus)}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return errParquetUnsupported
	default:
		if err := renderTable(w, []string{"Date", "Strain", "Label", "Focus"}, trendRows(points, cfg, fmtFloat)); err != nil {
			return fmt.Errorf("error writing trend table output: %w", err)
		}
		_, _ = fmt.Fprintf(w, "Trend of %d tracked days built in %v. Store backend: %s\n", len(points), duration, cfg.StoreBackend)
	}
	return nil
}
