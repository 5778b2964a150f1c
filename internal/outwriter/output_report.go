package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// hourFlagNames labels the activity flags of an hour slot.
var hourFlagNames = []string{"music", "youtube", "shorts", "reels", "tiktok", "feed"}

// PrintDayReport outputs the day report to the configured file or stdout.
func PrintDayReport(report schema.DayReport, cfg *contract.Config, duration time.Duration) error {
	if err := checkTabular(cfg.Output); err != nil {
		return err
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteDayReport(w, report, cfg, duration)
	}, "Wrote day report")
}

// WriteDayReport outputs the day report, dispatching based on the output format configured.
func WriteDayReport(w io.Writer, report schema.DayReport, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(reportPrecision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, report); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVDayReport(w, report, cfg, fmtFloat, intFmt); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return errParquetUnsupported
	default:
		// Default to human-readable tables
		if err := writeDayReportTables(w, report, cfg, fmtFloat, intFmt, duration); err != nil {
			return fmt.Errorf("error writing day report table output: %w", err)
		}
	}
	return nil
}

// summaryRows returns the headline metrics of a report.
func summaryRows(report schema.DayReport, cfg *contract.Config, fmtFloat func(float64) string, intFmt string) [][2]string {
	return [][2]string{
		{"strain", fmt.Sprintf(intFmt, report.Strain.Score)},
		{"label", contract.GetPlainLabel(float64(report.Strain.Score))},
		{"focus_minutes", fmtFloat(report.Strain.FocusMinutes)},
		{"longest_block", fmtFloat(report.Strain.LongestBlock)},
		{"total_switches", fmt.Sprintf(intFmt, report.TotalSwitches)},
		{"minutes_tracked", fmt.Sprintf(intFmt, report.BucketCount)},
		{"session_start", formatClock(report.SessionStart, cfg.Loc())},
	}
}

// writeCSVDayReport writes the report as metric/value rows.
func writeCSVDayReport(w io.Writer, report schema.DayReport, cfg *contract.Config, fmtFloat func(float64) string, intFmt string) error {
	rows := summaryRows(report, cfg, fmtFloat, intFmt)
	for _, e := range report.Strain.Breakdown {
		rows = append(rows, [2]string{"breakdown." + string(e.Key), fmtFloat(e.Value)})
	}
	for _, slot := range report.Hourly {
		if slot.Strain > 0 {
			rows = append(rows, [2]string{fmt.Sprintf("hour.%02d", slot.Hour), fmtFloat(slot.Strain)})
		}
	}
	for _, p := range report.Trend {
		rows = append(rows, [2]string{"trend." + p.Date, fmt.Sprintf(intFmt, p.Strain)})
	}
	if hr := report.HeartRate; hr != nil {
		rows = append(rows, correlationRows(*hr, fmtFloat, intFmt, "hr.")...)
	}
	return writeCSVWithHeader(w, []string{"metric", "value"}, func(cw *csv.Writer) error {
		return writeMetricRows(cw, rows)
	})
}

// writeDayReportTables prints the summary, breakdown, hourly and trend tables.
func writeDayReportTables(w io.Writer, report schema.DayReport, cfg *contract.Config, fmtFloat func(float64) string, intFmt string, duration time.Duration) error {
	_, _ = fmt.Fprintf(w, "Day report for %s\n", report.Date)

	// --- 1. Summary ---
	summary := [][]string{
		{"Strain", fmt.Sprintf(intFmt, report.Strain.Score) + " " + strainLabel(float64(report.Strain.Score), cfg)},
		{"Focus", fmtFloat(report.Strain.FocusMinutes) + " min"},
		{"Longest block", fmtFloat(report.Strain.LongestBlock) + " min"},
		{"Tab switches", fmt.Sprintf(intFmt, report.TotalSwitches)},
		{"Minutes tracked", fmt.Sprintf(intFmt, report.BucketCount)},
		{"Session start", formatClock(report.SessionStart, cfg.Loc())},
	}
	if err := renderTable(w, []string{"Metric", "Value"}, summary); err != nil {
		return err
	}

	// --- 2. Breakdown ---
	if len(report.Strain.Breakdown) > 0 {
		var data [][]string
		for _, e := range report.Strain.Breakdown {
			data = append(data, []string{string(e.Key), fmtFloat(e.Value)})
		}
		if err := renderTable(w, []string{"Contributor", "Value"}, data); err != nil {
			return err
		}
	}

	// --- 3. Hourly timeline, active hours only ---
	var hourly [][]string
	for _, slot := range report.Hourly {
		flags := []bool{slot.Music, slot.YouTube, slot.Shorts, slot.Reels, slot.TikTok, slot.Feed}
		if slot.Strain == 0 && joinFlags(hourFlagNames, flags) == "-" {
			continue
		}
		hourly = append(hourly, []string{
			fmt.Sprintf("%02d:00", slot.Hour),
			fmtFloat(slot.Strain),
			joinFlags(hourFlagNames, flags),
		})
	}
	if len(hourly) > 0 {
		if err := renderTable(w, []string{"Hour", "Raw Strain", "Signals"}, hourly); err != nil {
			return err
		}
	}

	// --- 4. Trend ---
	if len(report.Trend) > 0 {
		if err := renderTable(w, []string{"Date", "Strain", "Label", "Focus"}, trendRows(report.Trend, cfg, fmtFloat)); err != nil {
			return err
		}
	}

	// --- 5. Heart rate ---
	if hr := report.HeartRate; hr != nil {
		if err := renderTable(w, []string{"Heart Rate", "Value"}, correlationTableRows(*hr, fmtFloat)); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(w, "Report built in %v. Store backend: %s\n", duration, cfg.StoreBackend)
	return nil
}

// renderTable renders a right-aligned table.
func renderTable(w io.Writer, headers []string, data [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// trendRows formats trend points as table rows.
func trendRows(points []schema.TrendPoint, cfg *contract.Config, fmtFloat func(float64) string) [][]string {
	data := make([][]string, 0, len(points))
	for _, p := range points {
		data = append(data, []string{
			p.Date,
			strconv.Itoa(p.Strain),
			strainLabel(float64(p.Strain), cfg),
			fmtFloat(p.Focus),
		})
	}
	return data
}
