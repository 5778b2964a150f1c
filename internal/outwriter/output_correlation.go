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

// PrintCorrelation outputs the heart-rate correlation to the configured file or stdout.
func PrintCorrelation(report schema.CorrelationReport, cfg *contract.Config, duration time.Duration) error {
	if err := checkTabular(cfg.Output); err != nil {
		return err
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteCorrelation(w, report, cfg, duration)
	}, "Wrote heart rate correlation")
}

// WriteCorrelation outputs the heart-rate correlation, dispatching based on the output format configured.
func WriteCorrelation(w io.Writer, report schema.CorrelationReport, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(reportPrecision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, report); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		err := writeCSVWithHeader(w, []string{"metric", "value"}, func(cw *csv.Writer) error {
			return writeMetricRows(cw, correlationRows(report.HeartRate, fmtFloat, intFmt, "hr."))
		})
		if err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return errParquetUnsupported
	default:
		if err := writeCorrelationTables(w, report, cfg, fmtFloat, duration); err != nil {
			return fmt.Errorf("error writing correlation table output: %w", err)
		}
	}
	return nil
}

// correlationRows flattens a correlation into prefixed metric/value pairs. Missing values are empty.
func correlationRows(hr schema.HRCorrelation, fmtFloat func(float64) string, intFmt, prefix string) [][2]string {
	rows := [][2]string{
		{prefix + "mean_stimulated", formatOptional(hr.MeanStimulated, fmtFloat, "")},
		{prefix + "mean_baseline", formatOptional(hr.MeanBaseline, fmtFloat, "")},
		{prefix + "resting_baseline", formatOptional(hr.RestingBaseline, fmtFloat, "")},
		{prefix + "correlation", formatOptional(hr.Correlation, func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }, "")},
		{prefix + "elevation", formatOptional(hr.Elevation, fmtFloat, "")},
		{prefix + "elevated", strconv.FormatBool(hr.Elevated)},
		{prefix + "samples_stimulated", fmt.Sprintf(intFmt, hr.SampleCounts.Stimulated)},
		{prefix + "samples_baseline", fmt.Sprintf(intFmt, hr.SampleCounts.Baseline)},
		{prefix + "stimulated_intervals", fmt.Sprintf(intFmt, len(hr.Intervals))},
		{prefix + "elevated_segments", fmt.Sprintf(intFmt, len(hr.ElevatedSegments))},
	}
	for _, t := range schema.StimulationTypes {
		stats, ok := hr.ByType[t]
		if !ok {
			continue
		}
		rows = append(rows, [2]string{prefix + string(t) + ".delta", formatOptional(stats.Delta, fmtFloat, "")})
	}
	return rows
}

// correlationTableRows formats the headline heart-rate statistics for a table.
func correlationTableRows(hr schema.HRCorrelation, fmtFloat func(float64) string) [][]string {
	bpm := func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmtFloat(*v) + " bpm"
	}
	elevated := "no"
	if hr.Elevated {
		elevated = "yes"
	}
	corr := "-"
	if hr.Correlation != nil {
		corr = strconv.FormatFloat(*hr.Correlation, 'f', 3, 64)
	}
	return [][]string{
		{"Stimulated mean", bpm(hr.MeanStimulated)},
		{"Baseline mean", bpm(hr.MeanBaseline)},
		{"Resting", bpm(hr.RestingBaseline)},
		{"Elevation", bpm(hr.Elevation)},
		{"Elevated", elevated},
		{"Correlation", corr},
		{"Samples", fmt.Sprintf("%d stimulated / %d baseline", hr.SampleCounts.Stimulated, hr.SampleCounts.Baseline)},
	}
}

// writeCorrelationTables prints the summary, intervals, segments and per-type tables.
func writeCorrelationTables(w io.Writer, report schema.CorrelationReport, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	hr := report.HeartRate
	_, _ = fmt.Fprintf(w, "Heart rate correlation for %s\n", report.Date)

	if err := renderTable(w, []string{"Heart Rate", "Value"}, correlationTableRows(hr, fmtFloat)); err != nil {
		return err
	}

	if len(hr.Intervals) > 0 {
		var data [][]string
		for _, iv := range hr.Intervals {
			data = append(data, []string{
				formatHourFrac(iv.StartHourFrac),
				formatHourFrac(iv.EndHourFrac),
				fmtFloat(iv.Intensity),
			})
		}
		if err := renderTable(w, []string{"Start", "End", "Intensity"}, data); err != nil {
			return err
		}
	}

	if len(hr.ElevatedSegments) > 0 {
		var data [][]string
		for _, seg := range hr.ElevatedSegments {
			data = append(data, []string{formatHourFrac(seg.StartHourFrac), formatHourFrac(seg.EndHourFrac)})
		}
		if err := renderTable(w, []string{"Rising From", "Rising To"}, data); err != nil {
			return err
		}
	}

	if len(hr.ByType) > 0 {
		var data [][]string
		for _, t := range schema.StimulationTypes {
			stats, ok := hr.ByType[t]
			if !ok {
				continue
			}
			data = append(data, []string{
				string(t),
				formatOptional(stats.HRMean, fmtFloat, "-"),
				formatOptional(stats.HRBaseline, fmtFloat, "-"),
				formatOptional(stats.Delta, fmtFloat, "-"),
				strconv.Itoa(stats.SampleCount),
			})
		}
		if err := renderTable(w, []string{"Type", "Mean", "Baseline", "Delta", "Samples"}, data); err != nil {
			return err
		}
	}

	if len(report.Activities) > 0 {
		_, _ = fmt.Fprintf(w, "%d physical activities excluded from rising segments\n", len(report.Activities))
	}
	_, _ = fmt.Fprintf(w, "Correlation built in %v. Store backend: %s\n", duration, cfg.StoreBackend)
	return nil
}
