package cmd

import (
	"github.com/huangsam/stimstrain/core"
	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/spf13/cobra"
)

// reportCmd summarizes one tracked day.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the strain report of a day.",
	Long: `Score one tracked day and print its summary.

The report includes:
- Strain score from 0 to 100 with its label
- The contributors that make up the score
- Focus minutes and the longest focused block
- An hourly timeline of music, video, short-form and feed activity
- The recent trend and, when imported, a heart-rate correlation

Examples:
  # Report on today
  stimstrain report

  # Report on a past day as JSON
  stimstrain report --date 2025-03-04 --output json

  # Export the metrics to CSV
  stimstrain report --date yesterday --output csv --output-file day.csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteReport(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run day report", err)
		}
	},
}

// trendCmd shows the daily strain over a window.
var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show the daily strain of recent days.",
	Long: `Print the strain score and focus minutes of every tracked day in the window
ending at --date, oldest first. Days without activity are omitted.

Examples:
  # Last week
  stimstrain trend

  # Last 30 days as CSV
  stimstrain trend --days 30 --output csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteTrend(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run trend", err)
		}
	},
}

// correlateCmd correlates stimulation with heart rate.
var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Correlate stimulated browsing with heart rate.",
	Long: `Compare heart rate during stimulated browsing with the rest of the day.

Requires a heart-rate export imported with 'stimstrain import-hr'.
Thresholds can be tuned in .stimstrain.yaml or with STIMSTRAIN_* variables
(stim-threshold, hr-lag-minutes, elevated-bpm and friends).

Examples:
  stimstrain correlate --date 2025-03-04
  stimstrain correlate --date yesterday --resting-hr 55 --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCorrelate(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run correlation", err)
		}
	},
}

// exportCmd writes the enriched buckets of a day.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the per-minute buckets of a day.",
	Long: `Write every tracked minute of a day with its category, URL and raw strain.

Parquet output requires --output-file.

Examples:
  stimstrain export --output csv --output-file minutes.csv
  stimstrain export --date 2025-03-04 --output parquet --output-file minutes.parquet`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteExport(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run export", err)
		}
	},
}
