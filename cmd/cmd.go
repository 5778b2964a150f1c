// Package cmd defines the command-line interface for stimstrain.
package cmd

import (
	"strings"

	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// correlationKeys are tuning overrides read from the config file or environment only.
var correlationKeys = []string{
	"stim-threshold", "stim-min-seconds", "hr-lag-minutes", "hr-decay-minutes",
	"growth-window-minutes", "growth-min-bpm", "growth-start-hour", "growth-end-hour",
	"elevated-bpm", "elevated-pct", "start-hour", "end-hour",
}

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(correlateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importHRCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the store subcommands to the parent store command
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeMigrateCmd)

	// Add the events subcommands to the parent events command
	eventsCmd.AddCommand(eventsPruneCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("date", "", "Day to analyze: YYYY-MM-DD, today or yesterday")
	rootCmd.PersistentFlags().Int("days", contract.DefaultTrendDays, "Number of days in the trend window")
	rootCmd.PersistentFlags().String("timezone", "Local", "IANA time zone of the ledger days")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("store-backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("store-db-connect", "", "Database connection string for sqlite path or mysql/postgresql DSN")
	rootCmd.PersistentFlags().Float64("resting-hr", 0, "Resting heart rate override in bpm (0 = use imported value)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Correlation overrides have no flags; bind them so env vars reach Unmarshal
	for _, key := range correlationKeys {
		envName := "STIMSTRAIN_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if err := viper.BindEnv(key, envName); err != nil {
			contract.LogFatal("Error binding correlation env", err)
		}
	}

	// Bind all flags of importHRCmd to Viper
	importHRCmd.Flags().String("activities", "", "Optional activities export to import alongside heart rate")
	if err := viper.BindPFlags(importHRCmd.Flags()); err != nil {
		contract.LogFatal("Error binding import-hr flags", err)
	}

	// Bind all flags of trackCmd to Viper
	trackCmd.Flags().String("accrue-interval", contract.DefaultAccrueInterval.String(), "How often focused time is accrued")
	trackCmd.Flags().String("flush-interval", contract.DefaultFlushInterval.String(), "How often the live minute is persisted")
	trackCmd.Flags().String("lookup-timeout", contract.DefaultLookupTimeout.String(), "Deadline for host tab lookups")
	trackCmd.Flags().Int("persist-retries", contract.DefaultPersistRetries, "Attempts for each failed store write")
	trackCmd.Flags().Bool("debug", false, "Enable development logging")
	trackCmd.Flags().Bool("summary", false, "Print the day report when host input ends")
	if err := viper.BindPFlags(trackCmd.Flags()); err != nil {
		contract.LogFatal("Error binding track flags", err)
	}

	// Bind all flags of eventsPruneCmd to Viper
	eventsPruneCmd.Flags().Int("keep-days", contract.DefaultKeepDays, "Number of recent days of events to keep")
	if err := viper.BindPFlags(eventsPruneCmd.Flags()); err != nil {
		contract.LogFatal("Error binding events prune flags", err)
	}

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	storeMigrateCmd.Flags().Bool("status", false, "Show the applied and latest schema versions without migrating")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding store migrate flags", err)
	}
}
