package cmd

import (
	"github.com/huangsam/stimstrain/core"
	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/spf13/cobra"
)

// eventsCmd groups raw event log maintenance.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Manage the raw event log",
}

// eventsPruneCmd deletes old raw events.
var eventsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete raw events older than --keep-days",
	Long: `Delete raw tab and content events recorded before the retention window.
Minute buckets and heart-rate data are kept.

Examples:
  stimstrain events prune
  stimstrain events prune --keep-days 7`,
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		cutoff, removed, err := core.PruneEvents(rootCtx, cfg, storeManager)
		if err != nil {
			contract.LogFatal("Cannot prune events", err)
		}
		cmd.Printf("Removed %d events recorded before %s\n", removed, cutoff)
	},
}
