package cmd

import (
	"fmt"

	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/internal/garmin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// importHRCmd loads a heart-rate export into the store.
var importHRCmd = &cobra.Command{
	Use:   "import-hr <heart-rate.json>",
	Short: "Import a Garmin heart-rate export.",
	Long: `Import one day of heart-rate samples and, optionally, the physical activities
recorded that day. Re-importing a day replaces it.

Examples:
  stimstrain import-hr hr_2025-03-04.json
  stimstrain import-hr hr.json --activities activities_2025-03-04.json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, args []string) {
		store := storeManager.GetLedgerStore()
		if store == nil {
			contract.LogFatal("Cannot import heart rate", fmt.Errorf("record store is not initialized"))
		}
		result, err := garmin.Import(rootCtx, store, args[0], viper.GetString("activities"), cfg.Loc())
		if err != nil {
			contract.LogFatal("Cannot import heart rate", err)
		}
		cmd.Printf("Imported %d heart rate samples for %s", result.Samples, result.Date)
		if result.Activities > 0 {
			cmd.Printf(" with %d activities", result.Activities)
		}
		cmd.Println()
	},
}
