package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/internal/iostore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeCmd focused on record store management.
//
// Note: Store subcommands use minimal initialization (storeSetup) instead of
// the full sharedSetup used by the report commands.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the activity record store",
	Long: `Manage the store that holds minute buckets, raw events, heart-rate days and session state.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show row counts and connection info
  clear   - Remove all stored data
  migrate - Run database schema migrations

Examples:
  stimstrain store status
  STIMSTRAIN_STORE_BACKEND=postgresql STIMSTRAIN_STORE_DB_CONNECT="..." stimstrain store migrate`,
}

// storeStatusCmd shows store status.
var storeStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display store statistics and connection details",
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iostore.InitStores(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
			contract.LogFatal("Failed to initialize store", err)
		}
		store := storeManager.GetLedgerStore()
		if store == nil {
			contract.LogFatal("Failed to get store status", fmt.Errorf("record store is not initialized"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get store status", err)
		}
		iostore.PrintStoreStatus(os.Stdout, status)
	},
}

// storeClearCmd clears the store.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded activity data",
	Long: `Delete all recorded data from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the ledger tables and migration history`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iostore.ClearStores(cfg.StoreBackend, cfg.StoreDBConnect, cfg.StoreDBConnect); err != nil {
			contract.LogFatal("Failed to clear store", err)
		}
		fmt.Println("Store cleared successfully.")
	},
}

// storeMigrateCmd runs database migrations for the record store.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the record store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  stimstrain store migrate

  # Show the current version
  stimstrain store migrate --status

  # Rollback to initial state
  stimstrain store migrate --target-version 0`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if viper.GetBool("status") {
			status, err := iostore.GetMigrationStatus(cfg.StoreBackend, cfg.StoreDBConnect)
			if err != nil {
				contract.LogFatal("Failed to get migration status", err)
			}
			fmt.Printf("Schema version: %d (latest %d)\n", status.Version, status.Latest)
			if status.Dirty {
				fmt.Println("Warning: database is in a dirty state")
			}
			return
		}
		targetVersion := viper.GetInt("target-version")
		if err := iostore.Migrate(cfg.StoreBackend, cfg.StoreDBConnect, targetVersion, os.Stdout); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
