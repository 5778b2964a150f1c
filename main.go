// main holds the entry logic for the stimstrain CLI.
package main

import (
	"github.com/huangsam/stimstrain/cmd"
	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/internal/iostore"
)

func main() {
	cmd.SetStoreManager(iostore.Manager)
	defer iostore.CloseStores()

	if err := cmd.Execute(); err != nil {
		iostore.CloseStores()
		contract.LogFatal("Cannot run stimstrain", err)
	}
}
