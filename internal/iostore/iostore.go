// Package iostore is the persistent record store for buckets, events, biometrics and session state.
package iostore

import (
	"sync"

	"github.com/huangsam/stimstrain/internal/contract"
)

// StoreManager manages the LedgerStore instance.
type StoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	ledger       contract.LedgerStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// GetLedgerStore returns the LedgerStore.
func (mgr *StoreManager) GetLedgerStore() contract.LedgerStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.ledger
}
