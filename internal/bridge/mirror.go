package bridge

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/schema"
)

// HostMirror keeps the last known tab table reported by the host and answers the
// runtime's lookups from it.
type HostMirror struct {
	mu       sync.RWMutex
	tabs     map[int]schema.Tab
	activeID int
	focused  bool
}

var _ contract.HostLookup = &HostMirror{} // Compile-time check

// NewHostMirror returns an empty mirror with a focused window.
func NewHostMirror() *HostMirror {
	return &HostMirror{tabs: map[int]schema.Tab{}, focused: true}
}

// Apply updates the mirror from a host message.
func (h *HostMirror) Apply(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch msg.Type {
	case TypeTabActivated:
		if prev, ok := h.tabs[h.activeID]; ok {
			prev.Active = false
			h.tabs[h.activeID] = prev
		}
		tab := h.tabs[msg.TabID]
		tab.ID = msg.TabID
		tab.Active = true
		if msg.URL != "" {
			tab.URL = msg.URL
		}
		if msg.TS > 0 {
			tab.LastAccessed = msg.TS
		}
		h.tabs[msg.TabID] = tab
		h.activeID = msg.TabID

	case TypeTabUpdated:
		tab := h.tabs[msg.TabID]
		tab.ID = msg.TabID
		if msg.URL != "" {
			tab.URL = msg.URL
		}
		h.tabs[msg.TabID] = tab

	case TypeTabRemoved:
		delete(h.tabs, msg.TabID)
		if h.activeID == msg.TabID {
			h.activeID = 0
		}

	case TypeAudibleChanged:
		tab := h.tabs[msg.TabID]
		tab.ID = msg.TabID
		tab.Audible = msg.Audible != nil && *msg.Audible
		if msg.URL != "" {
			tab.URL = msg.URL
		}
		h.tabs[msg.TabID] = tab

	case TypeWindowFocusChanged:
		h.focused = msg.Focused != nil && *msg.Focused
	}
}

// GetTab implements the HostLookup interface.
func (h *HostMirror) GetTab(ctx context.Context, tabID int) (schema.Tab, error) {
	if err := ctx.Err(); err != nil {
		return schema.Tab{}, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	tab, ok := h.tabs[tabID]
	if !ok {
		return schema.Tab{}, fmt.Errorf("tab %d not found", tabID)
	}
	return tab, nil
}

// ActiveTab implements the HostLookup interface.
func (h *HostMirror) ActiveTab(ctx context.Context) (schema.Tab, error) {
	if err := ctx.Err(); err != nil {
		return schema.Tab{}, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	tab, ok := h.tabs[h.activeID]
	if !ok || !h.focused {
		return schema.Tab{}, fmt.Errorf("no active tab in a focused window")
	}
	return tab, nil
}

// AudibleTabs implements the HostLookup interface. Tabs are ordered by id.
func (h *HostMirror) AudibleTabs(ctx context.Context) ([]schema.Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	var tabs []schema.Tab
	for _, tab := range h.tabs {
		if tab.Audible {
			tabs = append(tabs, tab)
		}
	}
	sort.Slice(tabs, func(i, j int) bool { return tabs[i].ID < tabs[j].ID })
	return tabs, nil
}
