package application

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
	"github.com/ericfisherdev/patientreg/internal/domain/port/driven"
)

// SyncEndpoint is a sync channel attachment the tab manager owns and closes.
type SyncEndpoint interface {
	driven.SyncChannel
	Close() error
}

// Tab is one open client session: a registry bound to its own endpoint on the
// shared channel.
type Tab struct {
	ID       string
	Registry *Registry
	OpenedAt time.Time

	endpoint SyncEndpoint
}

// TabManager tracks the open tabs of a server process. Every tab shares the
// same store and channel name, so tabs observe each other's submissions the
// way browser tabs of one origin do.
type TabManager struct {
	store driven.PatientStore
	guard *QueryGuard
	open  func() SyncEndpoint

	mu   sync.RWMutex
	tabs map[string]*Tab
}

// NewTabManager creates a TabManager. open is called once per tab to attach a
// fresh endpoint to the shared channel.
func NewTabManager(store driven.PatientStore, guard *QueryGuard, open func() SyncEndpoint) *TabManager {
	return &TabManager{
		store: store,
		guard: guard,
		open:  open,
		tabs:  make(map[string]*Tab),
	}
}

// Open creates a new tab. Its cache starts empty; call Registry.Refresh to load it.
func (m *TabManager) Open() *Tab {
	ep := m.open()
	tab := &Tab{
		ID:       uuid.NewString(),
		Registry: NewRegistry(m.store, ep, m.guard),
		OpenedAt: time.Now().UTC(),
		endpoint: ep,
	}

	m.mu.Lock()
	m.tabs[tab.ID] = tab
	m.mu.Unlock()

	slog.Info("tab opened", "tab_id", tab.ID, "endpoint_id", ep.ID())
	return tab
}

// Get returns the tab with the given id, or model.ErrTabNotFound.
func (m *TabManager) Get(id string) (*Tab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tab, ok := m.tabs[id]
	if !ok {
		return nil, fmt.Errorf("get tab %s: %w", id, model.ErrTabNotFound)
	}
	return tab, nil
}

// Close detaches the tab's registry and closes its endpoint.
func (m *TabManager) Close(id string) error {
	m.mu.Lock()
	tab, ok := m.tabs[id]
	delete(m.tabs, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("close tab %s: %w", id, model.ErrTabNotFound)
	}
	return closeTab(tab)
}

// CloseAll closes every open tab. Returns the first error encountered.
func (m *TabManager) CloseAll() error {
	m.mu.Lock()
	tabs := m.tabs
	m.tabs = make(map[string]*Tab)
	m.mu.Unlock()

	var firstErr error
	for _, tab := range tabs {
		if err := closeTab(tab); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Count returns the number of open tabs.
func (m *TabManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tabs)
}

func closeTab(tab *Tab) error {
	tab.Registry.Close()
	if err := tab.endpoint.Close(); err != nil {
		return fmt.Errorf("close tab %s endpoint: %w", tab.ID, err)
	}
	slog.Info("tab closed", "tab_id", tab.ID)
	return nil
}
