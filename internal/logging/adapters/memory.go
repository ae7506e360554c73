package adapters

import (
	"sync"

	"jobharvest/internal/logging/types"
)

// MemoryAdapter keeps entries in memory. Used by tests to assert on log output.
type MemoryAdapter struct {
	name    string
	entries []types.LogEntry
	mu      sync.Mutex
}

func NewMemoryAdapter(name string) *MemoryAdapter {
	return &MemoryAdapter{name: name}
}

func (a *MemoryAdapter) Write(entry *types.LogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *entry)
	return nil
}

// Entries returns a copy of everything written so far
func (a *MemoryAdapter) Entries() []types.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.LogEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Messages returns the message of every entry at or above level
func (a *MemoryAdapter) Messages(level types.LogLevel) []string {
	var out []string
	for _, e := range a.Entries() {
		if e.Level >= level {
			out = append(out, e.Message)
		}
	}
	return out
}

func (a *MemoryAdapter) Close() error { return nil }
func (a *MemoryAdapter) Name() string { return a.name }
