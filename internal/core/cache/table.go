// Package cache holds the in-memory state shared by all callers: the table of
// cached quantities and the registry of per-item locks.
package cache

import (
	"sync"

	"github.com/rl1809/cached-inventory/internal/core/domain"
)

// Table maps item IDs to their last known quantity. Entries are never
// removed. The RWMutex only guards map access; per-item consistency is the
// job of the LockRegistry.
type Table struct {
	mu   sync.RWMutex
	data map[domain.ItemID]int64
}

func NewTable() *Table { return &Table{data: make(map[domain.ItemID]int64)} }

func (t *Table) Get(id domain.ItemID) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	q, ok := t.data[id]
	return q, ok
}

func (t *Table) Set(id domain.ItemID, quantity int64) {
	t.mu.Lock()
	t.data[id] = quantity
	t.mu.Unlock()
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data)
}
