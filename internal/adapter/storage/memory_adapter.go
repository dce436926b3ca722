package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/cached-inventory/internal/core/domain"
)

// MemoryAdapter is an in-process warehouse that behaves like a slow remote
// system: every call waits for latency (or ctx) before touching state.
// Items that were never written report seedStock.
type MemoryAdapter struct {
	latency   time.Duration
	seedStock int64

	mu     sync.RWMutex
	stock  map[domain.ItemID]int64
	writes map[domain.ItemID]int
}

func NewMemoryAdapter(seedStock int64, latency time.Duration) *MemoryAdapter {
	return &MemoryAdapter{
		latency:   latency,
		seedStock: seedStock,
		stock:     make(map[domain.ItemID]int64),
		writes:    make(map[domain.ItemID]int),
	}
}

func (m *MemoryAdapter) GetStock(ctx context.Context, itemID domain.ItemID) (int64, error) {
	if err := m.wait(ctx); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if q, ok := m.stock[itemID]; ok {
		return q, nil
	}
	return m.seedStock, nil
}

func (m *MemoryAdapter) UpdateStock(ctx context.Context, itemID domain.ItemID, quantity int64) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.stock[itemID] = quantity
	m.writes[itemID]++
	m.mu.Unlock()
	return nil
}

// Writes returns how many times an item has been written.
func (m *MemoryAdapter) Writes(itemID domain.ItemID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes[itemID]
}

func (m *MemoryAdapter) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
