package handler

import (
	"context"
	"fmt"
	"sync"

	"github.com/rl1809/cached-inventory/internal/core/domain"
	"github.com/rl1809/cached-inventory/internal/core/service"
)

// fakeStock is an in-memory StockService that fails on demand.
type fakeStock struct {
	mu    sync.Mutex
	stock map[domain.ItemID]int64
	err   error // returned by every call when set
}

func newFakeStock(stock map[domain.ItemID]int64) *fakeStock {
	return &fakeStock{stock: stock}
}

func (f *fakeStock) GetStock(ctx context.Context, itemID domain.ItemID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.stock[itemID], nil
}

func (f *fakeStock) Retrieve(ctx context.Context, itemID domain.ItemID, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if amount <= 0 {
		return fmt.Errorf("%w: %d", service.ErrInvalidAmount, amount)
	}
	if f.stock[itemID] < amount {
		return service.ErrInsufficientStock
	}
	f.stock[itemID] -= amount
	return nil
}

func (f *fakeStock) Restock(ctx context.Context, itemID domain.ItemID, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if amount <= 0 {
		return fmt.Errorf("%w: %d", service.ErrInvalidAmount, amount)
	}
	f.stock[itemID] += amount
	return nil
}
