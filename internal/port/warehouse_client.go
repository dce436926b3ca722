package port

import (
	"context"

	"github.com/rl1809/cached-inventory/internal/core/domain"
)

// WarehouseClient is the authoritative stock system behind the cache.
// Calls are slow and may fail; implementations must honor ctx deadlines.
type WarehouseClient interface {
	// GetStock returns the authoritative quantity for an item
	GetStock(ctx context.Context, itemID domain.ItemID) (int64, error)

	// UpdateStock overwrites the authoritative quantity for an item
	UpdateStock(ctx context.Context, itemID domain.ItemID, quantity int64) error
}
