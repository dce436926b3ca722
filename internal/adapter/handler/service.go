package handler

import (
	"context"

	"github.com/rl1809/cached-inventory/internal/core/domain"
)

// StockService is the part of service.StockService the transports use.
type StockService interface {
	GetStock(ctx context.Context, itemID domain.ItemID) (int64, error)
	Retrieve(ctx context.Context, itemID domain.ItemID, amount int64) error
	Restock(ctx context.Context, itemID domain.ItemID, amount int64) error
}
