package storage

import (
	"context"
	"time"

	"github.com/rl1809/cached-inventory/internal/core/domain"
	"github.com/rl1809/cached-inventory/internal/metrics"
	"github.com/rl1809/cached-inventory/internal/port"
)

// Instrumented records latency and outcome of every warehouse call.
type Instrumented struct {
	next    port.WarehouseClient
	metrics *metrics.Metrics
}

var _ port.WarehouseClient = (*Instrumented)(nil)

func NewInstrumented(next port.WarehouseClient, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

func (i *Instrumented) GetStock(ctx context.Context, itemID domain.ItemID) (int64, error) {
	start := time.Now()
	q, err := i.next.GetStock(ctx, itemID)
	i.metrics.ObserveWarehouseCall("get_stock", time.Since(start), err)
	return q, err
}

func (i *Instrumented) UpdateStock(ctx context.Context, itemID domain.ItemID, quantity int64) error {
	start := time.Now()
	err := i.next.UpdateStock(ctx, itemID, quantity)
	i.metrics.ObserveWarehouseCall("update_stock", time.Since(start), err)
	return err
}
