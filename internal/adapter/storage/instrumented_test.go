package storage

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rl1809/cached-inventory/internal/metrics"
)

func TestInstrumented_RecordsCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	w := NewInstrumented(NewMemoryAdapter(10, 0), m)

	ctx := context.Background()
	if _, err := w.GetStock(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.UpdateStock(ctx, 1, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := w.GetStock(canceled, 1); err == nil {
		t.Fatal("expected error on canceled context")
	}

	n, err := testutil.GatherAndCount(reg, "cached_inventory_warehouse_calls_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	// get_stock ok, get_stock error, update_stock ok
	if n != 3 {
		t.Errorf("expected 3 series, got %d", n)
	}
}
