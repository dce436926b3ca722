package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rl1809/cached-inventory/internal/core/cache"
	"github.com/rl1809/cached-inventory/internal/core/domain"
	"github.com/rl1809/cached-inventory/internal/core/scheduler"
	"github.com/rl1809/cached-inventory/internal/logging"
	"github.com/rl1809/cached-inventory/internal/metrics"
	"github.com/rl1809/cached-inventory/internal/port"
)

var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrBackingStoreUnavailable = errors.New("backing store unavailable")
	ErrClosed                  = errors.New("stock service closed")
)

const (
	opGet      = "get"
	opRetrieve = "retrieve"
	opRestock  = "restock"
)

type Options struct {
	FlushDelay     time.Duration
	RetryDelay     time.Duration
	MaxRetryDelay  time.Duration
	FetchTimeout   time.Duration
	PersistTimeout time.Duration

	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// StockService is a write-back cache in front of the warehouse. Reads are
// served from memory after the first fetch; mutations are applied in memory
// under a per-item lock and written back once the item has been quiet for
// FlushDelay.
type StockService struct {
	warehouse port.WarehouseClient
	table     *cache.Table
	locks     *cache.LockRegistry
	flusher   *scheduler.Debouncer
	opts      Options
	log       logging.Logger
	metrics   *metrics.Metrics
	closed    atomic.Bool
}

func NewStockService(warehouse port.WarehouseClient, opts Options) *StockService {
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 2500 * time.Millisecond
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Second
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop
	}

	s := &StockService{
		warehouse: warehouse,
		table:     cache.NewTable(),
		locks:     cache.NewLockRegistry(),
		opts:      opts,
		log:       opts.Logger,
		metrics:   opts.Metrics,
	}
	s.flusher = scheduler.New(s.flush, scheduler.Options{
		Delay:         opts.FlushDelay,
		RetryDelay:    opts.RetryDelay,
		MaxRetryDelay: opts.MaxRetryDelay,
		Logger:        opts.Logger,
		Metrics:       opts.Metrics,
	})
	return s
}

// GetStock returns the cached quantity, fetching it from the warehouse on
// the first access. Concurrent first reads of one item share a single fetch.
func (s *StockService) GetStock(ctx context.Context, itemID domain.ItemID) (int64, error) {
	if q, ok := s.table.Get(itemID); ok {
		s.metrics.ObserveOperation(opGet, metrics.ResultOK)
		return q, nil
	}

	l := s.locks.For(itemID)
	l.Mu.Lock()
	defer l.Mu.Unlock()

	q, err := s.resolveLocked(ctx, itemID)
	if err != nil {
		s.metrics.ObserveOperation(opGet, resultOf(err))
		return 0, err
	}
	s.metrics.ObserveOperation(opGet, metrics.ResultOK)
	return q, nil
}

// Retrieve withdraws amount units of an item. It fails with
// ErrInsufficientStock, leaving the quantity untouched, when fewer than
// amount units are cached.
func (s *StockService) Retrieve(ctx context.Context, itemID domain.ItemID, amount int64) error {
	err := s.mutate(ctx, itemID, amount, func(current int64) (int64, error) {
		if current < amount {
			return 0, fmt.Errorf("%w: item %d has %d, requested %d", ErrInsufficientStock, itemID, current, amount)
		}
		return current - amount, nil
	})
	s.metrics.ObserveOperation(opRetrieve, resultOf(err))
	return err
}

// Restock adds amount units to an item.
func (s *StockService) Restock(ctx context.Context, itemID domain.ItemID, amount int64) error {
	err := s.mutate(ctx, itemID, amount, func(current int64) (int64, error) {
		if current > math.MaxInt64-amount {
			return 0, fmt.Errorf("%w: restocking %d would overflow item %d", ErrInvalidAmount, amount, itemID)
		}
		return current + amount, nil
	})
	s.metrics.ObserveOperation(opRestock, resultOf(err))
	return err
}

// PendingFlushes reports how many items have unflushed mutations.
func (s *StockService) PendingFlushes() int {
	return s.flusher.Pending()
}

// Close rejects further mutations and writes every pending item back to the
// warehouse before returning. Items that could not be written are reported in
// the returned error.
func (s *StockService) Close(ctx context.Context) error {
	s.closed.Store(true)
	return s.flusher.Drain(ctx)
}

func (s *StockService) mutate(ctx context.Context, itemID domain.ItemID, amount int64, apply func(int64) (int64, error)) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if s.closed.Load() {
		return ErrClosed
	}

	l := s.locks.For(itemID)
	l.Mu.Lock()
	defer l.Mu.Unlock()

	current, err := s.resolveLocked(ctx, itemID)
	if err != nil {
		return err
	}
	next, err := apply(current)
	if err != nil {
		return err
	}
	// Close may have drained the scheduler while this call was fetching; the
	// mutation is only committed once its flush is scheduled.
	if _, err := s.flusher.Arm(itemID); err != nil {
		if errors.Is(err, scheduler.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	s.table.Set(itemID, next)
	return nil
}

// resolveLocked returns the cached quantity, reading it through from the
// warehouse on a miss. The caller must hold the item lock.
func (s *StockService) resolveLocked(ctx context.Context, itemID domain.ItemID) (int64, error) {
	if q, ok := s.table.Get(itemID); ok {
		return q, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	q, err := s.warehouse.GetStock(ctx, itemID)
	if err != nil {
		s.log.Warn("fetch-through read failed", logging.Fields{"item_id": itemID, "err": err})
		return 0, fmt.Errorf("%w: get stock for item %d: %w", ErrBackingStoreUnavailable, itemID, err)
	}
	if q < 0 {
		return 0, fmt.Errorf("%w: warehouse returned negative stock %d for item %d", ErrBackingStoreUnavailable, q, itemID)
	}
	s.table.Set(itemID, q)
	s.metrics.SetCachedItems(s.table.Len())
	s.log.Debug("stock cached", logging.Fields{"item_id": itemID, "quantity": q})
	return q, nil
}

// flush writes the current cached quantity of an item to the warehouse. It is
// called by the scheduler, never on a caller's path.
func (s *StockService) flush(ctx context.Context, itemID domain.ItemID, attempt int) error {
	l := s.locks.For(itemID)
	l.Flush.Lock()
	defer l.Flush.Unlock()

	l.Mu.Lock()
	q, ok := s.table.Get(itemID)
	l.Mu.Unlock()
	if !ok {
		return nil
	}

	f := domain.NewFlush(itemID, q, attempt)
	ctx, cancel := context.WithTimeout(ctx, s.opts.PersistTimeout)
	defer cancel()

	err := s.warehouse.UpdateStock(ctx, itemID, q)
	s.metrics.ObserveFlush(err)
	if err != nil {
		s.log.Error("flush failed", logging.Fields{
			"flush_id": f.ID.String(),
			"item_id":  itemID,
			"quantity": q,
			"attempt":  attempt,
			"err":      err,
		})
		return fmt.Errorf("%w: update stock for item %d: %w", ErrBackingStoreUnavailable, itemID, err)
	}
	s.log.Info("stock flushed", logging.Fields{
		"flush_id": f.ID.String(),
		"item_id":  itemID,
		"quantity": q,
		"attempt":  attempt,
		"took":     time.Since(f.StartedAt).String(),
	})
	return nil
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrInvalidAmount):
		return metrics.ResultInvalidAmount
	case errors.Is(err, ErrInsufficientStock):
		return metrics.ResultInsufficientStock
	case errors.Is(err, ErrBackingStoreUnavailable):
		return metrics.ResultUnavailable
	case errors.Is(err, ErrClosed):
		return metrics.ResultClosed
	default:
		return metrics.ResultError
	}
}
