// Package scheduler implements the debounced write-back of cached
// quantities. Every item has at most one pending flush; mutations arriving
// before it fires push it back by the full quiet period, so a burst of
// mutations turns into a single warehouse write.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rl1809/cached-inventory/internal/core/domain"
	"github.com/rl1809/cached-inventory/internal/logging"
	"github.com/rl1809/cached-inventory/internal/metrics"
)

const drainConcurrency = 16

// ErrClosed is returned by Arm once Drain has started.
var ErrClosed = errors.New("flush scheduler closed")

// FlushFunc writes the current cached quantity of id to the warehouse.
// attempt starts at 1 and grows with every retry of the same pending write.
type FlushFunc func(ctx context.Context, id domain.ItemID, attempt int) error

type Options struct {
	// Delay is the quiet period after the last mutation before flushing.
	Delay time.Duration
	// RetryDelay is the first backoff after a failed flush; it doubles per
	// attempt up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	Logger  logging.Logger
	Metrics *metrics.Metrics
}

type pendingFlush struct {
	timer *time.Timer
	// attempt counts the failed writes carried over from earlier timers.
	attempt int
}

// Debouncer tracks one pending flush per item.
type Debouncer struct {
	opts    Options
	flush   FlushFunc
	log     logging.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	pending  map[domain.ItemID]*pendingFlush
	requeued map[domain.ItemID]int // failed while closing, flushed again by Drain
	closed   bool
	inflight sync.WaitGroup
}

func New(flush FlushFunc, opts Options) *Debouncer {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = opts.Delay
	}
	if opts.MaxRetryDelay < opts.RetryDelay {
		opts.MaxRetryDelay = opts.RetryDelay
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop
	}
	return &Debouncer{
		opts:     opts,
		flush:    flush,
		log:      log,
		metrics:  opts.Metrics,
		pending:  make(map[domain.ItemID]*pendingFlush),
		requeued: make(map[domain.ItemID]int),
	}
}

// Arm schedules a flush of id after the quiet period, or restarts the quiet
// period when one is already pending. It reports whether the mutation was
// absorbed by a flush that was already pending. After Drain has started
// nothing is scheduled and Arm returns ErrClosed; the caller must not commit
// the mutation.
func (d *Debouncer) Arm(id domain.ItemID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false, ErrClosed
	}

	attempt := 0
	if p, ok := d.pending[id]; ok {
		if p.timer.Stop() {
			p.timer.Reset(d.opts.Delay)
			d.metrics.ObserveCoalesced()
			return true, nil
		}
		// The timer already fired and its callback is waiting for d.mu.
		// Replacing the entry makes that callback a no-op.
		attempt = p.attempt
	}
	d.scheduleLocked(id, d.opts.Delay, attempt)
	return false, nil
}

// Pending returns the number of items waiting to be flushed.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) scheduleLocked(id domain.ItemID, delay time.Duration, attempt int) {
	p := &pendingFlush{attempt: attempt}
	p.timer = time.AfterFunc(delay, func() { d.fire(id, p) })
	d.pending[id] = p
	d.metrics.SetPendingFlushes(len(d.pending))
}

func (d *Debouncer) fire(id domain.ItemID, p *pendingFlush) {
	d.mu.Lock()
	if cur, ok := d.pending[id]; !ok || cur != p {
		d.mu.Unlock()
		return
	}
	delete(d.pending, id)
	d.metrics.SetPendingFlushes(len(d.pending))
	d.inflight.Add(1)
	d.mu.Unlock()
	defer d.inflight.Done()

	attempt := p.attempt + 1
	if err := d.flush(context.Background(), id, attempt); err != nil {
		d.retry(id, attempt, err)
	}
}

func (d *Debouncer) retry(id domain.ItemID, attempt int, cause error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.requeued[id] = attempt
		return
	}
	if p, ok := d.pending[id]; ok {
		// A newer mutation rescheduled the item; that flush will carry the
		// latest quantity anyway.
		p.attempt = attempt
		return
	}
	delay := d.backoff(attempt)
	d.log.Warn("flush rescheduled", logging.Fields{
		"item_id":  id,
		"attempt":  attempt,
		"retry_in": delay.String(),
		"err":      cause,
	})
	d.scheduleLocked(id, delay, attempt)
}

// backoff returns RetryDelay * 2^(attempt-1), capped at MaxRetryDelay.
func (d *Debouncer) backoff(attempt int) time.Duration {
	delay := d.opts.RetryDelay
	for i := 1; i < attempt && delay < d.opts.MaxRetryDelay; i++ {
		delay *= 2
	}
	if delay > d.opts.MaxRetryDelay {
		delay = d.opts.MaxRetryDelay
	}
	return delay
}

// Drain stops the scheduler and synchronously flushes every pending item.
// Flushes already running are waited for first; the ones that fail are
// flushed once more. The returned error joins every item that could not be
// written. Calling Drain more than once is a no-op.
func (d *Debouncer) Drain(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	due := make(map[domain.ItemID]int, len(d.pending))
	for id, p := range d.pending {
		p.timer.Stop()
		due[id] = p.attempt
	}
	clear(d.pending)
	d.mu.Unlock()

	d.inflight.Wait()

	d.mu.Lock()
	for id, attempt := range d.requeued {
		if attempt > due[id] {
			due[id] = attempt
		}
	}
	clear(d.requeued)
	d.metrics.SetPendingFlushes(0)
	d.mu.Unlock()

	if len(due) == 0 {
		return nil
	}
	d.log.Info("draining pending flushes", logging.Fields{"items": len(due)})

	var (
		errMu sync.Mutex
		errs  []error
		g     errgroup.Group
	)
	g.SetLimit(drainConcurrency)
	for id, attempt := range due {
		g.Go(func() error {
			if err := d.flush(ctx, id, attempt+1); err != nil {
				errMu.Lock()
				errs = append(errs, fmt.Errorf("flush item %d: %w", id, err))
				errMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
