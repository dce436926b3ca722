package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rl1809/cached-inventory/internal/core/domain"
)

// recorder is a FlushFunc that counts calls per item and can be told to fail.
type recorder struct {
	mu       sync.Mutex
	calls    map[domain.ItemID]int
	attempts []int
	failures atomic.Int32 // remaining calls that fail
}

func newRecorder() *recorder {
	return &recorder{calls: make(map[domain.ItemID]int)}
}

func (r *recorder) flush(ctx context.Context, id domain.ItemID, attempt int) error {
	r.mu.Lock()
	r.calls[id]++
	r.attempts = append(r.attempts, attempt)
	r.mu.Unlock()
	if r.failures.Add(-1) >= 0 {
		return errors.New("warehouse down")
	}
	return nil
}

func (r *recorder) count(id domain.ItemID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestArm_CoalescesBurst(t *testing.T) {
	rec := newRecorder()
	d := New(rec.flush, Options{Delay: 80 * time.Millisecond})

	if absorbed, err := d.Arm(1); absorbed || err != nil {
		t.Fatalf("first arm: absorbed=%v err=%v", absorbed, err)
	}
	for i := 0; i < 9; i++ {
		time.Sleep(10 * time.Millisecond)
		if absorbed, _ := d.Arm(1); !absorbed {
			t.Fatalf("arm %d should have been absorbed by the pending flush", i+2)
		}
	}
	if d.Pending() != 1 {
		t.Fatalf("expected 1 pending flush, got %d", d.Pending())
	}

	waitFor(t, time.Second, func() bool { return rec.count(1) == 1 })
	time.Sleep(150 * time.Millisecond)

	if got := rec.count(1); got != 1 {
		t.Fatalf("expected exactly 1 flush, got %d", got)
	}
	if d.Pending() != 0 {
		t.Fatalf("expected no pending flush, got %d", d.Pending())
	}
}

func TestArm_DelayRestartsOnEveryMutation(t *testing.T) {
	rec := newRecorder()
	d := New(rec.flush, Options{Delay: 60 * time.Millisecond})

	// Mutations every 30ms for ~180ms; the total span exceeds the delay but
	// no gap does, so nothing may flush until the burst ends.
	for i := 0; i < 6; i++ {
		d.Arm(1)
		time.Sleep(30 * time.Millisecond)
	}
	if got := rec.count(1); got != 0 {
		t.Fatalf("flushed %d times during the burst", got)
	}
	waitFor(t, time.Second, func() bool { return rec.count(1) == 1 })
}

func TestArm_IndependentItems(t *testing.T) {
	rec := newRecorder()
	d := New(rec.flush, Options{Delay: 30 * time.Millisecond})

	d.Arm(1)
	d.Arm(2)
	d.Arm(3)

	waitFor(t, time.Second, func() bool {
		return rec.count(1) == 1 && rec.count(2) == 1 && rec.count(3) == 1
	})
}

func TestArm_AfterFireSchedulesAgain(t *testing.T) {
	rec := newRecorder()
	d := New(rec.flush, Options{Delay: 20 * time.Millisecond})

	d.Arm(1)
	waitFor(t, time.Second, func() bool { return rec.count(1) == 1 })

	if absorbed, _ := d.Arm(1); absorbed {
		t.Fatal("arm after a completed flush must start a new pending flush")
	}
	waitFor(t, time.Second, func() bool { return rec.count(1) == 2 })
}

func TestFire_RetriesFailedFlush(t *testing.T) {
	rec := newRecorder()
	rec.failures.Store(2)
	d := New(rec.flush, Options{
		Delay:         20 * time.Millisecond,
		RetryDelay:    10 * time.Millisecond,
		MaxRetryDelay: 40 * time.Millisecond,
	})

	d.Arm(1)
	waitFor(t, 2*time.Second, func() bool { return rec.count(1) == 3 })

	rec.mu.Lock()
	attempts := append([]int(nil), rec.attempts...)
	rec.mu.Unlock()
	want := []int{1, 2, 3}
	for i, a := range want {
		if attempts[i] != a {
			t.Fatalf("expected attempts %v, got %v", want, attempts)
		}
	}

	time.Sleep(100 * time.Millisecond)
	if got := rec.count(1); got != 3 {
		t.Fatalf("expected no flush after success, got %d calls", got)
	}
}

func TestBackoff_Capped(t *testing.T) {
	d := New(nil, Options{
		Delay:         time.Second,
		RetryDelay:    100 * time.Millisecond,
		MaxRetryDelay: 500 * time.Millisecond,
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 500 * time.Millisecond},
		{50, 500 * time.Millisecond},
	}
	for _, tc := range tests {
		if got := d.backoff(tc.attempt); got != tc.want {
			t.Errorf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

func TestDrain_FlushesPendingImmediately(t *testing.T) {
	rec := newRecorder()
	d := New(rec.flush, Options{Delay: time.Hour})

	d.Arm(1)
	d.Arm(2)

	if err := d.Drain(context.Background()); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if rec.count(1) != 1 || rec.count(2) != 1 {
		t.Fatalf("expected one flush per item, got %d and %d", rec.count(1), rec.count(2))
	}
	if d.Pending() != 0 {
		t.Fatalf("expected nothing pending after drain, got %d", d.Pending())
	}

	// Closed: later arms are rejected and a second drain is a no-op.
	if _, err := d.Arm(3); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after drain, got %v", err)
	}
	if d.Pending() != 0 {
		t.Fatal("rejected arm must not leave a pending flush")
	}
	if err := d.Drain(context.Background()); err != nil {
		t.Fatalf("second drain failed: %v", err)
	}
	if rec.count(3) != 0 {
		t.Fatal("arm after drain must not flush")
	}
}

func TestDrain_ReportsFailures(t *testing.T) {
	rec := newRecorder()
	rec.failures.Store(1)
	d := New(rec.flush, Options{Delay: time.Hour})

	d.Arm(7)

	err := d.Drain(context.Background())
	if err == nil {
		t.Fatal("expected drain to report the failed flush")
	}
}

func TestDrain_WaitsForInflightAndReflushesFailure(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	flush := func(ctx context.Context, id domain.ItemID, attempt int) error {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return errors.New("timeout")
		}
		return nil
	}
	d := New(flush, Options{Delay: 10 * time.Millisecond})

	d.Arm(1)
	<-started

	done := make(chan error, 1)
	go func() { done <- d.Drain(context.Background()) }()

	select {
	case <-done:
		t.Fatal("drain returned while a flush was still running")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected the failed in-flight flush to be retried once, got %d calls", got)
	}
}
