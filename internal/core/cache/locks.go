package cache

import (
	"sync"

	"github.com/rl1809/cached-inventory/internal/core/domain"
)

// ItemLock serializes everything that touches one item.
//
// Mu guards the cached quantity and the pending flush for the item.
// Flush is held for the whole duration of a warehouse write so that two
// flushes of the same item never overlap and a slow earlier write cannot land
// after a later one. Lock order is Flush before Mu.
type ItemLock struct {
	Mu    sync.Mutex
	Flush sync.Mutex
}

// LockRegistry hands out one ItemLock per item, created on first use and kept
// for the life of the process.
type LockRegistry struct {
	locks sync.Map // domain.ItemID -> *ItemLock
}

func NewLockRegistry() *LockRegistry { return &LockRegistry{} }

// For returns the lock for id, creating it if needed.
func (r *LockRegistry) For(id domain.ItemID) *ItemLock {
	if l, ok := r.locks.Load(id); ok {
		return l.(*ItemLock)
	}
	l, _ := r.locks.LoadOrStore(id, &ItemLock{})
	return l.(*ItemLock)
}
