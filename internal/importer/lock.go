package importer

import (
	"sync"
	"sync/atomic"
)

// tenantLock is a non-blocking lock built on compare-and-swap
type tenantLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

func (l *tenantLock) tryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

func (l *tenantLock) release() {
	l.state.Store(0)
}

// Locks holds one import lock per tenant. The zero value is ready to use.
type Locks struct {
	locks sync.Map // int64 -> *tenantLock
}

// TryAcquire takes the tenant's lock without blocking. On success it
// returns the release function; it must be called exactly once.
func (l *Locks) TryAcquire(tenantID int64) (release func(), ok bool) {
	v, _ := l.locks.LoadOrStore(tenantID, &tenantLock{})
	lock := v.(*tenantLock)
	if !lock.tryAcquire() {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(lock.release) }, true
}

// Held reports whether an import currently holds the tenant's lock
func (l *Locks) Held(tenantID int64) bool {
	v, ok := l.locks.Load(tenantID)
	return ok && v.(*tenantLock).state.Load() == 1
}
