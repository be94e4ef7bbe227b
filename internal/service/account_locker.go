package service

import (
	"sync"
	"time"
)

// accountLocker serializes commitments per account. Concurrent PlaceOrder
// calls for the same buyer queue on a one-slot channel; a caller that
// cannot get the slot within the wait bound gives up instead of queuing
// unboundedly.
type accountLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newAccountLocker() *accountLocker {
	return &accountLocker{slots: make(map[string]chan struct{})}
}

func (l *accountLocker) acquire(email string, wait time.Duration) bool {
	l.mu.Lock()
	slot, ok := l.slots[email]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[email] = slot
	}
	l.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

func (l *accountLocker) release(email string) {
	l.mu.Lock()
	slot := l.slots[email]
	l.mu.Unlock()
	if slot != nil {
		<-slot
	}
}
