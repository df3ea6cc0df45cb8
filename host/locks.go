package host

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/semaphore"
)

// keyLocks is a set of exclusive locks addressed by storage keys. Unused
// locks are dropped.
type keyLocks struct {
	mtx   sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// acquire locks all given keys in sorted order and returns the function
// releasing them. It fails only if ctx is done before all keys are locked,
// in this case nothing stays locked.
func (l *keyLocks) acquire(ctx context.Context, keys [][]byte) (func(), error) {
	ks := make([]string, len(keys))
	for i := range keys {
		ks[i] = string(keys[i])
	}

	slices.Sort(ks)
	ks = slices.Compact(ks)

	held := make([]string, 0, len(ks))

	for _, k := range ks {
		kl := l.ref(k)

		err := kl.sem.Acquire(ctx, 1)
		if err != nil {
			l.unref(k)
			l.release(held)
			return nil, err
		}

		held = append(held, k)
	}

	return func() { l.release(held) }, nil
}

func (l *keyLocks) release(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mtx.Lock()
		kl := l.locks[keys[i]]
		l.mtx.Unlock()

		kl.sem.Release(1)
		l.unref(keys[i])
	}
}

func (l *keyLocks) ref(k string) *keyLock {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	kl, ok := l.locks[k]
	if !ok {
		kl = &keyLock{sem: semaphore.NewWeighted(1)}
		l.locks[k] = kl
	}
	kl.refs++

	return kl
}

func (l *keyLocks) unref(k string) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	kl := l.locks[k]
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, k)
	}
}

// size returns the number of tracked keys.
func (l *keyLocks) size() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.locks)
}
