package booking

import "sync"

// bucketLocks hands out one mutex per bucket key so that the
// decide-then-persist sequence in Reserve and the waitlist shuffle in
// promotion run as a critical section per (branch, date, time), while
// operations on unrelated buckets proceed in parallel.  Entries are
// reference counted and removed once the last holder releases, so
// the map does not grow with the number of buckets ever seen.
type bucketLocks struct {
	mu   sync.Mutex
	held map[string]*bucketLock
}

type bucketLock struct {
	sync.Mutex
	refs int
}

func newBucketLocks() *bucketLocks {
	return &bucketLocks{held: make(map[string]*bucketLock)}
}

// acquire blocks until the caller holds the lock for key.  Every
// acquire must be paired with a release for the same key.
func (l *bucketLocks) acquire(key string) *bucketLock {
	l.mu.Lock()
	lk, ok := l.held[key]
	if !ok {
		lk = &bucketLock{}
		l.held[key] = lk
	}
	lk.refs++
	l.mu.Unlock()
	lk.Lock()
	return lk
}

// release unlocks the bucket lock and drops the map entry when no
// other goroutine is waiting on it.
func (l *bucketLocks) release(key string, lk *bucketLock) {
	lk.Unlock()
	l.mu.Lock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.held, key)
	}
	l.mu.Unlock()
}
