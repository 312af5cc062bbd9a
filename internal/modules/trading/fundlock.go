package trading

import "sync"

// fundLocks serialises availability-check-through-commit per fund. Without
// it two BUYs can each observe enough cash and both commit (double-spend).
// Locks are created on first use and never released back; the fund universe
// is small and long-lived.
type fundLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newFundLocks() *fundLocks {
	return &fundLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the fund's lock and returns the unlock function.
func (f *fundLocks) Lock(fundID int64) func() {
	f.mu.Lock()
	lock, ok := f.locks[fundID]
	if !ok {
		lock = &sync.Mutex{}
		f.locks[fundID] = lock
	}
	f.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
