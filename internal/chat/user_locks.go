package chat

import "sync"

type userLock struct {
	sync.Mutex
	refs int
}

// userLocks serializes the load-modify-save cycle per username. Entries are
// dropped once no goroutine holds or waits on them.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

func (l *userLocks) acquire(username string) (release func()) {
	l.mu.Lock()
	lock, ok := l.locks[username]
	if !ok {
		lock = &userLock{}
		l.locks[username] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.Lock()

	return func() {
		lock.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, username)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
