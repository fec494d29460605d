package install

import "sync"

// namedLocks serializes work per key. Entries are dropped once no holder or
// waiter remains.
type namedLocks struct {
	mu    sync.Mutex
	locks map[string]*namedLock
}

type namedLock struct {
	mu  sync.Mutex
	ref int
}

func newNamedLocks() *namedLocks {
	return &namedLocks{locks: make(map[string]*namedLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (n *namedLocks) Lock(key string) func() {
	n.mu.Lock()
	l, ok := n.locks[key]
	if !ok {
		l = &namedLock{}
		n.locks[key] = l
	}
	l.ref++
	n.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		n.mu.Lock()
		if l.ref--; l.ref == 0 {
			delete(n.locks, key)
		}
		n.mu.Unlock()
	}
}

func (n *namedLocks) len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.locks)
}
