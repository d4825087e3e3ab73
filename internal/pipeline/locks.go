package pipeline

import "sync"

// threadLocks is a refcounted arena of per-conversation mutexes. Two
// inbound messages on the same thread serialize here so the second run
// sees the first run's appended turn; acquisition blocks, it never
// fails. Entries are dropped once the last holder releases, so the
// arena never grows with conversation count.
type threadLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newThreadLocks() *threadLocks {
	return &threadLocks{entries: make(map[string]*lockEntry)}
}

// acquire blocks until the thread's mutex is held and returns the
// release function. Distinct keys never contend.
func (l *threadLocks) acquire(key string) (release func()) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}
