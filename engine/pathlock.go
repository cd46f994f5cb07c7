package engine

import (
	"path/filepath"
	"sync"
)

// pathLocks serializes open→mutate→save cycles per workbook path, so
// parallel transports (the websocket listener) cannot lose updates.
// Operations on distinct paths proceed independently.
type pathLocks struct {
	mu sync.Mutex
	m  map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the mutex for path and returns its release func.
func (e *Engine) lock(path string) func() {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	return e.locks.acquire(key)
}

func (l *pathLocks) acquire(key string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*pathLock)
	}
	entry, ok := l.m[key]
	if !ok {
		entry = &pathLock{}
		l.m[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.m, key)
		}
		l.mu.Unlock()
	}
}
