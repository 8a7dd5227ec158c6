package shared

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
)

const (
	// SessionLogSize is the default maximum number of entries for a session log.
	SessionLogSize = 100
)

// SessionLogEntry represents a unit timestamped diagnostic entry.
type SessionLogEntry struct {
	Time    time.Time
	Message string
}

// SessionLog represents a bounded queue of diagnostic entries for a scan
// session. The oldest entry is evicted once the log is at capacity.
type SessionLog struct {
	data    []SessionLogEntry
	dataMtx sync.RWMutex
	start   atomic.Int32
	count   atomic.Int32
	size    atomic.Int32
}

// NewSessionLog initializes a new session log.
func NewSessionLog(size int32) (*SessionLog, error) {
	if size <= 0 {
		return nil, errors.New("session log size must be positive")
	}

	log := &SessionLog{
		data: make([]SessionLogEntry, size),
	}

	log.size.Store(size)
	return log, nil
}

// Logf records a formatted diagnostic entry, evicting the oldest entry when
// the log is at capacity.
func (l *SessionLog) Logf(format string, args ...interface{}) {
	l.dataMtx.Lock()
	defer l.dataMtx.Unlock()

	start := l.start.Load()
	count := l.count.Load()
	size := l.size.Load()
	end := (start + count) % size
	l.data[end] = SessionLogEntry{
		Time:    time.Now(),
		Message: fmt.Sprintf(format, args...),
	}

	if count == size {
		// Overwrite the oldest entry when the log is at capacity.
		l.start.Store((start + 1) % size)
	} else {
		l.count.Add(1)
	}
}

// Entries returns the log entries in oldest-first order.
func (l *SessionLog) Entries() []SessionLogEntry {
	l.dataMtx.RLock()
	defer l.dataMtx.RUnlock()

	start := l.start.Load()
	count := l.count.Load()
	size := l.size.Load()

	entries := make([]SessionLogEntry, count)
	for i := int32(0); i < count; i++ {
		entries[i] = l.data[(start+i)%size]
	}

	return entries
}

// Len returns the number of entries currently held by the log.
func (l *SessionLog) Len() int32 {
	return l.count.Load()
}

// Clear discards all entries from the log.
func (l *SessionLog) Clear() {
	l.dataMtx.Lock()
	defer l.dataMtx.Unlock()

	l.start.Store(0)
	l.count.Store(0)
}
