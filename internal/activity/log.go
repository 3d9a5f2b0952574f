package activity

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"rescueline/internal/domain"
)

// Limit is the number of entries the feed retains.
const Limit = 10

// Log is a bounded, newest-first audit trail of deal lifecycle activity.
type Log struct {
	Now   func() time.Time
	NewID func() string

	mu      sync.Mutex
	entries []domain.Activity
}

func New() *Log {
	return &Log{Now: time.Now, NewID: uuid.NewString}
}

// Append stamps the entry with an id, and with the current time when it has no
// timestamp yet, prepends it and drops anything beyond Limit. It reports whether an older entry was evicted.
func (l *Log) Append(entry domain.Activity) (domain.Activity, bool) {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	newID := uuid.NewString
	if l.NewID != nil {
		newID = l.NewID
	}
	entry.ID = newID()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now()
	}
	if entry.Status == "" {
		entry.Status = domain.ActivityStatusNew
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]domain.Activity, 0, len(l.entries)+1)
	next = append(next, entry)
	next = append(next, l.entries...)
	evicted := false
	if len(next) > Limit {
		next = next[:Limit]
		evicted = true
	}
	l.entries = next
	return entry, evicted
}

// Entries returns a copy of the feed, newest first.
func (l *Log) Entries() []domain.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Activity, len(l.entries))
	copy(out, l.entries)
	return out
}
