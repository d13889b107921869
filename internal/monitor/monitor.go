// Package monitor implements the process-wide append-only observation list
// described in spec.md section 3 and section 5's shared-resource policy:
// any task may append a summary, any task may read the whole list, and
// nothing may mutate or remove an entry once appended.
package monitor

import "sync"

// TaskforceSummary is a minimal, immutable-by-convention snapshot of one
// taskforce's lifetime, appended to by the JEL watcher as it discovers
// clusters and never edited in place -- callers that want current
// aggregate numbers read ClusterInfo directly; this list exists purely for
// other components to observe which taskforces have been seen.
type TaskforceSummary struct {
	TaskforceUUID string
	ClusterID     int
}

// List is an append-only, concurrency-safe collection of TaskforceSummary
// values. The zero value is ready to use.
type List struct {
	mu    sync.RWMutex
	items []TaskforceSummary
}

// Append adds a summary. It never fails and never replaces an entry.
func (l *List) Append(s TaskforceSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, s)
}

// Snapshot returns a copy of the current contents. Mutating the returned
// slice does not affect the list.
func (l *List) Snapshot() []TaskforceSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]TaskforceSummary, len(l.items))
	copy(out, l.items)
	return out
}

// Len reports the number of appended entries.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}
