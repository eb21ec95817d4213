package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	values  map[string]string
	expires time.Time
}

// MemoryStore keeps sessions in process memory. Suitable for a single
// instance; expired entries are dropped by Purge.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore constructs a memory store whose sessions live for ttl after
// their last write. A non-positive ttl keeps sessions until deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, entries: map[string]*memoryEntry{}, now: time.Now}
}

// Load returns a copy of the stored session.
func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok || m.expired(entry) {
		delete(m.entries, id)
		return nil, ErrNotFound
	}
	return load(id, entry.values).bind(m), nil
}

// Apply merges changes into the stored session.
func (m *MemoryStore) Apply(_ context.Context, id string, changes Changes) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.entry(id, changes.Cleared)
	for k, v := range changes.Set {
		entry.values[k] = v
	}
	for _, k := range changes.Deleted {
		delete(entry.values, k)
	}
	m.touch(entry)
	return nil
}

// SetIfAbsent writes field only when the session does not hold it yet.
func (m *MemoryStore) SetIfAbsent(_ context.Context, id, field, value string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.entry(id, false)
	if existing, ok := entry.values[field]; ok {
		value = existing
	} else {
		entry.values[field] = value
	}
	m.touch(entry)
	return value, nil
}

// Delete removes the session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// Purge drops expired sessions and returns how many were removed.
func (m *MemoryStore) Purge(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, entry := range m.entries {
		if m.expired(entry) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// entry returns the live entry for id, replacing it when reset is set or the
// stored one has expired. Callers hold m.mu.
func (m *MemoryStore) entry(id string, reset bool) *memoryEntry {
	entry, ok := m.entries[id]
	if !ok || reset || m.expired(entry) {
		entry = &memoryEntry{values: map[string]string{}}
		m.entries[id] = entry
	}
	return entry
}

func (m *MemoryStore) touch(entry *memoryEntry) {
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
}

func (m *MemoryStore) expired(entry *memoryEntry) bool {
	return !entry.expires.IsZero() && m.now().After(entry.expires)
}
