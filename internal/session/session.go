// Package session provides server-side browser sessions for the admin panel.
package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by stores when no session exists for an id.
var ErrNotFound = errors.New("session: not found")

// Session is the mutable key-value state scoped to one browser session.
// Changes are buffered and applied to the Store on Save.
type Session struct {
	ID string

	mu      sync.Mutex
	values  map[string]string
	changed map[string]struct{}
	cleared bool
	isNew   bool
	store   Store
}

// New returns an empty session with the given id.
func New(id string) *Session {
	return &Session{ID: id, values: map[string]string{}, isNew: true}
}

func load(id string, values map[string]string) *Session {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Session{ID: id, values: copied}
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *Session) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.mark(key)
}

// SetIfAbsent stores value under key unless a value already exists and
// returns the value that ended up stored. For a session bound to a store the
// write goes straight to the store, so concurrent requests on the same
// session agree on a single winner. A session cleared in this request
// buffers the write; its stored state is replaced on Save anyway.
func (s *Session) SetIfAbsent(ctx context.Context, key, value string) (string, error) {
	s.mu.Lock()
	if existing, ok := s.values[key]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	store := s.store
	if store == nil || s.cleared {
		s.values[key] = value
		s.mark(key)
		s.mu.Unlock()
		return value, nil
	}
	s.mu.Unlock()

	winner, err := store.SetIfAbsent(ctx, s.ID, key, value)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.values[key]; ok {
		return existing, nil
	}
	s.values[key] = winner
	return winner, nil
}

// Pop returns and removes the value under key.
func (s *Session) Pop(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if ok {
		delete(s.values, key)
		s.mark(key)
	}
	return v, ok
}

// Delete removes key.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	s.mark(key)
}

// Clear removes every key, including the CSRF token.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = map[string]string{}
	s.changed = nil
	s.cleared = true
}

// IsNew reports whether the session has never been persisted.
func (s *Session) IsNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isNew
}

// bind attaches the store that SetIfAbsent writes through.
func (s *Session) bind(store Store) *Session {
	s.store = store
	return s
}

func (s *Session) mark(key string) {
	if s.changed == nil {
		s.changed = map[string]struct{}{}
	}
	s.changed[key] = struct{}{}
}

// Changes describes the pending modifications of a session.
type Changes struct {
	Cleared bool
	Set     map[string]string
	Deleted []string
}

// Empty reports whether there is nothing to persist.
func (c Changes) Empty() bool {
	return !c.Cleared && len(c.Set) == 0 && len(c.Deleted) == 0
}

// pending snapshots and resets the buffered changes.
func (s *Session) pending() Changes {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := Changes{Cleared: s.cleared, Set: map[string]string{}}
	for key := range s.changed {
		if v, ok := s.values[key]; ok {
			ch.Set[key] = v
		} else {
			ch.Deleted = append(ch.Deleted, key)
		}
	}
	if s.cleared {
		for k, v := range s.values {
			ch.Set[k] = v
		}
	}

	s.changed = nil
	s.cleared = false
	s.isNew = false
	return ch
}

// Store persists sessions.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Apply(ctx context.Context, id string, changes Changes) error
	Delete(ctx context.Context, id string) error
	// SetIfAbsent atomically writes field unless it is already set and
	// returns the stored value. It creates the session when missing.
	SetIfAbsent(ctx context.Context, id, field, value string) (string, error)
}

// Save writes the pending changes of sess to store. Sessions without
// changes are not written.
func Save(ctx context.Context, store Store, sess *Session) error {
	ch := sess.pending()
	if ch.Empty() {
		return nil
	}
	return store.Apply(ctx, sess.ID, ch)
}
