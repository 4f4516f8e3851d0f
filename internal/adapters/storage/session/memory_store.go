package session

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	values    map[string][]byte
	expiresAt time.Time
}

// MemoryStore is an in-memory session store for a single process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns a copy of the stored value.
// INVARIANT: Store state is not mutated
func (m *MemoryStore) Get(ctx context.Context, id, key string) ([]byte, bool, error) {
	if err := checkID(id); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok || !m.now().Before(sess.expiresAt) {
		return nil, false, nil
	}
	v, ok := sess.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value and refreshes the session expiry.
func (m *MemoryStore) Set(ctx context.Context, id, key string, value []byte) error {
	if err := checkID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	sess, ok := m.sessions[id]
	if !ok || !now.Before(sess.expiresAt) {
		sess = &memorySession{values: make(map[string][]byte)}
		m.sessions[id] = sess
	}
	sess.values[key] = append([]byte(nil), value...)
	sess.expiresAt = now.Add(m.ttl)
	return nil
}

// Delete removes one value. A session left with no values is dropped.
func (m *MemoryStore) Delete(ctx context.Context, id, key string) error {
	if err := checkID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	sess, ok := m.sessions[id]
	if !ok {
		return nil
	}
	delete(sess.values, key)
	if len(sess.values) == 0 || !now.Before(sess.expiresAt) {
		delete(m.sessions, id)
		return nil
	}
	sess.expiresAt = now.Add(m.ttl)
	return nil
}

// Destroy removes the whole session.
func (m *MemoryStore) Destroy(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Sweep removes sessions that expired at or before now.
func (m *MemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		if !now.Before(sess.expiresAt) {
			removed += len(sess.values)
			delete(m.sessions, id)
		}
	}
	return removed, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
