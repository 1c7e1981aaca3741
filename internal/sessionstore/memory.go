package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/soaringjerry/pregate/internal/models"
)

type memoryEntry struct {
	binding   models.SessionBinding
	expiresAt time.Time
}

// MemoryStore is the single-process binding store used when no Redis address is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *MemoryStore) Bind(_ context.Context, b *models.SessionBinding, ttl time.Duration) error {
	cp := *b
	cp.QuestionIDs = append([]string(nil), b.QuestionIDs...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	e := memoryEntry{binding: cp}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[b.SessionID] = e
	return nil
}

func (m *MemoryStore) Consume(_ context.Context, sessionID string) (*models.SessionBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return nil, nil
	}
	delete(m.entries, sessionID)
	if m.expired(e) {
		return nil, nil
	}
	b := e.binding
	return &b, nil
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)
}

// sweepLocked drops expired entries; callers hold mu.
func (m *MemoryStore) sweepLocked() {
	for id, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, id)
		}
	}
}

// Len is the number of stored bindings, expired ones included until the next sweep.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
