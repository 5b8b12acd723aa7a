package session

import (
	"context"
	"sync"
	"time"

	"github.com/contract_approval/backend/internal/models"
)

type memoryItem struct {
	value     models.ConversationContext
	expiresAt time.Time
}

// MemoryStore keeps contexts in process. Entries idle for longer than the
// TTL are dropped on access.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: map[string]memoryItem{}, ttl: ttl, now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id string) (models.ConversationContext, error) {
	m.mu.RLock()
	it, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return models.ConversationContext{}, nil
	}
	if m.ttl > 0 && m.now().After(it.expiresAt) {
		m.mu.Lock()
		delete(m.items, id)
		m.mu.Unlock()
		return models.ConversationContext{}, nil
	}
	return it.value, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, c models.ConversationContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id] = memoryItem{value: c, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}
