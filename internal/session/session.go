package session

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/contract_approval/backend/internal/models"
)

// Store persists the conversation context between turns. Load of an
// unknown id returns an empty context and no error.
type Store interface {
	Load(ctx context.Context, id string) (models.ConversationContext, error)
	Save(ctx context.Context, id string, c models.ConversationContext) error
	Delete(ctx context.Context, id string) error
}

func NewID() string {
	return uuid.NewString()
}

// EnsureID keeps a caller supplied id and mints one otherwise.
func EnsureID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return NewID()
}

// Locker serialises turns per session id within this process.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: map[string]*entry{}}
}

// Lock blocks until id is free and returns the matching unlock func.
func (l *Locker) Lock(id string) func() {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &entry{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
