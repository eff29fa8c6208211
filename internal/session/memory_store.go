package session

import (
	"context"
	"sync"

	"github.com/rajivgeraev/campus-market/internal/broadcast"
)

// MemoryStore хранит сессию в памяти процесса
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string]string
	notifier broadcast.Notifier
}

// NewMemoryStore создает новый экземпляр MemoryStore
func NewMemoryStore(notifier broadcast.Notifier) *MemoryStore {
	if notifier == nil {
		notifier = broadcast.NewHub(nil)
	}
	return &MemoryStore{
		values:   make(map[string]string),
		notifier: notifier,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return publish(ctx, s.notifier, key)
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	_, existed := s.values[key]
	delete(s.values, key)
	s.mu.Unlock()

	if !existed {
		return nil
	}
	return publish(ctx, s.notifier, key)
}

func (s *MemoryStore) Subscribe() (<-chan broadcast.Change, func()) {
	return s.notifier.Subscribe()
}

func (s *MemoryStore) Close() error {
	return s.notifier.Close()
}
