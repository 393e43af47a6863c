package tokenstore

import (
	"context"
	"sync"
)

// MemoryStore keeps the record in process memory. It survives nothing, but
// honors the same atomicity contract as the durable backends.
type MemoryStore struct {
	mu  sync.RWMutex
	rec Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(context.Context) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rec.Clone(), nil
}

func (m *MemoryStore) Set(_ context.Context, rec Record) error {
	m.mu.Lock()
	m.rec = rec.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.rec = Record{}
	m.mu.Unlock()
	return nil
}
