package session

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
)

// MemoryStore keeps encoded snapshots in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]encoded
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]encoded)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (Snapshot, error) {
	m.mu.RLock()
	e, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, common.ErrNotFound
	}
	return decode(e)
}

// Save stores an encoded copy, so later edits to snap's record do not leak in.
func (m *MemoryStore) Save(_ context.Context, id string, snap Snapshot) error {
	e, err := encode(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[id] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
