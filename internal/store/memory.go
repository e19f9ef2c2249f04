package store

import (
	"context"
	"sync"
)

type memoryEntry struct {
	data    []byte
	version int64
}

// MemorySlot is an in-process slot backend, used by tests and `slot_backend: memory`.
type MemorySlot struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
}

// NewMemorySlot creates an empty in-memory slot backend.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{data: make(map[string]memoryEntry)}
}

// Load reads a slot.
func (m *MemorySlot) Load(_ context.Context, key string) ([]byte, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	if !ok {
		return nil, 0, nil
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, e.version, nil
}

// Store writes a slot if its version still matches.
func (m *MemorySlot) Store(_ context.Context, key string, data []byte, version int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data[key].version != version {
		return 0, ErrVersionConflict
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	m.data[key] = memoryEntry{data: buf, version: version + 1}
	return version + 1, nil
}

// Remove deletes a slot.
func (m *MemorySlot) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}
