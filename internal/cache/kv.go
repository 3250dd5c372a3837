package cache

import (
	"context"
	"sync"
)

// KV is the persistence port under the local cache: opaque blobs by key.
type KV interface {
	// Get returns the blob stored under key; ok is false when absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// MemoryKV keeps blobs in process memory.
type MemoryKV struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{blobs: map[string][]byte{}}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), value...)
	return nil
}
