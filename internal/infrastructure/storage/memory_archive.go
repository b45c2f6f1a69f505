package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/omnisync/backend/internal/application/fulfillment"
	infraconfig "github.com/omnisync/backend/internal/infrastructure/config"
)

// Ensure MemoryArchive implements fulfillment.Archiver
var _ fulfillment.Archiver = (*MemoryArchive)(nil)

// MemoryArchive keeps the most recent payloads in memory. It is the fallback
// when object storage is disabled.
type MemoryArchive struct {
	mu       sync.Mutex
	capacity int
	keys     []string
	objects  map[string][]byte
}

// NewMemoryArchive creates an archive holding at most capacity payloads
func NewMemoryArchive(capacity int) *MemoryArchive {
	if capacity <= 0 {
		capacity = 50
	}
	return &MemoryArchive{capacity: capacity, objects: make(map[string][]byte)}
}

// Archive stores a copy of data under "memory/<name>", evicting the oldest entry when full
func (m *MemoryArchive) Archive(_ context.Context, name string, data []byte) (string, error) {
	if name == "" {
		return "", errors.New("archive name is required")
	}
	key := "memory/" + name

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.objects[key] = append([]byte(nil), data...)
	for len(m.keys) > m.capacity {
		delete(m.objects, m.keys[0])
		m.keys = m.keys[1:]
	}
	return key, nil
}

// Get returns an archived payload
func (m *MemoryArchive) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

// Len returns the number of payloads held
func (m *MemoryArchive) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

// NewArchive returns the S3 archive when storage is enabled and the memory
// fallback otherwise
func NewArchive(cfg *infraconfig.StorageConfig, opts ...S3ArchiveOption) (fulfillment.Archiver, error) {
	if cfg == nil || !cfg.Enabled {
		return NewMemoryArchive(0), nil
	}
	return NewS3Archive(cfg, opts...)
}
