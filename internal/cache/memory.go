package cache

import (
	"bytes"
	"context"
	"sync"
)

// MemoryStorage keeps partitions in process memory. Nothing survives a
// restart, so every session takes the miss path; useful for tests and for
// running without a writable disk.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]map[string][]byte
	closed  bool
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: map[string]map[string][]byte{}}
}

func (s *MemoryStorage) Open(ctx context.Context, name string) (Partition, error) {
	if !IsKnownPartition(name) {
		return nil, ErrUnknownPartition
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStorageClosed
	}
	if _, ok := s.entries[name]; !ok {
		s.entries[name] = map[string][]byte{}
	}
	return &memoryPartition{storage: s, name: name}, nil
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type memoryPartition struct {
	storage *MemoryStorage
	name    string
}

func (p *memoryPartition) Name() string { return p.name }

func (p *memoryPartition) Match(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	p.storage.mu.RLock()
	defer p.storage.mu.RUnlock()
	if p.storage.closed {
		return nil, false, ErrStorageClosed
	}
	v, ok := p.storage.entries[p.name][key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (p *memoryPartition) Put(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.storage.mu.Lock()
	defer p.storage.mu.Unlock()
	if p.storage.closed {
		return ErrStorageClosed
	}
	p.storage.entries[p.name][key] = bytes.Clone(payload)
	return nil
}
