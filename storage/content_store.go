package storage

import (
	"context"
	"sync"

	"multimodalRAG/core"
)

// ContentStore 原始内容存储（docstore），按集合隔离，按 id 取回
type ContentStore interface {
	Put(ctx context.Context, collection string, artifacts []core.Artifact) error
	// Get returns artifacts in the order of ids; unknown ids are skipped.
	Get(ctx context.Context, collection string, ids []string) ([]core.Artifact, error)
	Has(ctx context.Context, collection string) (bool, error)
}

// MemoryContentStore is the in-process ContentStore.
type MemoryContentStore struct {
	mu    sync.RWMutex
	items map[string]map[string]core.Artifact
}

func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{items: map[string]map[string]core.Artifact{}}
}

func (s *MemoryContentStore) Put(_ context.Context, collection string, artifacts []core.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[collection]
	if !ok {
		m = map[string]core.Artifact{}
		s.items[collection] = m
	}
	for _, a := range artifacts {
		m[a.ID] = a
	}
	return nil
}

func (s *MemoryContentStore) Get(_ context.Context, collection string, ids []string) ([]core.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.items[collection]
	out := make([]core.Artifact, 0, len(ids))
	for _, id := range ids {
		if a, ok := m[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryContentStore) Has(_ context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items[collection]) > 0, nil
}
