package storage

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"multimodalRAG/core"
)

// Registry 集合名 -> 活动句柄。缓存未命中时从持久化存储中恢复，
// 同名集合的创建和恢复串行执行
type Registry struct {
	vectors  VectorIndex
	docs     ContentStore
	embedder core.Embedder

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	docIdx map[string]*MultiVectorIndex
	videos map[string]*VideoSegmentStore
}

func NewRegistry(vectors VectorIndex, docs ContentStore, embedder core.Embedder) *Registry {
	return &Registry{
		vectors:  vectors,
		docs:     docs,
		embedder: embedder,
		locks:    map[string]*sync.Mutex{},
		docIdx:   map[string]*MultiVectorIndex{},
		videos:   map[string]*VideoSegmentStore{},
	}
}

func (r *Registry) keyLock(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[name]
	if !ok {
		l = &sync.Mutex{}
		r.locks[name] = l
	}
	return l
}

func (r *Registry) cachedDoc(name string) (*MultiVectorIndex, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.docIdx[name]
	return idx, ok
}

func (r *Registry) cachedVideo(name string) (*VideoSegmentStore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.videos[name]
	return s, ok
}

// DocumentIndex returns the document index of a conversation: cached, or
// hydrated from persisted storage, or (nil, false, nil) when none exists.
func (r *Registry) DocumentIndex(ctx context.Context, conversationID string) (*MultiVectorIndex, bool, error) {
	return r.documentIndex(ctx, core.DocCollectionName(conversationID), false)
}

// CreateDocumentIndex is the get-or-create variant used by ingestion.
func (r *Registry) CreateDocumentIndex(ctx context.Context, conversationID string) (*MultiVectorIndex, error) {
	idx, _, err := r.documentIndex(ctx, core.DocCollectionName(conversationID), true)
	return idx, err
}

func (r *Registry) documentIndex(ctx context.Context, name string, create bool) (*MultiVectorIndex, bool, error) {
	if idx, ok := r.cachedDoc(name); ok {
		return idx, true, nil
	}
	l := r.keyLock(name)
	l.Lock()
	defer l.Unlock()
	// 拿到锁后再查一次，可能已被其他请求恢复
	if idx, ok := r.cachedDoc(name); ok {
		return idx, true, nil
	}

	if !create {
		exists, err := r.persisted(ctx, name, true)
		if err != nil {
			return nil, false, err
		}
		if !exists {
			return nil, false, nil
		}
		log.Printf("[registry] hydrated document collection %s", name)
	}
	idx := NewMultiVectorIndex(name, r.vectors, r.docs, r.embedder)
	r.mu.Lock()
	r.docIdx[name] = idx
	r.mu.Unlock()
	return idx, true, nil
}

// VideoStore returns the video segment store of a conversation: cached, or
// hydrated, or (nil, false, nil).
func (r *Registry) VideoStore(ctx context.Context, conversationID string) (*VideoSegmentStore, bool, error) {
	return r.videoStore(ctx, core.VideoCollectionName(conversationID), false)
}

// CreateVideoStore is the get-or-create variant used by ingestion.
func (r *Registry) CreateVideoStore(ctx context.Context, conversationID string) (*VideoSegmentStore, error) {
	s, _, err := r.videoStore(ctx, core.VideoCollectionName(conversationID), true)
	return s, err
}

func (r *Registry) videoStore(ctx context.Context, name string, create bool) (*VideoSegmentStore, bool, error) {
	if s, ok := r.cachedVideo(name); ok {
		return s, true, nil
	}
	l := r.keyLock(name)
	l.Lock()
	defer l.Unlock()
	if s, ok := r.cachedVideo(name); ok {
		return s, true, nil
	}

	if !create {
		exists, err := r.persisted(ctx, name, false)
		if err != nil {
			return nil, false, err
		}
		if !exists {
			return nil, false, nil
		}
		log.Printf("[registry] hydrated video collection %s", name)
	}
	s := NewVideoSegmentStore(name, r.vectors, r.docs, r.embedder)
	r.mu.Lock()
	r.videos[name] = s
	r.mu.Unlock()
	return s, true, nil
}

func (r *Registry) persisted(ctx context.Context, name string, withDocs bool) (bool, error) {
	exists, err := r.vectors.HasCollection(ctx, name)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", name, err)
	}
	if exists || !withDocs {
		return exists, nil
	}
	// 全部摘要为空时向量库里没有集合，但内容仍在 docstore
	return r.docs.Has(ctx, name)
}

// Names lists the collections currently held in the cache, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.docIdx)+len(r.videos))
	for n := range r.docIdx {
		names = append(names, n)
	}
	for n := range r.videos {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Evict drops a cached handle; the persisted data is untouched.
func (r *Registry) Evict(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docIdx, name)
	delete(r.videos, name)
}
