package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ---------------- Memory implementation (fallback) ----------------

// MemoryIndex 进程内暴力余弦检索。指定快照文件时每次写入后落盘，
// 启动时加载，CLI 多次运行之间不会丢失向量
type MemoryIndex struct {
	mu       sync.RWMutex
	docs     map[string][]VectorRecord // collection -> records
	snapshot string
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: map[string][]VectorRecord{}}
}

// snapshotRecord 快照中的记录，VectorRecord 的 Vector 不参与 JSON
type snapshotRecord struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
	Vector   []float32         `json:"vector"`
}

// NewFileMemoryIndex loads the snapshot at path when it exists and keeps it
// up to date on every Add and DropCollection.
func NewFileMemoryIndex(path string) (*MemoryIndex, error) {
	s := NewMemoryIndex()
	s.snapshot = path
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vector snapshot: %w", err)
	}
	var raw map[string][]snapshotRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse vector snapshot %s: %w", path, err)
	}
	for name, recs := range raw {
		out := make([]VectorRecord, 0, len(recs))
		for _, r := range recs {
			out = append(out, VectorRecord{ID: r.ID, Document: r.Document, Metadata: r.Metadata, Vector: r.Vector})
		}
		s.docs[name] = out
	}
	return s, nil
}

// saveLocked 写临时文件再 rename，调用方持有写锁
func (s *MemoryIndex) saveLocked() error {
	if s.snapshot == "" {
		return nil
	}
	raw := make(map[string][]snapshotRecord, len(s.docs))
	for name, recs := range s.docs {
		out := make([]snapshotRecord, 0, len(recs))
		for _, r := range recs {
			out = append(out, snapshotRecord{ID: r.ID, Document: r.Document, Metadata: r.Metadata, Vector: r.Vector})
		}
		raw[name] = out
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.snapshot), 0755); err != nil {
		return err
	}
	tmp := s.snapshot + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write vector snapshot: %w", err)
	}
	return os.Rename(tmp, s.snapshot)
}

func (s *MemoryIndex) Add(_ context.Context, collection string, records []VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		r.Metadata = copyMeta(r.Metadata)
		r.Vector = append([]float32(nil), r.Vector...)
		s.docs[collection] = append(s.docs[collection], r)
	}
	// 空批次也会登记集合，使 HasCollection 为真
	if _, ok := s.docs[collection]; !ok {
		s.docs[collection] = nil
	}
	return s.saveLocked()
}

func (s *MemoryIndex) Search(_ context.Context, collection string, query []float32, topK int) ([]VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.docs[collection]
	hits := make([]VectorHit, 0, len(docs))
	for _, d := range docs {
		rec := d
		rec.Metadata = copyMeta(d.Metadata)
		hits = append(hits, VectorHit{VectorRecord: rec, Score: cosineSimilarity(query, d.Vector)})
	}
	return rankHits(hits, topK), nil
}

func (s *MemoryIndex) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[collection]), nil
}

func (s *MemoryIndex) HasCollection(_ context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[collection]
	return ok, nil
}

func (s *MemoryIndex) DropCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, collection)
	return s.saveLocked()
}
