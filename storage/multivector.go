package storage

import (
	"context"
	"fmt"
	"log"
	"strings"

	"multimodalRAG/core"
)

// MultiVectorIndex 双存储索引：摘要进向量库用于检索，原始内容进 docstore，
// 命中后通过 doc_id 取回原始内容
type MultiVectorIndex struct {
	name     string
	vectors  VectorIndex
	docs     ContentStore
	embedder core.Embedder
}

// NewMultiVectorIndex binds a handle to the named collection. Nothing is
// written, so a handle over an already persisted collection is queryable
// right away.
func NewMultiVectorIndex(name string, vectors VectorIndex, docs ContentStore, embedder core.Embedder) *MultiVectorIndex {
	return &MultiVectorIndex{name: name, vectors: vectors, docs: docs, embedder: embedder}
}

func (m *MultiVectorIndex) Name() string { return m.name }

// Index stores contents[i] under a fresh id and makes it searchable through
// summaries[i]. Blank summaries keep the content stored but not searchable.
// paths is optional and, when given, must match summaries in length.
// Returns the ids in input order.
func (m *MultiVectorIndex) Index(ctx context.Context, summaries, contents []string, kind core.ArtifactKind, paths ...string) ([]string, error) {
	if len(summaries) == 0 {
		return nil, nil
	}
	if len(summaries) != len(contents) {
		return nil, fmt.Errorf("index %s: %d summaries for %d contents", m.name, len(summaries), len(contents))
	}
	if len(paths) > 0 && len(paths) != len(summaries) {
		return nil, fmt.Errorf("index %s: %d paths for %d summaries", m.name, len(paths), len(summaries))
	}

	ids := make([]string, len(summaries))
	artifacts := make([]core.Artifact, len(summaries))
	records := make([]VectorRecord, 0, len(summaries))
	for i := range summaries {
		ids[i] = core.NewID()
		path := ""
		if len(paths) > 0 {
			path = paths[i]
		}
		artifacts[i] = core.Artifact{ID: ids[i], Kind: kind, Content: contents[i], Summary: summaries[i], SourcePath: path}
		if strings.TrimSpace(summaries[i]) == "" {
			log.Printf("[%s] Warning: blank summary for %s artifact %s, stored but not searchable", m.name, kind, ids[i])
			continue
		}
		vec, err := m.embedder.Embed(ctx, summaries[i])
		if err != nil {
			return nil, fmt.Errorf("embed summary %d: %w", i, err)
		}
		entry := core.IndexEntry{ID: core.NewID(), Summary: summaries[i], Kind: kind, DocID: ids[i], SourcePath: path}
		records = append(records, entryRecord(entry, vec))
	}

	// 先写内容再写索引，索引命中时内容一定存在
	if err := m.docs.Put(ctx, m.name, artifacts); err != nil {
		return nil, fmt.Errorf("store contents: %w", err)
	}
	if err := m.vectors.Add(ctx, m.name, records); err != nil {
		return nil, fmt.Errorf("add summaries: %w", err)
	}
	return ids, nil
}

// Retrieve returns up to k artifacts whose summaries best match query,
// most similar first, carrying the original content and the kind tag.
func (m *MultiVectorIndex) Retrieve(ctx context.Context, query string, k int) ([]core.Artifact, error) {
	if k <= 0 {
		k = 4
	}
	qv, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := m.vectors.Search(ctx, m.name, qv, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []core.Artifact{}, nil
	}

	ids := make([]string, 0, len(hits))
	scores := make(map[string]float64, len(hits))
	byDoc := make(map[string]core.IndexEntry, len(hits))
	for _, h := range hits {
		e := hitEntry(h)
		if e.DocID == "" {
			continue
		}
		if _, dup := byDoc[e.DocID]; dup {
			continue
		}
		byDoc[e.DocID] = e
		scores[e.DocID] = h.Score
		ids = append(ids, e.DocID)
	}
	artifacts, err := m.docs.Get(ctx, m.name, ids)
	if err != nil {
		return nil, fmt.Errorf("load contents: %w", err)
	}
	for i := range artifacts {
		e := byDoc[artifacts[i].ID]
		artifacts[i].Score = scores[e.DocID]
		// 旧数据的 docstore 里没有 kind，用索引条目补上
		if artifacts[i].Kind == "" {
			artifacts[i].Kind = e.Kind
		}
	}
	return artifacts, nil
}

// Get fetches one artifact by id, searchable or not.
func (m *MultiVectorIndex) Get(ctx context.Context, id string) (core.Artifact, bool, error) {
	got, err := m.docs.Get(ctx, m.name, []string{id})
	if err != nil {
		return core.Artifact{}, false, err
	}
	if len(got) == 0 {
		return core.Artifact{}, false, nil
	}
	return got[0], true, nil
}

// Count 可检索条目数
func (m *MultiVectorIndex) Count(ctx context.Context) (int, error) {
	return m.vectors.Count(ctx, m.name)
}

// entryRecord 索引条目 -> 向量库记录，摘要作为被检索文本
func entryRecord(e core.IndexEntry, vec []float32) VectorRecord {
	meta := map[string]string{metaDocID: e.DocID, metaType: string(e.Kind)}
	if e.SourcePath != "" {
		meta[metaPath] = e.SourcePath
	}
	return VectorRecord{ID: e.ID, Document: e.Summary, Metadata: meta, Vector: vec}
}

func hitEntry(h VectorHit) core.IndexEntry {
	return core.IndexEntry{
		ID:         h.ID,
		Summary:    h.Document,
		Kind:       core.ArtifactKind(h.Metadata[metaType]),
		DocID:      h.Metadata[metaDocID],
		SourcePath: h.Metadata[metaPath],
	}
}
