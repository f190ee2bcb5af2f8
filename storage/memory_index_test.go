package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndexSearchOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Add(ctx, "c", []VectorRecord{
		{ID: "a", Document: "a", Vector: []float32{1, 0}},
		{ID: "b", Document: "b", Vector: []float32{0, 1}},
		{ID: "c", Document: "c", Vector: []float32{0.7, 0.7}},
	}))

	hits, err := idx.Search(ctx, "c", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "c", hits[1].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestMemoryIndexCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Add(ctx, "one", []VectorRecord{{ID: "x", Vector: []float32{1}}}))

	has, _ := idx.HasCollection(ctx, "two")
	assert.False(t, has)
	hits, err := idx.Search(ctx, "two", []float32{1}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	n, _ := idx.Count(ctx, "one")
	assert.Equal(t, 1, n)

	require.NoError(t, idx.DropCollection(ctx, "one"))
	has, _ = idx.HasCollection(ctx, "one")
	assert.False(t, has)
}

func TestMemoryIndexCopiesMetadata(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	meta := map[string]string{"k": "v"}
	require.NoError(t, idx.Add(ctx, "c", []VectorRecord{{ID: "x", Metadata: meta, Vector: []float32{1}}}))
	meta["k"] = "changed"

	hits, err := idx.Search(ctx, "c", []float32{1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v", hits[0].Metadata["k"])
}

func TestMilvusName(t *testing.T) {
	assert.Equal(t, "doc_abc", milvusName("doc_abc"))
	assert.Equal(t, "video_conv_a_b", milvusName("video_conv_a-b"))
	assert.Equal(t, "c_1x", milvusName("1x"))
}

func TestFileMemoryIndexReloadsSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.json")

	s, err := NewFileMemoryIndex(path)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, "doc_1", []VectorRecord{
		{ID: "a", Document: "alpha", Metadata: map[string]string{metaDocID: "x"}, Vector: []float32{1, 0}},
		{ID: "b", Document: "beta", Vector: []float32{0, 1}},
	}))
	require.NoError(t, s.Add(ctx, "doc_empty", nil))

	reloaded, err := NewFileMemoryIndex(path)
	require.NoError(t, err)
	n, err := reloaded.Count(ctx, "doc_1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	has, err := reloaded.HasCollection(ctx, "doc_empty")
	require.NoError(t, err)
	assert.True(t, has)

	hits, err := reloaded.Search(ctx, "doc_1", []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)

	require.NoError(t, reloaded.DropCollection(ctx, "doc_1"))
	again, err := NewFileMemoryIndex(path)
	require.NoError(t, err)
	has, _ = again.HasCollection(ctx, "doc_1")
	assert.False(t, has)
}

func TestFileMemoryIndexRejectsCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := NewFileMemoryIndex(path)
	assert.Error(t, err)
}
