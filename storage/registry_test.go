package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multimodalRAG/core"
)

func TestRegistryMissReturnsNothing(t *testing.T) {
	r := NewRegistry(NewMemoryIndex(), NewMemoryContentStore(), NewHashEmbedder(64))
	idx, ok, err := r.DocumentIndex(context.Background(), "42")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, idx)

	vs, ok, err := r.VideoStore(context.Background(), "42")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, vs)
	assert.Empty(t, r.Names())
}

func TestRegistryCreateIsGetOrCreate(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewMemoryIndex(), NewMemoryContentStore(), NewHashEmbedder(64))

	a, err := r.CreateDocumentIndex(ctx, "42")
	require.NoError(t, err)
	b, err := r.CreateDocumentIndex(ctx, "42")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, "doc_42", a.Name())

	got, ok, err := r.DocumentIndex(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, a, got)

	v, err := r.CreateVideoStore(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "video_conv_42", v.Name())
	assert.Equal(t, []string{"doc_42", "video_conv_42"}, r.Names())
}

func TestRegistryHydratesPersistedCollections(t *testing.T) {
	ctx := context.Background()
	vectors := NewMemoryIndex()
	docs := NewMemoryContentStore()
	emb := NewHashEmbedder(256)

	first := NewRegistry(vectors, docs, emb)
	idx, err := first.CreateDocumentIndex(ctx, "7")
	require.NoError(t, err)
	_, err = idx.Index(ctx, []string{"volcano eruption"}, []string{"lava text"}, core.KindText)
	require.NoError(t, err)
	vs, err := first.CreateVideoStore(ctx, "7")
	require.NoError(t, err)
	_, err = vs.Store(ctx, "clip", []core.VideoSegmentRecord{{Summary: "volcano footage", AudioText: "boom"}})
	require.NoError(t, err)

	// 新进程：缓存为空，数据在存储里
	second := NewRegistry(vectors, docs, emb)
	hydrated, ok, err := second.DocumentIndex(ctx, "7")
	require.NoError(t, err)
	require.True(t, ok)
	got, err := hydrated.Retrieve(ctx, "volcano", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "lava text", got[0].Content)

	hv, ok, err := second.VideoStore(ctx, "7")
	require.NoError(t, err)
	require.True(t, ok)
	segs, err := hv.Search(ctx, "volcano", 3)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "boom", segs[0].AudioText)
}

func TestRegistryHydratesDocsOnlyCollection(t *testing.T) {
	ctx := context.Background()
	vectors := NewMemoryIndex()
	docs := NewMemoryContentStore()
	require.NoError(t, docs.Put(ctx, "doc_9", []core.Artifact{{ID: "x", Content: "unsearchable"}}))

	r := NewRegistry(vectors, docs, NewHashEmbedder(64))
	idx, ok, err := r.DocumentIndex(ctx, "9")
	require.NoError(t, err)
	require.True(t, ok)
	a, found, err := idx.Get(ctx, "x")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "unsearchable", a.Content)
}

func TestRegistryConcurrentCreateSingleHandle(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewMemoryIndex(), NewMemoryContentStore(), NewHashEmbedder(64))

	const n = 16
	handles := make([]*VideoSegmentStore, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.CreateVideoStore(ctx, "c")
			assert.NoError(t, err)
			handles[i] = s
		}(i)
	}
	wg.Wait()
	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
}

func TestRegistryEvict(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewMemoryIndex(), NewMemoryContentStore(), NewHashEmbedder(64))
	_, err := r.CreateDocumentIndex(ctx, "1")
	require.NoError(t, err)
	r.Evict("doc_1")
	assert.Empty(t, r.Names())

	// 从未写入数据，驱逐后不可恢复
	_, ok, err := r.DocumentIndex(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)
}
