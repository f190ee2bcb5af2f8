package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multimodalRAG/core"
)

func TestSQLiteContentStorePutGet(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewSQLiteContentStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "doc_1", []core.Artifact{
		{ID: "a", Kind: core.KindText, Content: "alpha", Summary: "A"},
		{ID: "b", Kind: core.KindTable, Content: "<table/>", Summary: "B", SourcePath: "report.pdf"},
	}))

	got, err := s.Get(ctx, "doc_1", []string{"b", "missing", "a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, core.KindTable, got[0].Kind)
	assert.Equal(t, "report.pdf", got[0].SourcePath)
	assert.Equal(t, "alpha", got[1].Content)

	// 其他集合看不到
	other, err := s.Get(ctx, "doc_2", []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, other)

	has, err := s.Has(ctx, "doc_1")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = s.Has(ctx, "doc_2")
	require.NoError(t, err)
	assert.False(t, has)
	require.NoError(t, s.Close())

	// 重新打开后数据仍在
	reopened, err := NewSQLiteContentStore(dir)
	require.NoError(t, err)
	defer reopened.Close()
	got, err = reopened.Get(ctx, "doc_1", []string{"a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alpha", got[0].Content)
}

func TestMemoryContentStoreSkipsUnknownIDs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryContentStore()
	require.NoError(t, s.Put(ctx, "c", []core.Artifact{{ID: "1", Content: "x"}}))
	got, err := s.Get(ctx, "c", []string{"0", "1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].Content)
}
