package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multimodalRAG/core"
)

func TestVideoSegmentStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	vectors := NewMemoryIndex()
	s := NewVideoSegmentStore("video_conv_1", vectors, NewMemoryContentStore(), NewHashEmbedder(512))

	n, err := s.Store(ctx, "lecture", []core.VideoSegmentRecord{
		{Timestamp: 12.5, AudioText: "welcome to the course", VisualDescription: "title slide", FrameContent: "/9j/abc", Summary: "[00:12]\naudio: welcome to the course\nscreen: title slide"},
		{Timestamp: 20, Summary: "   "},
		{Timestamp: 65, AudioText: "gradient descent update rule", VisualDescription: "equation on whiteboard", Summary: "[01:05]\naudio: gradient descent update rule\nscreen: equation on whiteboard"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := s.Search(ctx, "gradient descent", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	r := got[0]
	assert.Equal(t, 65.0, r.Timestamp)
	assert.Equal(t, "gradient descent update rule", r.AudioText)
	assert.Equal(t, "equation on whiteboard", r.VisualDescription)
	assert.Equal(t, "lecture", r.VideoID)
	assert.True(t, strings.HasPrefix(r.ID, "lecture_2_"), r.ID)
	assert.Contains(t, r.Summary, "[01:05]")

	first, err := s.Search(ctx, "welcome to the course title slide", 1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "/9j/abc", first[0].FrameContent)
}

func TestVideoSegmentStoreDefaultK(t *testing.T) {
	ctx := context.Background()
	s := NewVideoSegmentStore("video_conv_1", NewMemoryIndex(), NewMemoryContentStore(), NewHashEmbedder(64))
	segs := make([]core.VideoSegmentRecord, 5)
	for i := range segs {
		segs[i] = core.VideoSegmentRecord{Timestamp: float64(i), Summary: "slide content"}
	}
	_, err := s.Store(ctx, "v", segs)
	require.NoError(t, err)

	got, err := s.Search(ctx, "slide", 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultVideoTopK)
}

func TestVideoSegmentStoreEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewVideoSegmentStore("video_conv_none", NewMemoryIndex(), NewMemoryContentStore(), NewHashEmbedder(64))
	n, err := s.Store(ctx, "v", []core.VideoSegmentRecord{{Summary: ""}})
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := s.Search(ctx, "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestVideoSegmentStoreKeepsFramesOutOfVectorMetadata(t *testing.T) {
	ctx := context.Background()
	vectors := NewMemoryIndex()
	frames := NewMemoryContentStore()
	s := NewVideoSegmentStore("video_conv_2", vectors, frames, NewHashEmbedder(128))

	// 1080p 帧的 base64 远超 Milvus JSON 字段上限
	big := "/9j/" + strings.Repeat("A", 200*1024)
	_, err := s.Store(ctx, "talk", []core.VideoSegmentRecord{
		{Timestamp: 3, AudioText: "hello", VisualDescription: "speaker", FrameContent: big, Summary: "[00:03]\naudio: hello\nscreen: speaker"},
	})
	require.NoError(t, err)

	raw, err := vectors.Search(ctx, "video_conv_2", make([]float32, 128), 1)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	for k, v := range raw[0].Metadata {
		assert.Less(t, len(v), 1024, k)
	}

	stored, err := frames.Get(ctx, "video_conv_2", []string{raw[0].ID})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, big, stored[0].Content)

	got, err := s.Search(ctx, "hello speaker", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, big, got[0].FrameContent)
}
