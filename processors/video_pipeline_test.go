package processors

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multimodalRAG/core"
	"multimodalRAG/storage"
)

func newVideoIngestor(t *testing.T, samples []core.FrameSample, segs []core.Segment, desc *fakeSummarizer) (*VideoIngestor, *fakeAudio, *storage.Registry) {
	t.Helper()
	reg := storage.NewRegistry(storage.NewMemoryIndex(), storage.NewMemoryContentStore(), storage.NewHashEmbedder(256))
	audio := &fakeAudio{}
	return &VideoIngestor{
		Sampler:     &fakeSampler{samples: samples},
		Audio:       audio,
		Transcriber: &fakeTranscriber{segments: segs},
		Describer:   desc,
		Registry:    reg,
		WorkDir:     t.TempDir(),
	}, audio, reg
}

func lectureSamples() []core.FrameSample {
	return []core.FrameSample{
		sample(0, solid(4, 4, black)),
		sample(5, solid(4, 4, black)),
		sample(10, solid(4, 4, white)),
	}
}

func TestVideoIngestEndToEnd(t *testing.T) {
	ctx := context.Background()
	desc := &fakeSummarizer{imageAnswer: "slide with a bar chart"}
	v, _, reg := newVideoIngestor(t, lectureSamples(), introBody, desc)
	video := touch(t.TempDir(), "lecture.mp4")

	records, dropped, err := v.Process(ctx, video)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, records, 2)
	assert.Equal(t, 0.0, records[0].Timestamp)
	assert.Equal(t, "intro", records[0].AudioText)
	assert.Equal(t, 10.0, records[1].Timestamp)
	assert.Equal(t, "body", records[1].AudioText)
	assert.Equal(t, "[00:10]\naudio: body\nscreen: slide with a bar chart", records[1].Summary)
	assert.Equal(t, "/9j/", records[1].FrameContent[:4])
	assert.Equal(t, FrameAnalysisPrompt, desc.prompts[0])

	report, err := v.Ingest(ctx, "c1", video)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Segments)
	assert.Equal(t, "video_conv_c1", report.Collection)

	store, ok, err := reg.VideoStore(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestVideoIngestMissingFile(t *testing.T) {
	v, audio, _ := newVideoIngestor(t, lectureSamples(), introBody, &fakeSummarizer{imageAnswer: "x"})
	_, err := v.Ingest(context.Background(), "c1", filepath.Join(t.TempDir(), "missing.mp4"))
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Zero(t, audio.calls)
}

func TestVideoIngestDropsFailedFrame(t *testing.T) {
	desc := &fakeSummarizer{imageAnswer: "a whiteboard", imageErrs: 1}
	v, _, _ := newVideoIngestor(t, lectureSamples(), introBody, desc)
	video := touch(t.TempDir(), "lecture.mp4")

	records, dropped, err := v.Process(context.Background(), video)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, records, 1)
	assert.Equal(t, "body", records[0].AudioText)
}

func TestVideoIngestNoSurvivors(t *testing.T) {
	desc := &fakeSummarizer{imageAnswer: "x", imageErrs: 10}
	v, _, _ := newVideoIngestor(t, lectureSamples(), introBody, desc)
	video := touch(t.TempDir(), "lecture.mp4")

	_, dropped, err := v.Process(context.Background(), video)
	assert.ErrorIs(t, err, core.ErrNoSurvivors)
	assert.Equal(t, 2, dropped)
}

func TestVideoIngestEmptyTranscriptDropsAllFrames(t *testing.T) {
	v, _, _ := newVideoIngestor(t, lectureSamples(), nil, &fakeSummarizer{imageAnswer: "x"})
	video := touch(t.TempDir(), "lecture.mp4")
	_, _, err := v.Process(context.Background(), video)
	assert.ErrorIs(t, err, core.ErrNoSurvivors)
}

func TestVideoIngestBlankSummaryDropped(t *testing.T) {
	segs := []core.Segment{{Start: 0, End: 4, Text: " "}, {Start: 6, End: 12, Text: "body"}}
	v, _, _ := newVideoIngestor(t, lectureSamples(), segs, &fakeSummarizer{imageAnswer: ""})
	video := touch(t.TempDir(), "lecture.mp4")

	records, dropped, err := v.Process(context.Background(), video)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, records, 1)
	assert.Equal(t, 10.0, records[0].Timestamp)
}

func TestSegmentSummary(t *testing.T) {
	assert.Equal(t, "[01:05]\naudio: hi\nscreen: chart", SegmentSummary(65, "hi ", " chart"))
	assert.Equal(t, "", SegmentSummary(3, " ", ""))
}
