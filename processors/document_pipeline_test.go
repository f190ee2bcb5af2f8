package processors

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multimodalRAG/core"
	"multimodalRAG/storage"
)

const quarterlyTable = "<table><tr><td>Q1</td><td>42</td></tr><tr><td>Q2</td><td>57</td></tr></table>"

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-chart")

func newDocumentIngestor(t *testing.T, ext *fakeExtractor, sum *fakeSummarizer) (*DocumentIngestor, *storage.Registry) {
	t.Helper()
	reg := storage.NewRegistry(storage.NewMemoryIndex(), storage.NewMemoryContentStore(), storage.NewHashEmbedder(512))
	return &DocumentIngestor{
		Extractor:  ext,
		Summarizer: sum,
		Chunker:    &Chunker{Mode: ChunkChars, Size: 20},
		Registry:   reg,
		WorkDir:    t.TempDir(),
	}, reg
}

func reportElements() []core.RawElement {
	return []core.RawElement{
		{Type: core.ElementText, Text: strings.Repeat("a", 15)},
		{Type: core.ElementTable, Text: quarterlyTable},
		{Type: core.ElementText, Text: strings.Repeat("b", 15)},
		{Type: core.ElementImage, ImagePath: "ignored.png"},
	}
}

func TestDocumentIngestRoundTrip(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{elements: reportElements(), images: map[string][]byte{"figure-1-1.png": pngBytes}}
	sum := &fakeSummarizer{imageAnswer: "bar chart of quarterly revenue"}
	d, reg := newDocumentIngestor(t, ext, sum)
	doc := touch(t.TempDir(), "report.pdf")

	report, err := d.Ingest(ctx, "c7", doc)
	require.NoError(t, err)
	assert.Equal(t, "doc_c7", report.Collection)
	assert.Equal(t, 2, report.Texts) // 31 个字符按 20 切成两块
	assert.Equal(t, 1, report.Tables)
	assert.Equal(t, 1, report.Images)
	assert.Zero(t, report.Dropped)
	assert.Equal(t, []string{ImageSummaryPrompt}, sum.prompts)

	idx, ok, err := reg.DocumentIndex(ctx, "c7")
	require.NoError(t, err)
	require.True(t, ok)
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	hits, err := idx.Retrieve(ctx, "summary of "+quarterlyTable, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, quarterlyTable, hits[0].Content)
	assert.Equal(t, core.KindTable, hits[0].Kind)
	assert.Equal(t, doc, hits[0].SourcePath)

	hits, err = idx.Retrieve(ctx, "bar chart of quarterly revenue", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, core.KindImage, hits[0].Kind)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngBytes), hits[0].Content)
	assert.Equal(t, "report__figure-1-1.png", filepath.Base(hits[0].SourcePath))
}

func TestDocumentIngestFailedSummaryNotSearchable(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{elements: reportElements()}
	sum := &fakeSummarizer{failOn: []string{"<table>"}}
	d, reg := newDocumentIngestor(t, ext, sum)

	report, err := d.Ingest(ctx, "c8", touch(t.TempDir(), "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Tables)
	assert.Equal(t, 1, report.Dropped)

	idx, _, err := reg.DocumentIndex(ctx, "c8")
	require.NoError(t, err)
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDocumentIngestMissingFile(t *testing.T) {
	d, _ := newDocumentIngestor(t, &fakeExtractor{}, &fakeSummarizer{})
	_, err := d.Ingest(context.Background(), "c9", filepath.Join(t.TempDir(), "nope.pdf"))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDocumentIngestIgnoresOtherDocumentsImages(t *testing.T) {
	ctx := context.Background()
	sum := &fakeSummarizer{imageAnswer: "diagram"}
	first := &fakeExtractor{images: map[string][]byte{"figure-1-1.png": pngBytes}}
	d, _ := newDocumentIngestor(t, first, sum)
	_, err := d.Ingest(ctx, "c10", touch(t.TempDir(), "alpha.pdf"))
	require.NoError(t, err)

	d.Extractor = &fakeExtractor{elements: []core.RawElement{{Type: core.ElementText, Text: "hello"}}}
	report, err := d.Ingest(ctx, "c10", touch(t.TempDir(), "beta.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Texts)
	assert.Zero(t, report.Images)
}
