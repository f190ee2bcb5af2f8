package processors

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"multimodalRAG/core"
	"multimodalRAG/storage"
)

// DocumentIngestor 文档入库：分区、分类、切块、摘要、发现图片、写入文档集合
type DocumentIngestor struct {
	Extractor  core.ContentExtractor
	Summarizer core.Summarizer
	Chunker    *Chunker
	Registry   *storage.Registry
	WorkDir    string
}

// Ingest indexes one document into doc_<conversationID>. A failed summary
// leaves that artifact stored but not searchable.
func (d *DocumentIngestor) Ingest(ctx context.Context, conversationID, documentPath string) (core.IngestReport, error) {
	report := core.IngestReport{ConversationID: conversationID, Collection: core.DocCollectionName(conversationID)}
	if _, err := os.Stat(documentPath); err != nil {
		return report, fmt.Errorf("%w: %s", core.ErrNotFound, documentPath)
	}
	docKey := DocumentKey(documentPath)
	imageDir := filepath.Join(d.workDir(), conversationID, "figures")
	log.Printf("[%s] Processing document %s", conversationID, filepath.Base(documentPath))

	elements, err := d.Extractor.Extract(ctx, documentPath, imageDir)
	if err != nil {
		return report, fmt.Errorf("extract %s: %w", filepath.Base(documentPath), err)
	}
	cat := Categorize(elements)
	chunker := d.Chunker
	if chunker == nil {
		chunker = &Chunker{Mode: ChunkChars, Size: DefaultChunkSize}
	}
	texts := chunker.Chunk(cat.Texts)
	log.Printf("[%s] %d elements -> %d text chunks, %d tables", conversationID, len(elements), len(texts), len(cat.Tables))

	textSummaries := d.summarizeAll(ctx, conversationID, "text", texts, &report.Dropped)
	tableSummaries := d.summarizeAll(ctx, conversationID, "table", cat.Tables, &report.Dropped)

	assets, err := DiscoverImages(imageDir, docKey)
	if err != nil {
		log.Printf("[%s] Warning: image discovery failed: %v", conversationID, err)
	}
	var images, imageSummaries, imagePaths []string
	for _, a := range assets {
		data, err := os.ReadFile(a.Path)
		if err != nil {
			log.Printf("[%s] Warning: skipping image %s: %v", conversationID, a.Path, err)
			continue
		}
		b64 := base64.StdEncoding.EncodeToString(data)
		summary, err := d.Summarizer.SummarizeImage(ctx, b64, ImageSummaryPrompt)
		if err != nil {
			log.Printf("[%s] Warning: image summary failed for %s: %v", conversationID, filepath.Base(a.Path), err)
			summary = ""
		}
		if strings.TrimSpace(summary) == "" {
			report.Dropped++
		}
		images = append(images, b64)
		imageSummaries = append(imageSummaries, summary)
		imagePaths = append(imagePaths, a.Path)
	}

	idx, err := d.Registry.CreateDocumentIndex(ctx, conversationID)
	if err != nil {
		return report, fmt.Errorf("open document collection: %w", err)
	}
	docPaths := func(n int) []string {
		paths := make([]string, n)
		for i := range paths {
			paths[i] = documentPath
		}
		return paths
	}
	if _, err := idx.Index(ctx, textSummaries, texts, core.KindText, docPaths(len(texts))...); err != nil {
		return report, fmt.Errorf("index texts: %w", err)
	}
	report.Texts = len(texts)
	if _, err := idx.Index(ctx, tableSummaries, cat.Tables, core.KindTable, docPaths(len(cat.Tables))...); err != nil {
		return report, fmt.Errorf("index tables: %w", err)
	}
	report.Tables = len(cat.Tables)
	if _, err := idx.Index(ctx, imageSummaries, images, core.KindImage, imagePaths...); err != nil {
		return report, fmt.Errorf("index images: %w", err)
	}
	report.Images = len(images)

	log.Printf("[%s] document indexed: %d texts, %d tables, %d images, %d unsearchable",
		conversationID, report.Texts, report.Tables, report.Images, report.Dropped)
	return report, nil
}

func (d *DocumentIngestor) summarizeAll(ctx context.Context, conversationID, kind string, items []string, dropped *int) []string {
	out := make([]string, len(items))
	for i, it := range items {
		s, err := d.Summarizer.SummarizeText(ctx, it)
		if err != nil {
			log.Printf("[%s] Warning: %s summary %d failed: %v", conversationID, kind, i, err)
			s = ""
		}
		if strings.TrimSpace(s) == "" {
			*dropped++
		}
		out[i] = s
	}
	return out
}

func (d *DocumentIngestor) workDir() string {
	if d.WorkDir != "" {
		return d.WorkDir
	}
	return core.DataRoot()
}
