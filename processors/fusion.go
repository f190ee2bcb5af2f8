package processors

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"multimodalRAG/core"
	"multimodalRAG/storage"
)

// 检索与上下文上限
const (
	DefaultDocTopK   = 10
	DefaultVideoTopK = storage.DefaultVideoTopK

	maxTextContext  = 10
	maxImageContext = 5
	maxImageResults = 3

	contextSeparator = "\n\n---\n\n"

	// ApologyAnswer 生成失败时返回给用户的固定文案
	ApologyAnswer = "Sorry, an error occurred while generating the answer."
)

// imageSignatures JPEG/PNG/GIF/SVG 的 base64 前缀
var imageSignatures = []string{"/9j/", "iVBOR", "R0lGOD", "PHN2Zy"}

// FusionEngine 查询融合：并发检索文档与视频集合，分类、截断后发起一次生成请求
type FusionEngine struct {
	Registry  *storage.Registry
	Generator core.MultimodalGenerator
	DocTopK   int
	VideoTopK int
}

// Query never fails: retrieval problems are logged and treated as no hits,
// and a failed generation becomes ApologyAnswer.
func (f *FusionEngine) Query(ctx context.Context, conversationID, query string) core.QueryResult {
	docs, videos := f.retrieve(ctx, conversationID, query)
	log.Printf("[%s] query %q: %d document hits, %d video hits", conversationID, core.Truncate(query, 40), len(docs), len(videos))

	var textContext, images []string
	for _, a := range docs {
		if ClassifyArtifact(a) == core.KindImage {
			images = append(images, a.Content)
		} else {
			textContext = append(textContext, a.Content)
		}
	}

	sources := make([]core.VideoSource, 0, len(videos))
	for _, v := range videos {
		textContext = append(textContext, VideoContextBlock(v))
		sources = append(sources, core.VideoSource{
			Time: core.FormatTimestamp(v.Timestamp),
			Text: core.Truncate(v.AudioText, 50) + "...",
		})
	}

	if len(textContext) > maxTextContext {
		textContext = textContext[:maxTextContext]
	}
	genImages := images
	if len(genImages) > maxImageContext {
		genImages = genImages[:maxImageContext]
	}

	answer, err := f.Generator.Generate(ctx, query, strings.Join(textContext, contextSeparator), genImages)
	if err != nil {
		log.Printf("[%s] Warning: answer generation failed: %v", conversationID, err)
		answer = ApologyAnswer
	}

	resultImages := images
	if len(resultImages) > maxImageResults {
		resultImages = resultImages[:maxImageResults]
	}
	if resultImages == nil {
		resultImages = []string{}
	}
	return core.QueryResult{Answer: answer, VideoSources: sources, Images: resultImages}
}

// retrieve 文档和视频并发检索，任一侧失败只记录日志
func (f *FusionEngine) retrieve(ctx context.Context, conversationID, query string) ([]core.Artifact, []core.VideoSegmentRecord) {
	var docs []core.Artifact
	var videos []core.VideoSegmentRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		idx, ok, err := f.Registry.DocumentIndex(gctx, conversationID)
		if err != nil {
			log.Printf("[%s] Warning: document collection lookup failed: %v", conversationID, err)
			return nil
		}
		if !ok {
			return nil
		}
		hits, err := idx.Retrieve(gctx, query, positive(f.DocTopK, DefaultDocTopK))
		if err != nil {
			log.Printf("[%s] Warning: document search failed: %v", conversationID, err)
			return nil
		}
		docs = hits
		return nil
	})
	g.Go(func() error {
		store, ok, err := f.Registry.VideoStore(gctx, conversationID)
		if err != nil {
			log.Printf("[%s] Warning: video collection lookup failed: %v", conversationID, err)
			return nil
		}
		if !ok {
			return nil
		}
		hits, err := store.Search(gctx, query, positive(f.VideoTopK, DefaultVideoTopK))
		if err != nil {
			log.Printf("[%s] Warning: video search failed: %v", conversationID, err)
			return nil
		}
		videos = hits
		return nil
	})
	_ = g.Wait()
	return docs, videos
}

// ClassifyArtifact trusts the kind tag carried through retrieval and falls
// back to ClassifyContent only for untagged hits. Tables count as text.
func ClassifyArtifact(a core.Artifact) core.ArtifactKind {
	if a.Kind.Valid() {
		return a.Kind
	}
	return ClassifyContent(a.Content)
}

// ClassifyContent sniffs untagged content: longer than 1000 characters and
// an image base64 signature within the first 100 characters means image.
func ClassifyContent(content string) core.ArtifactKind {
	if utf8.RuneCountInString(content) <= 1000 {
		return core.KindText
	}
	head := core.Truncate(content, 100)
	for _, sig := range imageSignatures {
		if strings.Contains(head, sig) {
			return core.KindImage
		}
	}
	return core.KindText
}

// VideoContextBlock 视频命中转成文本上下文
func VideoContextBlock(v core.VideoSegmentRecord) string {
	return fmt.Sprintf("[%s] audio: %s screen: %s...",
		core.FormatTimestamp(v.Timestamp), v.AudioText, core.Truncate(v.VisualDescription, 100))
}

func positive(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
