package core

import "context"

// 外部协作方接口。所有调用都是阻塞的，ctx 只用于重试等待与请求超时。

// ContentExtractor partitions a document into ordered typed elements.
// Images are written as files into imageDir rather than returned inline.
type ContentExtractor interface {
	Extract(ctx context.Context, documentPath, imageDir string) ([]RawElement, error)
}

// Summarizer 文本/表格/图片摘要
type Summarizer interface {
	SummarizeText(ctx context.Context, text string) (string, error)
	SummarizeImage(ctx context.Context, imageBase64, prompt string) (string, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Transcriber 语音转写，返回按时间排序的片段
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]Segment, error)
}

// MultimodalGenerator must accept an empty image list.
type MultimodalGenerator interface {
	Generate(ctx context.Context, prompt, contextText string, images []string) (string, error)
}
