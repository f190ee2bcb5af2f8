package processors

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"multimodalRAG/core"
)

type fakeSampler struct {
	samples []core.FrameSample
	err     error
}

func (f *fakeSampler) Sample(context.Context, string, float64) ([]core.FrameSample, error) {
	return f.samples, f.err
}

type fakeAudio struct {
	calls int
}

func (f *fakeAudio) ExtractAudio(_ context.Context, _, audioOut string) error {
	f.calls++
	return os.WriteFile(audioOut, []byte("RIFF"), 0644)
}

type fakeTranscriber struct {
	segments []core.Segment
	err      error
}

func (f *fakeTranscriber) Transcribe(context.Context, string) ([]core.Segment, error) {
	return f.segments, f.err
}

// fakeSummarizer 文本摘要原样加前缀；failOn 中的子串触发失败
type fakeSummarizer struct {
	mu          sync.Mutex
	failOn      []string
	imageAnswer string
	imageErrs   int // 前 N 次图片调用失败
	imageCalls  int
	prompts     []string
}

func (f *fakeSummarizer) SummarizeText(_ context.Context, text string) (string, error) {
	for _, s := range f.failOn {
		if strings.Contains(text, s) {
			return "", errors.New("invalid request")
		}
	}
	return "summary of " + text, nil
}

func (f *fakeSummarizer) SummarizeImage(_ context.Context, _ string, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalls++
	f.prompts = append(f.prompts, prompt)
	if f.imageCalls <= f.imageErrs {
		return "", errors.New("vision model unavailable")
	}
	return f.imageAnswer, nil
}

type fakeGenerator struct {
	answer      string
	err         error
	prompt      string
	contextText string
	images      []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt, contextText string, images []string) (string, error) {
	f.prompt, f.contextText, f.images = prompt, contextText, images
	return f.answer, f.err
}

// fakeExtractor 模拟分区器：返回固定元素，并把图片写进 imageDir
type fakeExtractor struct {
	elements []core.RawElement
	images   map[string][]byte // 文件名 -> 内容
}

func (f *fakeExtractor) Extract(_ context.Context, documentPath, imageDir string) ([]core.RawElement, error) {
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return nil, err
	}
	for name, data := range f.images {
		target := filepath.Join(imageDir, DocumentKey(documentPath)+documentPrefixSep+name)
		if err := os.WriteFile(target, data, 0644); err != nil {
			return nil, err
		}
	}
	return f.elements, nil
}

func touch(dir, name string) string {
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("data"), 0644); err != nil {
		panic(err)
	}
	return p
}
