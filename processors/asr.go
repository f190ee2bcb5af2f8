package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"multimodalRAG/core"
)

// WhisperAPIASR 通过 OpenAI 兼容接口转写（verbose_json 带时间戳）
type WhisperAPIASR struct {
	cli   *core.OpenAIClient
	model string
}

func NewWhisperAPIASR(cli *core.OpenAIClient, model string) *WhisperAPIASR {
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperAPIASR{cli: cli, model: model}
}

func (a *WhisperAPIASR) Transcribe(ctx context.Context, audioPath string) ([]core.Segment, error) {
	var segs []core.Segment
	err := a.cli.Call(ctx, "transcription", func(ctx context.Context) error {
		resp, err := a.cli.CreateTranscription(ctx, openai.AudioRequest{
			Model:    a.model,
			FilePath: audioPath,
			Format:   openai.AudioResponseFormatVerboseJSON,
		})
		if err != nil {
			return fmt.Errorf("whisper API failed: %w", err)
		}
		segs = segs[:0]
		for _, s := range resp.Segments {
			segs = append(segs, core.Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortSegments(segs), nil
}

// LocalWhisperASR 调用本地 openai-whisper，脚本在首次使用时写到临时目录
type LocalWhisperASR struct {
	Python string
	Model  string // tiny | base | small ...
}

const localWhisperScript = `import json, sys
import whisper

model = whisper.load_model(sys.argv[2] if len(sys.argv) > 2 else "base")
result = model.transcribe(sys.argv[1])
out = [{"start": s["start"], "end": s["end"], "text": s["text"].strip()} for s in result.get("segments", [])]
print(json.dumps(out, ensure_ascii=False))
`

func (l LocalWhisperASR) Transcribe(ctx context.Context, audioPath string) ([]core.Segment, error) {
	scriptPath, err := writeScript("whisper_transcribe.py", localWhisperScript)
	if err != nil {
		return nil, err
	}
	python := l.Python
	if python == "" {
		python = "python"
	}
	model := l.Model
	if model == "" {
		model = "base"
	}

	cmd := exec.CommandContext(ctx, python, scriptPath, audioPath, model)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("local Whisper transcription failed: %v", err)
	}

	var segments []core.Segment
	if err := json.Unmarshal(output, &segments); err != nil {
		return nil, fmt.Errorf("failed to parse whisper output: %v", err)
	}
	return sortSegments(segments), nil
}

func sortSegments(segs []core.Segment) []core.Segment {
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })
	return segs
}

// writeScript 把内嵌的 python 脚本写到临时目录并返回路径
func writeScript(name, body string) (string, error) {
	dir := filepath.Join(os.TempDir(), "multimodal-rag-scripts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create script dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if existing, err := os.ReadFile(path); err == nil && string(existing) == body {
		return path, nil
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		return "", fmt.Errorf("write script %s: %w", name, err)
	}
	log.Printf("Wrote helper script %s", path)
	return path, nil
}
