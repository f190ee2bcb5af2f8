package storage

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"multimodalRAG/core"
)

// OpenAIEmbedder 通过 OpenAI 兼容接口生成向量
type OpenAIEmbedder struct {
	cli   *core.OpenAIClient
	model string
	dim   int // 0 表示使用模型原始维度
}

func NewOpenAIEmbedder(cli *core.OpenAIClient, model string, dim int) *OpenAIEmbedder {
	return &OpenAIEmbedder{cli: cli, model: model, dim: dim}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := e.cli.Call(ctx, "embedding", func(ctx context.Context) error {
		resp, err := e.cli.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.model),
			Input: []string{text},
		})
		if err != nil {
			return fmt.Errorf("embedding API failed: %w", err)
		}
		if len(resp.Data) == 0 {
			return core.Permanent(fmt.Errorf("no embeddings returned"))
		}
		vec = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, err
	}
	// 截取前N维并进行L2归一化
	if e.dim > 0 && e.dim < len(vec) {
		vec = slicedNormL2(vec, e.dim)
	}
	return vec, nil
}

// Dimension 未配置时按 text-embedding-3-small 的 1536 维
func (e *OpenAIEmbedder) Dimension() int {
	if e.dim > 0 {
		return e.dim
	}
	return 1536
}

// slicedNormL2 截取指定维度并进行L2归一化
func slicedNormL2(vec []float32, dim int) []float32 {
	if dim > len(vec) {
		dim = len(vec)
	}
	sliced := make([]float32, dim)
	copy(sliced, vec[:dim])

	var norm float64
	for _, v := range sliced {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range sliced {
			sliced[i] = float32(float64(sliced[i]) / norm)
		}
	}
	return sliced
}

// HashEmbedder is a deterministic bag-of-words embedder: lower-cased
// whitespace tokens hashed into a fixed number of buckets, L2 normalized.
// It needs no network and is used offline and in tests.
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dim)] += 1
	}
	return slicedNormL2(vec, e.dim), nil
}

func (e *HashEmbedder) Dimension() int { return e.dim }

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r > 127)
	})
}
