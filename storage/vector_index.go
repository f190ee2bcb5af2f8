package storage

import (
	"context"
	"math"
	"sort"
)

// VectorRecord 向量库中的一条记录：被检索的文本 + 元数据
type VectorRecord struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
	Vector   []float32         `json:"-"`
}

// VectorHit is a VectorRecord returned by Search with its similarity score.
type VectorHit struct {
	VectorRecord
	Score float64 `json:"score"`
}

// VectorIndex abstracts the vector backend. A collection is a named,
// isolated set of records; reading a collection that does not exist yields
// no hits rather than an error.
type VectorIndex interface {
	Add(ctx context.Context, collection string, records []VectorRecord) error
	Search(ctx context.Context, collection string, query []float32, topK int) ([]VectorHit, error)
	Count(ctx context.Context, collection string) (int, error)
	HasCollection(ctx context.Context, collection string) (bool, error)
	DropCollection(ctx context.Context, collection string) error
}

// 元数据键
const (
	metaDocID      = "doc_id"
	metaType       = "type"
	metaPath       = "path"
	metaVideoID    = "video_id"
	metaTimestamp  = "timestamp"
	metaAudioText  = "audio_text"
	metaVisualDesc = "visual_description"
)

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// rankHits 按相似度降序，分数相同时保持插入顺序
func rankHits(hits []VectorHit, topK int) []VectorHit {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > 0 && topK < len(hits) {
		hits = hits[:topK]
	}
	return hits
}

func copyMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
