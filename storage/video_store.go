package storage

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"

	"multimodalRAG/core"
)

// DefaultVideoTopK 视频检索默认条数
const DefaultVideoTopK = 3

// VideoSegmentStore 摘要作为检索文本，时间戳与文字字段作为元数据；
// 帧图片体积大，按片段 id 存进 docstore，检索时再取回
type VideoSegmentStore struct {
	name     string
	vectors  VectorIndex
	frames   ContentStore
	embedder core.Embedder
}

func NewVideoSegmentStore(name string, vectors VectorIndex, frames ContentStore, embedder core.Embedder) *VideoSegmentStore {
	return &VideoSegmentStore{name: name, vectors: vectors, frames: frames, embedder: embedder}
}

func (s *VideoSegmentStore) Name() string { return s.name }

// Store writes the records with a non-blank summary and returns how many
// were written. Ids are "<videoID>_<i>_<uuid>" with i the input position.
// A failure part way leaves earlier records in place.
func (s *VideoSegmentStore) Store(ctx context.Context, videoID string, segments []core.VideoSegmentRecord) (int, error) {
	records := make([]VectorRecord, 0, len(segments))
	var frames []core.Artifact
	for i, seg := range segments {
		if !seg.HasSummary() {
			log.Printf("[%s] Warning: skipping segment %d of %s with blank summary", s.name, i, videoID)
			continue
		}
		vec, err := s.embedder.Embed(ctx, seg.Summary)
		if err != nil {
			log.Printf("[%s] Warning: embed segment %d of %s failed: %v", s.name, i, videoID, err)
			continue
		}
		id := fmt.Sprintf("%s_%d_%s", videoID, i, uuid.NewString())
		records = append(records, VectorRecord{
			ID:       id,
			Document: seg.Summary,
			Metadata: map[string]string{
				metaVideoID:    videoID,
				metaTimestamp:  strconv.FormatFloat(seg.Timestamp, 'f', -1, 64),
				metaAudioText:  seg.AudioText,
				metaVisualDesc: seg.VisualDescription,
			},
			Vector: vec,
		})
		if seg.FrameContent != "" {
			frames = append(frames, core.Artifact{ID: id, Kind: core.KindImage, Content: seg.FrameContent, Summary: seg.Summary})
		}
	}
	if len(records) == 0 {
		return 0, nil
	}
	// 先写帧再写索引，命中时帧一定可取
	if err := s.frames.Put(ctx, s.name, frames); err != nil {
		return 0, fmt.Errorf("store frames of %s: %w", videoID, err)
	}
	if err := s.vectors.Add(ctx, s.name, records); err != nil {
		return 0, fmt.Errorf("store segments of %s: %w", videoID, err)
	}
	log.Printf("[%s] stored %d/%d segments of %s", s.name, len(records), len(segments), videoID)
	return len(records), nil
}

// Search returns up to k records, most similar first, with every metadata
// field restored. k <= 0 means DefaultVideoTopK.
func (s *VideoSegmentStore) Search(ctx context.Context, query string, k int) ([]core.VideoSegmentRecord, error) {
	if k <= 0 {
		k = DefaultVideoTopK
	}
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.vectors.Search(ctx, s.name, qv, k)
	if err != nil {
		return nil, err
	}
	frames, err := s.loadFrames(ctx, hits)
	if err != nil {
		return nil, err
	}
	out := make([]core.VideoSegmentRecord, 0, len(hits))
	for _, h := range hits {
		ts, _ := strconv.ParseFloat(h.Metadata[metaTimestamp], 64)
		out = append(out, core.VideoSegmentRecord{
			ID:                h.ID,
			VideoID:           h.Metadata[metaVideoID],
			Timestamp:         ts,
			AudioText:         h.Metadata[metaAudioText],
			VisualDescription: h.Metadata[metaVisualDesc],
			FrameContent:      frames[h.ID],
			Summary:           h.Document,
			Score:             h.Score,
		})
	}
	return out, nil
}

func (s *VideoSegmentStore) loadFrames(ctx context.Context, hits []VectorHit) (map[string]string, error) {
	if len(hits) == 0 {
		return nil, nil
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	got, err := s.frames.Get(ctx, s.name, ids)
	if err != nil {
		return nil, fmt.Errorf("load frames: %w", err)
	}
	out := make(map[string]string, len(got))
	for _, a := range got {
		out[a.ID] = a.Content
	}
	return out, nil
}

// Count 调试用：集合中的记录数
func (s *VideoSegmentStore) Count(ctx context.Context) (int, error) {
	return s.vectors.Count(ctx, s.name)
}
