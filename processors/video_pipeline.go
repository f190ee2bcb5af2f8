package processors

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"multimodalRAG/core"
	"multimodalRAG/storage"
)

// VideoIngestor 视频入库：抽音频、采样、选关键帧、转写、对齐、描述、写入视频集合
type VideoIngestor struct {
	Sampler     FrameSampler
	Audio       AudioExtractor
	Transcriber core.Transcriber
	Describer   core.Summarizer
	Registry    *storage.Registry

	TargetFPS float64
	Threshold float64
	WorkDir   string
}

// Process turns a video into segment records. Frames that fail encoding,
// alignment or description are dropped and counted; the run fails only when
// the file is missing or no frame survives.
func (v *VideoIngestor) Process(ctx context.Context, videoPath string) ([]core.VideoSegmentRecord, int, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, 0, fmt.Errorf("%w: %s", core.ErrNotFound, videoPath)
	}
	jobID := core.NewID()
	jobDir := filepath.Join(v.workDir(), jobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return nil, 0, fmt.Errorf("create job dir: %w", err)
	}
	start := time.Now()
	log.Printf("[%s] Processing video %s", jobID, filepath.Base(videoPath))

	audioPath := filepath.Join(jobDir, "audio.wav")
	if err := v.Audio.ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return nil, 0, fmt.Errorf("extract audio: %w", err)
	}

	targetFps := v.TargetFPS
	if targetFps <= 0 {
		targetFps = DefaultTargetFPS
	}
	samples, err := v.Sampler.Sample(ctx, videoPath, targetFps)
	if err != nil {
		return nil, 0, fmt.Errorf("sample frames: %w", err)
	}
	threshold := v.Threshold
	if threshold <= 0 {
		threshold = DefaultSceneThreshold
	}
	keys := SelectKeyFrames(samples, threshold)
	log.Printf("[%s] %d key frames out of %d samples (threshold %.1f)", jobID, len(keys), len(samples), threshold)

	segments, err := v.Transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, 0, fmt.Errorf("transcribe: %w", err)
	}
	log.Printf("[%s] transcript has %d segments", jobID, len(segments))

	records := make([]core.VideoSegmentRecord, 0, len(keys))
	dropped := 0
	for i, kf := range keys {
		rec, err := v.processFrame(ctx, kf, segments)
		if err != nil {
			dropped++
			log.Printf("[%s] Warning: dropping key frame %d at %s: %v", jobID, i, core.FormatTimestamp(kf.Timestamp), err)
			continue
		}
		if !rec.HasSummary() {
			dropped++
			log.Printf("[%s] Warning: dropping key frame %d at %s: %v", jobID, i, core.FormatTimestamp(kf.Timestamp), core.ErrEmptySummary)
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, dropped, fmt.Errorf("%s: %w", filepath.Base(videoPath), core.ErrNoSurvivors)
	}
	log.Printf("[%s] %d segments ready, %d dropped, took %v", jobID, len(records), dropped, time.Since(start))
	return records, dropped, nil
}

func (v *VideoIngestor) processFrame(ctx context.Context, kf core.KeyFrame, segments []core.Segment) (core.VideoSegmentRecord, error) {
	if kf.Image == nil {
		return core.VideoSegmentRecord{}, fmt.Errorf("frame %d has no image", kf.Index)
	}
	frameB64, err := EncodeFrameBase64(kf.Image)
	if err != nil {
		return core.VideoSegmentRecord{}, fmt.Errorf("encode: %w", err)
	}
	audio, err := AlignTranscript(segments, kf.Timestamp)
	if err != nil {
		return core.VideoSegmentRecord{}, fmt.Errorf("align: %w", err)
	}
	visual, err := v.Describer.SummarizeImage(ctx, frameB64, FrameAnalysisPrompt)
	if err != nil {
		return core.VideoSegmentRecord{}, fmt.Errorf("describe: %w", err)
	}
	return core.VideoSegmentRecord{
		Timestamp:         kf.Timestamp,
		AudioText:         audio,
		VisualDescription: visual,
		FrameContent:      frameB64,
		Summary:           SegmentSummary(kf.Timestamp, audio, visual),
	}, nil
}

// SegmentSummary 组合音频与画面描述；两者都为空时返回空串，交给数据质量检查剔除
func SegmentSummary(ts float64, audio, visual string) string {
	audio, visual = strings.TrimSpace(audio), strings.TrimSpace(visual)
	if audio == "" && visual == "" {
		return ""
	}
	return fmt.Sprintf("[%s]\naudio: %s\nscreen: %s", core.FormatTimestamp(ts), audio, visual)
}

// Ingest processes the video and stores its segments in the conversation's
// video collection.
func (v *VideoIngestor) Ingest(ctx context.Context, conversationID, videoPath string) (core.IngestReport, error) {
	report := core.IngestReport{ConversationID: conversationID, Collection: core.VideoCollectionName(conversationID)}
	records, dropped, err := v.Process(ctx, videoPath)
	report.Dropped = dropped
	if err != nil {
		return report, err
	}
	store, err := v.Registry.CreateVideoStore(ctx, conversationID)
	if err != nil {
		return report, fmt.Errorf("open video collection: %w", err)
	}
	n, err := store.Store(ctx, DocumentKey(videoPath), records)
	report.Segments = n
	if err != nil {
		return report, err
	}
	log.Printf("[%s] stored %d video segments from %s", conversationID, n, filepath.Base(videoPath))
	return report, nil
}

func (v *VideoIngestor) workDir() string {
	if v.WorkDir != "" {
		return v.WorkDir
	}
	return filepath.Join(core.DataRoot(), "jobs")
}
