package processors

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"

	"multimodalRAG/core"
	"multimodalRAG/utils"
)

// DefaultTargetFPS 默认每秒采样一帧
const DefaultTargetFPS = 1.0

// SampleStride returns how many source frames separate two samples:
// max(1, floor(videoFps/targetFps)).
func SampleStride(videoFps, targetFps float64) int {
	if videoFps <= 0 || targetFps <= 0 {
		return 1
	}
	stride := int(math.Floor(videoFps / targetFps))
	if stride < 1 {
		return 1
	}
	return stride
}

// FrameSampler decodes a video into samples ordered by timestamp.
type FrameSampler interface {
	Sample(ctx context.Context, videoPath string, targetFps float64) ([]core.FrameSample, error)
}

// AudioExtractor 从视频中抽出可供转写的音轨
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioOut string) error
}

// FFmpegSampler 用 ffprobe 读帧率，ffmpeg select 滤镜导出第 i*stride 帧
type FFmpegSampler struct {
	WorkDir string
	GPUType string
}

func (s *FFmpegSampler) Sample(ctx context.Context, videoPath string, targetFps float64) ([]core.FrameSample, error) {
	if targetFps <= 0 {
		targetFps = DefaultTargetFPS
	}
	fps, err := utils.ProbeFPS(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("probe fps: %w", err)
	}
	stride := SampleStride(fps, targetFps)

	framesDir := filepath.Join(s.WorkDir, "frames", core.NewID())
	if err := utils.ExtractEveryNthFrame(ctx, videoPath, framesDir, stride, s.GPUType); err != nil {
		if s.GPUType == "" || s.GPUType == "cpu" {
			os.RemoveAll(framesDir)
			return nil, err
		}
		log.Printf("Warning: GPU frame extraction failed (%v), retrying on CPU", err)
		if err := utils.ExtractEveryNthFrame(ctx, videoPath, framesDir, stride, "cpu"); err != nil {
			os.RemoveAll(framesDir)
			return nil, err
		}
	}
	samples, err := decodeFrames(framesDir, stride, fps)
	if err != nil {
		return nil, err
	}
	log.Printf("Sampled %d frames from %s (fps %.2f, stride %d)", len(samples), filepath.Base(videoPath), fps, stride)
	return samples, nil
}

// decodeFrames 按文件名顺序解码导出的帧，解码后删除帧目录，图片只留在内存
func decodeFrames(framesDir string, stride int, fps float64) ([]core.FrameSample, error) {
	defer os.RemoveAll(framesDir)
	files, err := filepath.Glob(filepath.Join(framesDir, "frame_*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	samples := make([]core.FrameSample, 0, len(files))
	for i, f := range files {
		img, err := decodePNG(f)
		if err != nil {
			log.Printf("Warning: skipping unreadable frame %s: %v", f, err)
			continue
		}
		// 第 i 个输出对应源视频第 i*stride 帧
		index := i * stride
		samples = append(samples, core.FrameSample{
			Index:     index,
			Timestamp: float64(index) / fps,
			Image:     img,
		})
	}
	return samples, nil
}

func (s *FFmpegSampler) ExtractAudio(ctx context.Context, videoPath, audioOut string) error {
	return utils.ExtractAudio(ctx, videoPath, audioOut)
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
