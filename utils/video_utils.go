package utils

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ExtractAudio 提取 16kHz 单声道 wav。只有音频流，不需要硬件解码
func ExtractAudio(ctx context.Context, inputPath, audioOut string) error {
	args := []string{"-y", "-i", inputPath, "-vn", "-ac", "1", "-ar", "16000", "-f", "wav", audioOut}
	return RunFFmpeg(ctx, args)
}

// ProbeFPS 读取第一条视频流的帧率
func ProbeFPS(ctx context.Context, videoPath string) (float64, error) {
	out, err := RunFFprobe(ctx, []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	})
	if err != nil {
		return 0, err
	}
	return ParseFrameRate(out)
}

// ParseFrameRate parses ffprobe rates such as "30000/1001" or "25".
func ParseFrameRate(s string) (float64, error) {
	s = strings.TrimSpace(strings.Split(s, "\n")[0])
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	if found {
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("invalid frame rate %q", s)
		}
		n /= d
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	return n, nil
}

// ExtractEveryNthFrame 导出帧序号能被 stride 整除的帧为 PNG，文件按输出顺序编号
func ExtractEveryNthFrame(ctx context.Context, videoPath, framesDir string, stride int, gpuType string) error {
	if err := EnsureDir(framesDir); err != nil {
		return fmt.Errorf("创建帧目录失败: %v", err)
	}
	return RunFFmpeg(ctx, FrameExtractArgs(videoPath, framesDir, stride, gpuType))
}

// FrameExtractArgs 帧导出参数，硬件加速参数放在 -i 之前作用于视频解码
func FrameExtractArgs(videoPath, framesDir string, stride int, gpuType string) []string {
	if stride < 1 {
		stride = 1
	}
	args := []string{"-y"}
	if gpuType != "" && gpuType != "cpu" {
		args = append(args, GetHardwareAccelArgs(gpuType)...)
	}
	return append(args,
		"-i", videoPath,
		"-vf", fmt.Sprintf("select='not(mod(n\\,%d))'", stride),
		"-vsync", "vfr",
		filepath.Join(framesDir, "frame_%06d.png"),
	)
}
