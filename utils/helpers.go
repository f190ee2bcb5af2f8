package utils

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// GetHardwareAccelArgs 获取硬件加速参数
func GetHardwareAccelArgs(gpuType string) []string {
	switch strings.ToLower(gpuType) {
	case "nvidia", "cuda":
		return []string{"-hwaccel", "cuda"}
	case "amd", "opencl":
		return []string{"-hwaccel", "opencl"}
	case "intel", "qsv":
		return []string{"-hwaccel", "qsv"}
	case "vaapi":
		return []string{"-hwaccel", "vaapi", "-hwaccel_device", "/dev/dri/renderD128"}
	case "videotoolbox":
		if runtime.GOOS == "darwin" {
			return []string{"-hwaccel", "videotoolbox"}
		}
		fallthrough
	default:
		return []string{} // CPU模式，无硬件加速
	}
}

// RunFFmpeg 执行FFmpeg命令
func RunFFmpeg(ctx context.Context, args []string) error {
	// 检查FFmpeg是否可用
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("FFmpeg未找到，请确保已安装并在PATH中: %v", err)
	}

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	cmd.Env = os.Environ()

	// 捕获输出用于调试
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("FFmpeg执行失败: %v\n输出: %s", err, string(output))
	}
	return nil
}

// RunFFprobe 执行ffprobe并返回标准输出
func RunFFprobe(ctx context.Context, args []string) (string, error) {
	probePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return "", fmt.Errorf("ffprobe未找到，请确保已安装并在PATH中: %v", err)
	}
	out, err := exec.CommandContext(ctx, probePath, args...).Output()
	if err != nil {
		return "", fmt.Errorf("ffprobe执行失败: %v", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// DetectGPUType 检测GPU类型
func DetectGPUType() string {
	if isNVIDIAAvailable() {
		return "nvidia"
	}
	if isIntelAvailable() {
		return "intel"
	}
	if runtime.GOOS == "darwin" {
		return "videotoolbox"
	}
	return "cpu"
}

// ResolveGPUType 把配置里的 "auto" 解析成具体类型，未启用加速时为 cpu
func ResolveGPUType(enabled bool, gpuType string) string {
	if !enabled {
		return "cpu"
	}
	if gpuType == "" || strings.EqualFold(gpuType, "auto") {
		return DetectGPUType()
	}
	return gpuType
}

func isNVIDIAAvailable() bool {
	return exec.Command("nvidia-smi").Run() == nil
}

func isIntelAvailable() bool {
	if runtime.GOOS == "linux" {
		if _, err := os.Stat("/dev/dri/renderD128"); err == nil {
			return true
		}
	}
	return false
}

// EnsureDir 确保目录存在
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
