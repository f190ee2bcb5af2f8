package core

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// HealthCheck 单项健康检查
type HealthCheck struct {
	Status  string `json:"status"` // ok | warning | error
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// SystemInfo 系统信息
type SystemInfo struct {
	OS           string `json:"os"`
	Arch         string `json:"arch"`
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
}

func CurrentSystemInfo() SystemInfo {
	return SystemInfo{
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
}

// CheckBinary runs `name args...` and reports the first line of its output.
// Used for ffmpeg, ffprobe and the python interpreter.
func CheckBinary(ctx context.Context, name string, args ...string) HealthCheck {
	start := time.Now()
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return HealthCheck{Status: "error", Message: fmt.Sprintf("%s not available: %v", name, err), Latency: latency}
	}
	first := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	return HealthCheck{Status: "ok", Message: first, Latency: latency}
}

// CheckDataDir 数据目录存在且可写
func CheckDataDir(dir string) HealthCheck {
	start := time.Now()
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return HealthCheck{Status: "error", Message: fmt.Sprintf("Data directory does not exist: %s", dir)}
	}
	probe := filepath.Join(dir, ".health_check")
	if err := os.WriteFile(probe, []byte("health check"), 0644); err != nil {
		return HealthCheck{Status: "error", Message: fmt.Sprintf("Data directory not writable: %v", err), Latency: time.Since(start).Milliseconds()}
	}
	os.Remove(probe)
	return HealthCheck{Status: "ok", Message: "Data directory writable", Latency: time.Since(start).Milliseconds()}
}

// OverallStatus 任一 error 为 unhealthy，任一 warning 为 degraded
func OverallStatus(checks map[string]HealthCheck) string {
	status := "ok"
	for _, c := range checks {
		switch c.Status {
		case "error":
			return "unhealthy"
		case "warning":
			status = "degraded"
		}
	}
	return status
}
