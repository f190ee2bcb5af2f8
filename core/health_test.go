package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckDataDir(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "ok", CheckDataDir(dir).Status)
	assert.Equal(t, "error", CheckDataDir(filepath.Join(dir, "missing")).Status)
}

func TestCheckBinaryMissing(t *testing.T) {
	c := CheckBinary(context.Background(), "mmrag-no-such-binary", "-version")
	assert.Equal(t, "error", c.Status)
	assert.Contains(t, c.Message, "mmrag-no-such-binary not available")
}

func TestOverallStatus(t *testing.T) {
	assert.Equal(t, "ok", OverallStatus(nil))
	assert.Equal(t, "degraded", OverallStatus(map[string]HealthCheck{"a": {Status: "ok"}, "b": {Status: "warning"}}))
	assert.Equal(t, "unhealthy", OverallStatus(map[string]HealthCheck{"a": {Status: "warning"}, "b": {Status: "error"}}))
}

func TestCurrentSystemInfo(t *testing.T) {
	info := CurrentSystemInfo()
	assert.NotEmpty(t, info.GoVersion)
	assert.Positive(t, info.NumCPU)
}
