package server

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/HerbHall/netwarden/internal/version"
)

// HealthResponse is the response for GET /health and GET /api/v1/health.
type HealthResponse struct {
	Status        string            `json:"status"`
	Service       string            `json:"service"`
	Version       map[string]string `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	MemoryRSS     uint64            `json:"memory_rss_bytes,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// healthReporter derives process details from the OS, falling back to the
// reporter's own creation time when process information is unavailable.
type healthReporter struct {
	proc      *process.Process
	startedAt time.Time
	now       func() time.Time
}

func newHealthReporter(logger *zap.Logger) *healthReporter {
	h := &healthReporter{startedAt: time.Now(), now: time.Now}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Debug("process information unavailable", zap.Error(err))
		return h
	}
	h.proc = proc
	if ms, err := proc.CreateTime(); err == nil && ms > 0 {
		h.startedAt = time.UnixMilli(ms)
	}
	return h
}

func (h *healthReporter) report(ctx context.Context) HealthResponse {
	now := h.now()
	resp := HealthResponse{
		Status:        "ok",
		Service:       "netwarden",
		Version:       version.Map(),
		UptimeSeconds: int64(now.Sub(h.startedAt).Seconds()),
		Timestamp:     now.UTC(),
	}
	if resp.UptimeSeconds < 0 {
		resp.UptimeSeconds = 0
	}
	if h.proc != nil {
		if mem, err := h.proc.MemoryInfoWithContext(ctx); err == nil {
			resp.MemoryRSS = mem.RSS
		}
	}
	return resp
}
