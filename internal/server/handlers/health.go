package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/agentstation/quotesync/internal/server/response"
)

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "quotesync-api",
		"version": "v1",
	})
}

// HandleReady handles GET /api/v1/ready.
func (h *Handlers) HandleReady(w http.ResponseWriter, _ *http.Request) {
	status := h.client.Status()
	response.OK(w, map[string]any{
		"status":            "ready",
		"records":           len(h.client.All()),
		"sync_state":        status.State,
		"auto_sync":         status.AutoSync,
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
	})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := h.client.Status()
	response.OK(w, map[string]any{
		"runtime": map[string]any{
			"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
			"goroutines":     runtime.NumGoroutine(),
			"memory_mb":      mem.Alloc / 1024 / 1024,
		},
		"collection": map[string]any{
			"records":    len(h.client.All()),
			"categories": len(h.client.Categories()),
			"conflicts":  status.Conflicts,
		},
		"sync": status,
		"events": map[string]any{
			"published_total": h.broker.EventsPublished(),
			"dropped_total":   h.broker.EventsDropped(),
			"queue_depth":     h.broker.QueueDepth(),
		},
		"realtime": map[string]any{
			"websocket_clients": h.wsHub.ClientCount(),
			"sse_clients":       h.sseBroadcaster.ClientCount(),
		},
		"cache": h.cache.GetStats(),
	})
}
