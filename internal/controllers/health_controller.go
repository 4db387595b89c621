package controllers

import (
	"fmt"
	"net/http"
	"time"
	"tlsync/internal/syncer/interfaces"

	json "github.com/goccy/go-json"
)

type HealthController struct {
	engine    interfaces.EngineInterface
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	SyncRunning   bool    `json:"sync_running"`
	Watermark     string  `json:"watermark,omitempty"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	status := hc.engine.Status()
	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		SyncRunning:   status.Running,
	}
	if !status.Watermark.IsZero() {
		resp.Watermark = status.Watermark.UTC().Format(time.RFC3339)
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(engine interfaces.EngineInterface) *HealthController {
	return &HealthController{
		engine:    engine,
		startTime: time.Now(),
	}
}
