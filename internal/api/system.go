package api

import (
	"fmt"
	"net/http"
	"time"
)

// Health returns liveness plus the state of the backing services.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.metadata.Version,
	})
}

// Ready reports whether the dataset has been loaded.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.store.Loaded() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

// SystemHealth is the response for GET /api/system/health.
type SystemHealth struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	DatasetLoaded bool   `json:"dataset_loaded"`
}

// SystemHealth handles GET /api/system/health.
func (h *Handler) SystemHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SystemHealth{
		Status:        "ok",
		Uptime:        formatUptime(time.Since(h.started)),
		DatasetLoaded: h.store.Loaded(),
	})
}

// Metadata handles GET /api/system/metadata.
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":     h.metadata.Version,
		"last_update": h.metadata.LastUpdate,
	})
}

// formatUptime renders whole hours and minutes, e.g. "26h 5min".
func formatUptime(d time.Duration) string {
	total := int(d / time.Minute)
	return fmt.Sprintf("%dh %dmin", total/60, total%60)
}
