package handlers

import (
	"context"
	"net/http"
	"time"
)

const version = "0.2.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Health handles the health check endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	allHealthy := true

	// Check snapshot store
	if h.snap != nil {
		start := time.Now()
		if err := h.snap.Ping(ctx); err != nil {
			checks["snapshot"] = Check{Status: "fail", Message: "connection failed"}
			allHealthy = false
		} else {
			checks["snapshot"] = Check{Status: "pass", Latency: time.Since(start).String()}
		}
	} else {
		checks["snapshot"] = Check{Status: "fail", Message: "not configured"}
		allHealthy = false
	}

	// Check inbox transport
	if h.inbox != nil {
		start := time.Now()
		if err := h.inbox.Ping(ctx); err != nil {
			checks["inbox"] = Check{Status: "fail", Message: "connection failed"}
			allHealthy = false
		} else {
			checks["inbox"] = Check{Status: "pass", Latency: time.Since(start).String()}
		}
	} else {
		checks["inbox"] = Check{Status: "fail", Message: "not configured"}
		allHealthy = false
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:    status,
		Version:   version,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	h.JSON(w, statusCode, resp)
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Root handles the root endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:    "borg-collective relay",
		Version: version,
	})
}
