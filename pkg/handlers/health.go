package handlers

import (
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/tabchat-ai/tabchat-engine/pkg/config"
)

// PingResponse reports build and runtime information for operators.
type PingResponse struct {
	Status        string  `json:"status"`
	Service       string  `json:"service"`
	Version       string  `json:"version"`
	Environment   string  `json:"environment"`
	GoVersion     string  `json:"go_version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// HealthHandler answers liveness probes and the ping endpoint.
type HealthHandler struct {
	cfg     *config.Config
	started time.Time
	logger  *zap.Logger
}

// NewHealthHandler creates a HealthHandler. Uptime counts from here.
func NewHealthHandler(cfg *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, started: time.Now(), logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health. Plain "ok" body for load balancer probes;
// anything heavier belongs on /ping.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping with service identity, build version, and uptime.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	response := PingResponse{
		Status:        "ok",
		Service:       "tabchat-engine",
		Version:       h.cfg.Version,
		Environment:   h.cfg.Env,
		GoVersion:     runtime.Version(),
		UptimeSeconds: time.Since(h.started).Seconds(),
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
