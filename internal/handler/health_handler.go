package handler

import (
	"context"
	"net/http"
	"time"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/models"

	"github.com/gorilla/mux"
)

type DatabaseChecker interface {
	Health(ctx context.Context) error
}

type BrokerChecker interface {
	IsConnected() bool
}

type HealthHandler struct {
	db   DatabaseChecker
	mqtt BrokerChecker
	log  *logger.Logger
}

// NewHealthHandler builds the health routes. mqtt may be nil when the
// broker transport is disabled; it then never degrades health.
func NewHealthHandler(db DatabaseChecker, mqtt BrokerChecker, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:   db,
		mqtt: mqtt,
		log:  log,
	}
}

func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/health/live", h.Liveness).Methods("GET")
	r.HandleFunc("/health/ready", h.Readiness).Methods("GET")
}

func (h *HealthHandler) mqttOK() bool {
	return h.mqtt == nil || h.mqtt.IsConnected()
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	response.Services.Database = h.db.Health(ctx) == nil
	response.Services.MQTT = h.mqtt != nil && h.mqtt.IsConnected()

	statusCode := http.StatusOK
	if !response.Services.Database || !h.mqttOK() {
		response.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
		h.log.Warn("Health check degraded - DB: %v, MQTT: %v", response.Services.Database, response.Services.MQTT)
	}

	respondJSON(w, statusCode, response)
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.db.Health(ctx)
	if dbErr != nil || !h.mqttOK() {
		h.log.Warn("Readiness check failed - DB error: %v, MQTT ok: %v", dbErr, h.mqttOK())
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
