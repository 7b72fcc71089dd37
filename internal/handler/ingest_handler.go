package handler

import (
	"net/http"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/models"
	"OfficeSLAMonitor/internal/service"

	"github.com/gorilla/mux"
)

type IngestHandler struct {
	ingestService *service.IngestService
	log           *logger.Logger
}

func NewIngestHandler(ingestService *service.IngestService, log *logger.Logger) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
		log:           log,
	}
}

func (h *IngestHandler) RegisterRoutes(r *mux.Router, protect func(http.Handler) http.Handler) {
	ingest := r.PathPrefix("/ingest").Subrouter()
	ingest.Use(protect)
	ingest.HandleFunc("/state_change", h.StateChange).Methods("POST")
	ingest.HandleFunc("/tick", h.Tick).Methods("POST")
}

func (h *IngestHandler) StateChange(w http.ResponseWriter, r *http.Request) {
	var ev models.StateChangeEvent
	if err := decodeJSON(w, r, &ev); err != nil {
		h.log.Warn("Invalid state change body: %v", err)
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inserted, err := h.ingestService.RecordStateChange(r.Context(), service.TransportHTTP, ev)
	if err != nil {
		respondServiceError(w, h.log, "ingest state change", err)
		return
	}

	respondJSON(w, http.StatusOK, models.StateChangeResponse{OK: true, Inserted: inserted})
}

func (h *IngestHandler) Tick(w http.ResponseWriter, r *http.Request) {
	var batch []models.TickSample
	if err := decodeJSON(w, r, &batch); err != nil {
		h.log.Warn("Invalid tick body: %v", err)
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	count, err := h.ingestService.RecordTick(r.Context(), service.TransportHTTP, batch)
	if err != nil {
		respondServiceError(w, h.log, "ingest tick", err)
		return
	}

	respondJSON(w, http.StatusOK, models.TickResponse{OK: true, Count: count})
}
