package handler

import (
	"errors"
	"net/http"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/models"
	"OfficeSLAMonitor/internal/repository"
	"OfficeSLAMonitor/internal/service"

	"github.com/gorilla/mux"
)

type OfficeHandler struct {
	officeService *service.OfficeService
	log           *logger.Logger
}

func NewOfficeHandler(officeService *service.OfficeService, log *logger.Logger) *OfficeHandler {
	return &OfficeHandler{
		officeService: officeService,
		log:           log,
	}
}

// RegisterRoutes mounts the office routes. protect wraps the write route.
func (h *OfficeHandler) RegisterRoutes(r *mux.Router, protect func(http.Handler) http.Handler) {
	r.Handle("/offices", protect(http.HandlerFunc(h.Upsert))).Methods("POST")
	r.HandleFunc("/offices", h.List).Methods("GET")
	r.HandleFunc("/offices/{name}", h.Get).Methods("GET")
}

func (h *OfficeHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req models.UpsertOfficeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log.Warn("Invalid office body: %v", err)
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.officeService.Upsert(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.log, "upsert office", err)
		return
	}

	respondJSON(w, http.StatusOK, models.UpsertOfficeResponse{OK: true, OfficeID: id})
}

func (h *OfficeHandler) List(w http.ResponseWriter, r *http.Request) {
	offices, err := h.officeService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.log, "list offices", err)
		return
	}

	respondJSON(w, http.StatusOK, offices)
}

func (h *OfficeHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	office, err := h.officeService.Get(r.Context(), name)
	if errors.Is(err, repository.ErrOfficeNotFound) {
		respondError(w, http.StatusNotFound, "Office not found")
		return
	}
	if err != nil {
		respondServiceError(w, h.log, "get office", err)
		return
	}

	respondJSON(w, http.StatusOK, office)
}
