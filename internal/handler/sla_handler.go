package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/models"
	"OfficeSLAMonitor/internal/report"
	"OfficeSLAMonitor/internal/service"

	"github.com/gorilla/mux"
)

type SLAHandler struct {
	slaService *service.SLAService
	log        *logger.Logger
}

func NewSLAHandler(slaService *service.SLAService, log *logger.Logger) *SLAHandler {
	return &SLAHandler{
		slaService: slaService,
		log:        log,
	}
}

func (h *SLAHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/sla", h.SLA).Methods("GET")
	r.HandleFunc("/sla/report.pdf", h.Report).Methods("GET")
	r.HandleFunc("/samples", h.Samples).Methods("GET")
}

func (h *SLAHandler) query(r *http.Request) (models.SlaQuery, error) {
	tStart, err := queryInt64(r, "t_start")
	if err != nil {
		return models.SlaQuery{}, err
	}
	tEnd, err := queryInt64(r, "t_end")
	if err != nil {
		return models.SlaQuery{}, err
	}

	window, err := h.slaService.ResolveWindow(tStart, tEnd)
	if err != nil {
		return models.SlaQuery{}, err
	}

	return models.SlaQuery{Office: r.URL.Query().Get("office"), Window: window}, nil
}

func (h *SLAHandler) SLA(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.slaService.Query(r.Context(), q)
	if err != nil {
		respondServiceError(w, h.log, "compute sla", err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *SLAHandler) Samples(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.slaService.Samples(r.Context(), q.Office, q.Window)
	if err != nil {
		respondServiceError(w, h.log, "list samples", err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Report renders the same rows as SLA as a PDF. The optional tz parameter
// is an IANA zone name used for the timestamps.
func (h *SLAHandler) Report(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown time zone %q", tz))
			return
		}
	}

	resp, err := h.slaService.Query(r.Context(), q)
	if err != nil {
		respondServiceError(w, h.log, "compute sla", err)
		return
	}

	var buf bytes.Buffer
	if err := report.SLA(&buf, resp, loc, time.Now()); err != nil {
		h.log.Error("Failed to render SLA report: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	name := fmt.Sprintf("sla-%d-%d.pdf", q.Window.TStart, q.Window.TEnd)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
