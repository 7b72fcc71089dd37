package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/repository"
	"OfficeSLAMonitor/internal/service"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return
	}
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondServiceError maps domain errors to 400 and everything else to 500.
func respondServiceError(w http.ResponseWriter, log *logger.Logger, action string, err error) {
	var unknown *repository.UnknownOfficeError
	switch {
	case errors.As(err, &unknown):
		respondError(w, http.StatusBadRequest, unknown.Error())
	case errors.Is(err, service.ErrInvalidEvent),
		errors.Is(err, service.ErrInvalidOffice),
		errors.Is(err, service.ErrInvalidWindow):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error("Failed to %s: %v", action, err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// queryInt64 returns 0 when the parameter is absent.
func queryInt64(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}
