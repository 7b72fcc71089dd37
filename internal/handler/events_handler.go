package handler

import (
	"OfficeSLAMonitor/internal/websocket"

	"github.com/gorilla/mux"
)

// EventsHandler streams state_change and tick events over a websocket.
type EventsHandler struct {
	hub *websocket.Hub
}

func NewEventsHandler(hub *websocket.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

func (h *EventsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.hub.ServeWs).Methods("GET")
}
