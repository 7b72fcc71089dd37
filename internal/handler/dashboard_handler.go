package handler

import (
	"context"
	"net/http"
	"time"

	"OfficeSLAMonitor/internal/dashboard"
	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/websocket"

	"github.com/gorilla/mux"
)

const knownCookieMaxAge = 365 * 24 * 3600

// ViewPayload is pushed to the browser after each applied refresh.
type ViewPayload struct {
	Seq     uint64 `json:"seq"`
	HTML    string `json:"html"`
	Known   string `json:"known"`
	Updated string `json:"updated"`
}

type DashboardHandler struct {
	ctx         context.Context
	renderer    *dashboard.Renderer
	registry    *dashboard.Registry
	sessions    dashboard.SessionConfig
	pageTimeout time.Duration
	log         *logger.Logger
}

// NewDashboardHandler serves the dashboard. Live sessions end when ctx is
// cancelled. pageTimeout bounds all API calls made for one page load; zero
// leaves them to the client's own timeout.
func NewDashboardHandler(ctx context.Context, renderer *dashboard.Renderer, registry *dashboard.Registry, sessions dashboard.SessionConfig, pageTimeout time.Duration, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		ctx:         ctx,
		renderer:    renderer,
		registry:    registry,
		sessions:    sessions,
		pageTimeout: pageTimeout,
		log:         log,
	}
}

// PageTimeout leaves a fifth of the write timeout for rendering.
func PageTimeout(writeTimeout time.Duration) time.Duration {
	return writeTimeout * 4 / 5
}

func (h *DashboardHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.Page).Methods("GET")
	r.HandleFunc("/ws", h.Live).Methods("GET")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", dashboard.Static()))
}

func filterFrom(r *http.Request) dashboard.Filter {
	q := r.URL.Query()
	return dashboard.Filter{
		Range:       dashboard.ParseRange(q.Get("range")),
		Office:      q.Get("office"),
		AutoRefresh: q.Get("auto") != "false",
	}
}

func knownFrom(r *http.Request) []string {
	c, err := r.Cookie(dashboard.KnownOfficesCookie)
	if err != nil {
		return nil
	}
	return dashboard.DecodeKnown(c.Value)
}

// Page renders the dashboard with data fetched for this request.
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.pageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.pageTimeout)
		defer cancel()
	}

	s := dashboard.NewSession(h.sessions, filterFrom(r), knownFrom(r), nil)
	v, _ := s.Refresh(ctx)

	http.SetCookie(w, &http.Cookie{
		Name:     dashboard.KnownOfficesCookie,
		Value:    dashboard.EncodeKnown(v.Known),
		Path:     "/",
		MaxAge:   knownCookieMaxAge,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Page(w, v); err != nil {
		h.log.Error("Failed to render dashboard: %v", err)
	}
}

// Live upgrades to a websocket session that pushes re-rendered views.
func (h *DashboardHandler) Live(w http.ResponseWriter, r *http.Request) {
	var client *websocket.Client
	s := dashboard.NewSession(h.sessions, filterFrom(r), knownFrom(r), func(v dashboard.View) {
		html, err := h.renderer.Fragment(v)
		if err != nil {
			h.log.Error("Failed to render view: %v", err)
			return
		}
		client.Send(websocket.Message{Type: "view", Payload: ViewPayload{
			Seq:     v.Seq,
			HTML:    html,
			Known:   dashboard.EncodeKnown(v.Known),
			Updated: h.renderer.Timestamp(v.Now),
		}})
	})

	var err error
	client, err = websocket.Upgrade(w, r, h.log, s.HandleMessage)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(h.ctx)
	h.registry.Add(s)
	h.log.Debug("Dashboard session %s opened (%d active)", s.ID, h.registry.Len())

	go func() {
		defer func() {
			cancel()
			h.registry.Remove(s)
			client.Close()
			h.log.Debug("Dashboard session %s closed (%d active)", s.ID, h.registry.Len())
		}()
		go s.Run(ctx)
		select {
		case <-client.Done():
		case <-ctx.Done():
		}
	}()
}
