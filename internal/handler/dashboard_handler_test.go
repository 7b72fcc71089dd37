package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"OfficeSLAMonitor/internal/dashboard"
	"OfficeSLAMonitor/internal/models"

	"github.com/gorilla/mux"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slaAPI(t *testing.T, status int) *httptest.Server {
	t.Helper()
	down := models.StateDown
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		q := r.URL.Query()
		start, _ := strconv.ParseInt(q.Get("t_start"), 10, 64)
		end, _ := strconv.ParseInt(q.Get("t_end"), 10, 64)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/sla":
			_ = json.NewEncoder(w).Encode(models.SlaResponse{
				Window: models.Window{TStart: start, TEnd: end},
				SLA:    []models.SlaRow{{Office: "NYC", CurrentState: &down, SecDown: end - start, SecTotal: end - start}},
			})
		case "/api/samples":
			_ = json.NewEncoder(w).Encode(models.SamplesResponse{Window: models.Window{TStart: start, TEnd: end}, Office: q.Get("office")})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dashboardRouter(t *testing.T, ctx context.Context, apiURL string, registry *dashboard.Registry) *mux.Router {
	t.Helper()
	return dashboardRouterWithTimeout(t, ctx, apiURL, registry, 0)
}

func dashboardRouterWithTimeout(t *testing.T, ctx context.Context, apiURL string, registry *dashboard.Registry, pageTimeout time.Duration) *mux.Router {
	t.Helper()
	renderer, err := dashboard.NewRenderer(time.UTC)
	require.NoError(t, err)

	h := NewDashboardHandler(ctx, renderer, registry, dashboard.SessionConfig{
		Fetcher: dashboard.NewClient(apiURL, time.Second, nil),
		Log:     quiet(),
	}, pageTimeout, quiet())
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestDashboardPage(t *testing.T) {
	api := slaAPI(t, http.StatusOK)
	r := dashboardRouter(t, context.Background(), api.URL, dashboard.NewRegistry(nil))

	req := httptest.NewRequest(http.MethodGet, "/?range=7d", nil)
	req.AddCookie(&http.Cookie{Name: dashboard.KnownOfficesCookie, Value: dashboard.EncodeKnown([]string{"Zeta"})})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, "NYC")
	assert.Contains(t, body, "Zeta")
	assert.Contains(t, body, "badge-down")
	assert.Contains(t, body, "7 days")
	assert.Contains(t, body, "7d 0h")

	var known []string
	for _, c := range rec.Result().Cookies() {
		if c.Name == dashboard.KnownOfficesCookie {
			known = dashboard.DecodeKnown(c.Value)
		}
	}
	assert.Equal(t, []string{"NYC", "Zeta"}, known)
}

func TestDashboardPageAPIFailure(t *testing.T) {
	api := slaAPI(t, http.StatusBadGateway)
	r := dashboardRouter(t, context.Background(), api.URL, dashboard.NewRegistry(nil))

	rec := do(t, r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "request failed with status 502")
	assert.Contains(t, rec.Body.String(), "<dialog")
}

func TestDashboardStatic(t *testing.T) {
	r := dashboardRouter(t, context.Background(), "http://unused", dashboard.NewRegistry(nil))

	rec := do(t, r, http.MethodGet, "/static/app.js", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "WebSocket"))
}

type viewFrame struct {
	Type    string      `json:"type"`
	Payload ViewPayload `json:"payload"`
}

func TestDashboardLive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := slaAPI(t, http.StatusOK)
	registry := dashboard.NewRegistry(nil)
	srv := httptest.NewServer(dashboardRouter(t, ctx, api.URL, registry))
	defer srv.Close()

	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?office=NYC", nil)
	require.NoError(t, err)

	read := func() viewFrame {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var f viewFrame
		require.NoError(t, conn.ReadJSON(&f))
		return f
	}

	first := read()
	assert.Equal(t, "view", first.Type)
	assert.Equal(t, uint64(1), first.Payload.Seq)
	assert.Contains(t, first.Payload.HTML, "Latency: NYC")
	assert.Equal(t, []string{"NYC"}, dashboard.DecodeKnown(first.Payload.Known))
	assert.NotEmpty(t, first.Payload.Updated)
	assert.Eventually(t, func() bool { return registry.Len() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "refresh"}))
	second := read()
	assert.Greater(t, second.Payload.Seq, first.Payload.Seq)

	registry.RefreshAll()
	third := read()
	assert.Greater(t, third.Payload.Seq, second.Payload.Seq)

	conn.Close()
	assert.Eventually(t, func() bool { return registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestDashboardLiveKeepsAutoRefreshChoice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := slaAPI(t, http.StatusOK)
	srv := httptest.NewServer(dashboardRouter(t, ctx, api.URL, dashboard.NewRegistry(nil)))
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	for _, tt := range []struct {
		query   string
		checked bool
	}{
		{"?auto=false", false},
		{"?auto=true", true},
		{"", true},
	} {
		t.Run("query"+tt.query, func(t *testing.T) {
			conn, _, err := gws.DefaultDialer.Dial(base+tt.query, nil)
			require.NoError(t, err)
			defer conn.Close()

			require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
			var f viewFrame
			require.NoError(t, conn.ReadJSON(&f))
			assert.Equal(t, tt.checked, strings.Contains(f.Payload.HTML, `data-action="auto" checked`))
		})
	}
}

func TestDashboardPageDeadline(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	}))
	defer slow.Close()

	r := dashboardRouterWithTimeout(t, context.Background(), slow.URL, dashboard.NewRegistry(nil), 100*time.Millisecond)

	start := time.Now()
	rec := do(t, r, http.MethodGet, "/?office=NYC", "")
	elapsed := time.Since(start)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Less(t, elapsed, 700*time.Millisecond)
	assert.Contains(t, rec.Body.String(), "<dialog")
}

func TestPageTimeout(t *testing.T) {
	assert.Equal(t, 8*time.Second, PageTimeout(10*time.Second))
	assert.Zero(t, PageTimeout(0))
}
