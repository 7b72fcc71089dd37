package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"OfficeSLAMonitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSLA(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sla", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("t_start"))
		assert.Equal(t, "200", r.URL.Query().Get("t_end"))
		assert.Equal(t, "NYC", r.URL.Query().Get("office"))
		_ = json.NewEncoder(w).Encode(models.SlaResponse{
			Window: models.Window{TStart: 100, TEnd: 200},
			SLA:    []models.SlaRow{{Office: "NYC", SecUp: 100, SecTotal: 100, UptimeStrict: 1}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	resp, err := c.SLA(context.Background(), "NYC", models.Window{TStart: 100, TEnd: 200})
	require.NoError(t, err)
	require.Len(t, resp.SLA, 1)
	assert.Equal(t, 1.0, resp.SLA[0].UptimeStrict)
}

func TestClientOmitsEmptyOffice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, has := r.URL.Query()["office"]
		assert.False(t, has)
		_, _ = w.Write([]byte(`{"window":{"t_start":0,"t_end":1},"office":"","samples":[]}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, time.Second, nil).Samples(context.Background(), "", models.Window{TEnd: 1})
	require.NoError(t, err)
	assert.Empty(t, resp.Samples)
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, nil).SLA(context.Background(), "", models.Window{})
	require.Error(t, err)
	assert.Equal(t, "request failed with status 503", err.Error())
	assert.Error(t, NewClient(srv.URL, time.Second, nil).Health(context.Background()))

	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()
	_, err = NewClient(url, time.Second, nil).SLA(context.Background(), "", models.Window{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect")
}

func TestClientReportURL(t *testing.T) {
	c := NewClient("http://api:8080", 0, nil)
	u := c.ReportURL("New York", models.Window{TStart: 1, TEnd: 2}, "America/New_York")
	assert.Equal(t, "http://api:8080/api/sla/report.pdf?office=New+York&t_end=2&t_start=1&tz=America%2FNew_York", u)
}
