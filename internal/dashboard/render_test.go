package dashboard

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"OfficeSLAMonitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testView(t *testing.T, err error) View {
	t.Helper()
	down := models.StateDown
	at := int64(999_000)
	rtt := 8.0
	now := time.Unix(1_000_000, 0)
	return buildView(viewInput{
		seq:    7,
		now:    now,
		filter: Filter{Range: Ranges[0], Office: "NYC", AutoRefresh: true},
		known:  []string{"NYC", "Atlantis"},
		resp: &models.SlaResponse{
			Window: Ranges[0].Window(now),
			SLA: []models.SlaRow{
				{Office: "NYC", CurrentState: &down, CurrentAt: &at, SecDown: 60, SecTotal: 60, LatestGateway: boolPtr(false)},
				{Office: "Atlantis", SecTotal: 60},
			},
		},
		samples:   []models.StoredSample{{Office: "NYC", Sample: models.Sample{GatewayRTTMs: &rtt}}},
		locations: DefaultLocations(),
		reportURL: "/api/sla/report.pdf?office=NYC",
		err:       err,
	})
}

func TestRendererPage(t *testing.T) {
	r, err := NewRenderer(time.UTC)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, testView(t, nil)))
	html := buf.String()

	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "/static/app.js")
	assert.Contains(t, html, `data-seq="7"`)
	assert.Contains(t, html, "badge-down")
	assert.Contains(t, html, "NYC")
	assert.Contains(t, html, "Not on map: Atlantis")
	assert.Contains(t, html, "Latency: NYC")
	assert.Contains(t, html, "PDF report")
	assert.NotContains(t, html, "<dialog")
}

func TestRendererFragmentError(t *testing.T) {
	r, err := NewRenderer(time.UTC)
	require.NoError(t, err)

	html, err := r.Fragment(testView(t, errors.New("request failed with status 502")))
	require.NoError(t, err)
	assert.Contains(t, html, "<dialog")
	assert.Contains(t, html, "Could not load SLA data")
	assert.Contains(t, html, "request failed with status 502")
	assert.Contains(t, html, "No data for this window.")
	assert.NotContains(t, html, "PDF report")
	assert.NotContains(t, html, "<!DOCTYPE html>")
}

func TestRendererTimestamp(t *testing.T) {
	r, err := NewRenderer(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "1970-01-12 13:46:40 UTC", r.Timestamp(time.Unix(1_000_000, 0)))
}

func TestStatic(t *testing.T) {
	srv := httptest.NewServer(Static())
	defer srv.Close()

	for _, name := range []string{"/app.js", "/app.css"} {
		resp, err := http.Get(srv.URL + name)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, name)
	}
}

func TestDict(t *testing.T) {
	m, err := dict("a", 1, "b", "two")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": "two"}, m)

	_, err = dict("a")
	assert.Error(t, err)
	_, err = dict(1, 2)
	assert.Error(t, err)
}
