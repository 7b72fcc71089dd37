package dashboard

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	n atomic.Int32
}

func (c *countingRefresher) RefreshAll() { c.n.Add(1) }

func quiet() *logger.Logger { return logger.NewWriter(io.Discard, logger.ERROR) }

func TestEventListenerURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://api:8080", "ws://api:8080/api/ws"},
		{"https://sla.example.com/", "wss://sla.example.com/api/ws"},
		{"http://proxy/sla", "ws://proxy/sla/api/ws"},
	}
	for _, tc := range cases {
		l, err := NewEventListener(tc.base, &countingRefresher{}, 0, quiet())
		require.NoError(t, err, tc.base)
		assert.Equal(t, tc.want, l.URL())
	}

	_, err := NewEventListener("ftp://api", &countingRefresher{}, 0, quiet())
	assert.Error(t, err)
}

func TestEventListenerHandle(t *testing.T) {
	r := &countingRefresher{}
	l, err := NewEventListener("http://api", r, time.Hour, quiet())
	require.NoError(t, err)

	l.handle(models.EventTick)
	l.handle(models.EventTick)
	l.handle(models.EventTick)
	assert.Equal(t, int32(1), r.n.Load(), "ticks are rate limited")

	l.handle(models.EventStateChange)
	l.handle(models.EventStateChange)
	assert.Equal(t, int32(3), r.n.Load())

	l.handle("something_else")
	assert.Equal(t, int32(3), r.n.Load())
}

func TestEventListenerRun(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ws", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(models.Event{Type: models.EventStateChange})
		// hold the connection until the client goes away
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	r := &countingRefresher{}
	l, err := NewEventListener(srv.URL, r, time.Hour, quiet())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return r.n.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}
