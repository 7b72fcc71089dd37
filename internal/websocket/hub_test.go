package websocket

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"OfficeSLAMonitor/internal/logger"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsToClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(logger.NewWriter(&bytes.Buffer{}, logger.ERROR))
	counts := make(chan int, 8)
	hub.OnClientCount(func(n int) { counts <- n })
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer srv.Close()

	conn := dial(t, srv)
	select {
	case n := <-counts:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("client never registered")
	}

	hub.Broadcast("state_change", map[string]string{"office": "HQ"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "state_change", msg.Type)
	assert.Equal(t, "HQ", msg.Payload["office"])

	conn.Close()
	select {
	case n := <-counts:
		assert.Equal(t, 0, n)
	case <-time.After(2 * time.Second):
		t.Fatal("client never unregistered")
	}
}

func TestBroadcastAfterStopDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger.NewWriter(&bytes.Buffer{}, logger.ERROR))
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Broadcast("tick", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked after hub stopped")
	}
}

func TestUpgradeDeliversInboundFrames(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = Upgrade(w, r, logger.NewWriter(&bytes.Buffer{}, logger.ERROR), func(b []byte) {
			got <- string(b)
		})
	}))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte(`{"type":"filter"}`)))

	select {
	case msg := <-got:
		assert.Equal(t, `{"type":"filter"}`, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("inbound frame not delivered")
	}
}
