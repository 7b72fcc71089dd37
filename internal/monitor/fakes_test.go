package monitor

import (
	"context"
	"io"
	"sync"
	"time"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/models"
)

func quietLogger() *logger.Logger {
	return logger.NewWriter(io.Discard, logger.ERROR)
}

// hostPinger answers according to a mutable host table.
type hostPinger struct {
	mu    sync.Mutex
	up    map[string]bool
	calls int
}

func newHostPinger(up ...string) *hostPinger {
	p := &hostPinger{up: map[string]bool{}}
	for _, h := range up {
		p.up[h] = true
	}
	return p
}

func (p *hostPinger) set(host string, up bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.up[host] = up
}

func (p *hostPinger) Ping(_ context.Context, host string, _ time.Duration) PingResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.up[host] {
		return PingResult{OK: true, RTT: 2 * time.Millisecond}
	}
	return PingResult{}
}

type recordingSink struct {
	mu      sync.Mutex
	upserts []models.UpsertOfficeRequest
	changes []models.StateChangeEvent
	ticks   [][]models.TickSample
}

func (s *recordingSink) UpsertOffice(_ context.Context, req models.UpsertOfficeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, req)
	return nil
}

func (s *recordingSink) StateChange(_ context.Context, ev models.StateChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, ev)
	return nil
}

func (s *recordingSink) Tick(_ context.Context, batch []models.TickSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, batch)
	return nil
}

func (s *recordingSink) stateChanges() []models.StateChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.StateChangeEvent(nil), s.changes...)
}

func (s *recordingSink) upserted() []models.UpsertOfficeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.UpsertOfficeRequest(nil), s.upserts...)
}

func (s *recordingSink) tickCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ticks)
}

func testOffice(name, prefix string) models.UpsertOfficeRequest {
	o := models.UpsertOfficeRequest{
		Name:          name,
		GatewayIP:     prefix + ".1",
		MXIP:          prefix + ".2",
		TunnelProbeIP: prefix + ".3",
	}
	o.ApplyDefaults()
	return o
}
