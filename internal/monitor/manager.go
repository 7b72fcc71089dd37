package monitor

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/metrics"
	"OfficeSLAMonitor/internal/models"

	"golang.org/x/sync/errgroup"
)

const (
	targetGateway = "gateway"
	targetMX      = "mx"
	targetTunnel  = "tunnel"
)

// Jitter returns a random duration in [0, limit).
type Jitter func(limit time.Duration) time.Duration

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return rand.N(limit)
}

type office struct {
	mu      sync.RWMutex
	spec    models.UpsertOfficeRequest
	hash    string
	tracker *Tracker
	cancel  context.CancelFunc
}

func (o *office) targets() models.UpsertOfficeRequest {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.spec
}

// Manager owns one probe loop per configured office.
type Manager struct {
	ctx      context.Context
	pinger   Pinger
	sink     Sink
	settings Settings
	metrics  *metrics.Metrics
	log      *logger.Logger

	now    func() time.Time
	jitter Jitter

	mu      sync.Mutex
	offices map[string]*office
	wg      sync.WaitGroup
}

// NewManager binds probe loops to ctx; cancelling it stops them all.
func NewManager(ctx context.Context, pinger Pinger, sink Sink, settings Settings, m *metrics.Metrics, log *logger.Logger) *Manager {
	if m == nil {
		m = metrics.NewWithRegisterer(nil)
	}
	return &Manager{
		ctx:      ctx,
		pinger:   pinger,
		sink:     sink,
		settings: settings,
		metrics:  m,
		log:      log,
		now:      time.Now,
		jitter:   randomJitter,
		offices:  make(map[string]*office),
	}
}

// Reconcile makes the running set match cfg. Removed offices stop, new
// offices start, edited offices get new targets and thresholds in place
// so their debounce state survives. New and edited offices are upserted
// to the API; upsert failures are returned but do not stop probing.
func (m *Manager) Reconcile(ctx context.Context, cfg *OfficesFile) error {
	var upserts []models.UpsertOfficeRequest

	m.mu.Lock()
	want := make(map[string]models.UpsertOfficeRequest, len(cfg.Offices))
	for _, o := range cfg.Offices {
		want[o.Name] = o
	}

	for name, o := range m.offices {
		if _, ok := want[name]; !ok {
			o.cancel()
			delete(m.offices, name)
			m.metrics.OfficeState.DeleteLabelValues(name)
			m.log.Info("Stopped probing %s", name)
		}
	}

	for _, spec := range cfg.Offices {
		hash := OfficeHash(spec)
		existing, ok := m.offices[spec.Name]
		switch {
		case !ok:
			m.start(spec, hash)
			upserts = append(upserts, spec)
			m.log.Info("Started probing %s", spec.Name)
		case existing.hash != hash:
			existing.mu.Lock()
			existing.spec = spec
			existing.hash = hash
			existing.mu.Unlock()
			existing.tracker.SetRetries(spec.RetriesDown, spec.RetriesUp)
			upserts = append(upserts, spec)
			m.log.Info("Updated %s", spec.Name)
		}
	}
	m.metrics.MonitoredOffices.Set(float64(len(m.offices)))
	m.mu.Unlock()

	var errs []error
	for _, spec := range upserts {
		if err := m.sink.UpsertOffice(ctx, spec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// start must be called with m.mu held.
func (m *Manager) start(spec models.UpsertOfficeRequest, hash string) {
	ctx, cancel := context.WithCancel(m.ctx)
	o := &office{
		spec:    spec,
		hash:    hash,
		tracker: NewTracker(spec.RetriesDown, spec.RetriesUp, m.now()),
		cancel:  cancel,
	}
	m.offices[spec.Name] = o
	m.metrics.OfficeState.WithLabelValues(spec.Name).Set(float64(models.StateUnknown.Severity()))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx, o)
	}()
}

func (m *Manager) run(ctx context.Context, o *office) {
	// Spread the first round so a large config does not ping in lockstep.
	if !sleep(ctx, m.jitter(min(500*time.Millisecond, m.settings.Interval/4))) {
		return
	}

	for {
		started := m.now()
		m.round(ctx, o)

		wait := max(0, m.settings.Interval-m.now().Sub(started))
		wait += m.jitter(min(250*time.Millisecond, m.settings.Interval/20))
		if !sleep(ctx, wait) {
			return
		}
	}
}

func (m *Manager) round(ctx context.Context, o *office) {
	spec := o.targets()
	sample := ProbeOffice(ctx, m.pinger, spec, m.settings.Timeout, m.now())
	if ctx.Err() != nil {
		return
	}
	m.observeRTT(spec.Name, sample)

	state, changed := o.tracker.Observe(sample, m.now())
	if !changed {
		return
	}
	m.metrics.OfficeState.WithLabelValues(spec.Name).Set(float64(state.Severity()))

	ev := models.StateChangeEvent{
		Office: spec.Name,
		State:  state,
		Sample: models.Sample{Gateway: sample.Gateway, MX: sample.MX, IPsec: sample.IPsec, TS: sample.TS},
		At:     sample.TS,
	}
	m.log.Event(models.EventStateChange, map[string]interface{}{
		"office": ev.Office,
		"state":  ev.State,
		"sample": ev.Sample,
		"at":     ev.At,
	})

	if err := m.sink.StateChange(ctx, ev); err != nil {
		m.log.Error("Failed to report %s -> %s: %v", ev.Office, ev.State, err)
	}
}

func (m *Manager) observeRTT(name string, s models.Sample) {
	for target, rtt := range map[string]*float64{
		targetGateway: s.GatewayRTTMs,
		targetMX:      s.MXRTTMs,
		targetTunnel:  s.TunnelRTTMs,
	} {
		if rtt != nil {
			m.metrics.ProbeRTT.WithLabelValues(name, target).Observe(*rtt / 1000)
		}
	}
	for target, ok := range map[string]bool{
		targetGateway: s.Gateway,
		targetMX:      s.MX,
		targetTunnel:  s.IPsec,
	} {
		if !ok {
			m.metrics.ProbeFailures.WithLabelValues(name, target).Inc()
		}
	}
}

// Snapshot lists every office that has been probed at least once, sorted
// by name.
func (m *Manager) Snapshot() []models.TickSample {
	m.mu.Lock()
	offices := make(map[string]*office, len(m.offices))
	for name, o := range m.offices {
		offices[name] = o
	}
	m.mu.Unlock()

	out := make([]models.TickSample, 0, len(offices))
	for name, o := range offices {
		snap := o.tracker.Snapshot()
		if snap.LastSample == nil {
			continue
		}
		out = append(out, models.TickSample{Office: name, State: snap.State, Sample: *snap.LastSample})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Office < out[j].Office })
	return out
}

// Offices returns the names currently probed.
func (m *Manager) Offices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.offices))
	for name := range m.offices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Wait blocks until every probe loop has returned. Cancel the manager's
// context first.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// ProbeOffice pings the three targets of spec concurrently.
func ProbeOffice(ctx context.Context, p Pinger, spec models.UpsertOfficeRequest, timeout time.Duration, now time.Time) models.Sample {
	var gw, mx, tun PingResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { gw = p.Ping(gctx, spec.GatewayIP, timeout); return nil })
	g.Go(func() error { mx = p.Ping(gctx, spec.MXIP, timeout); return nil })
	g.Go(func() error { tun = p.Ping(gctx, spec.TunnelProbeIP, timeout); return nil })
	_ = g.Wait()

	return models.Sample{
		Gateway:      gw.OK,
		MX:           mx.OK,
		IPsec:        tun.OK,
		TS:           now.Unix(),
		GatewayRTTMs: gw.RTTMs(),
		MXRTTMs:      mx.RTTMs(),
		TunnelRTTMs:  tun.RTTMs(),
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
