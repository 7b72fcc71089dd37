package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/metrics"
	"OfficeSLAMonitor/internal/models"

	"github.com/google/uuid"
)

// Fetcher is the part of the API a session reads.
type Fetcher interface {
	SLA(ctx context.Context, office string, w models.Window) (*models.SlaResponse, error)
	Samples(ctx context.Context, office string, w models.Window) (*models.SamplesResponse, error)
	ReportURL(office string, w models.Window, tz string) string
}

type SessionConfig struct {
	Fetcher      Fetcher
	Locations    Locations
	PollInterval time.Duration
	Timezone     string
	Metrics      *metrics.Metrics
	Log          *logger.Logger
	Now          func() time.Time
}

// Session is one viewer. Every refresh takes a sequence number when it is
// issued, and its result is applied only if nothing newer has been applied,
// so a slow response never overwrites a fresher one.
type Session struct {
	ID string

	cfg     SessionConfig
	publish func(View)
	trigger chan struct{}

	mu      sync.Mutex
	filter  Filter
	known   []string
	issued  uint64
	applied uint64
	last    View
}

// NewSession starts with filter and the offices remembered by the viewer.
// publish, when set, receives each applied view while the session lock is
// held and must not block.
func NewSession(cfg SessionConfig, filter Filter, known []string, publish func(View)) *Session {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 60 * time.Second
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewWithRegisterer(nil)
	}
	if cfg.Log == nil {
		cfg.Log = logger.NewWriter(io.Discard, logger.ERROR)
	}
	if cfg.Locations == nil {
		cfg.Locations = DefaultLocations()
	}
	if filter.Range.Key == "" {
		filter.Range = Ranges[0]
	}

	return &Session{
		ID:      uuid.NewString(),
		cfg:     cfg,
		publish: publish,
		trigger: make(chan struct{}, 1),
		filter:  filter,
		known:   OfficeOptions(known, ""),
	}
}

func (s *Session) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *Session) Last() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Session) SetFilter(f Filter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
	s.Trigger()
}

// Trigger asks Run for a refresh. Requests made while one is pending are
// merged.
func (s *Session) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Refresh fetches the current filter and reports whether the result was
// applied.
func (s *Session) Refresh(ctx context.Context) (View, bool) {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	f := s.filter
	s.mu.Unlock()

	now := s.cfg.Now()
	w := f.Range.Window(now)

	resp, err := s.cfg.Fetcher.SLA(ctx, f.Office, w)
	var samples []models.StoredSample
	if err == nil && f.Office != "" {
		sr, serr := s.cfg.Fetcher.Samples(ctx, f.Office, w)
		if serr != nil {
			s.cfg.Log.Debug("Samples for %s unavailable: %v", f.Office, serr)
		} else {
			samples = sr.Samples
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq <= s.applied {
		s.cfg.Metrics.DashboardFetches.WithLabelValues("stale").Inc()
		return s.last, false
	}
	s.applied = seq

	result := "ok"
	reportURL := ""
	if err != nil {
		result = "error"
		s.cfg.Log.Warn("Session %s refresh failed: %v", s.ID, err)
	} else {
		s.known = MergeKnown(s.known, resp.SLA)
		reportURL = s.cfg.Fetcher.ReportURL(f.Office, resp.Window, s.cfg.Timezone)
	}
	s.cfg.Metrics.DashboardFetches.WithLabelValues(result).Inc()

	s.last = buildView(viewInput{
		seq:       seq,
		now:       now,
		filter:    f,
		known:     s.known,
		resp:      resp,
		samples:   samples,
		locations: s.cfg.Locations,
		reportURL: reportURL,
		err:       err,
	})
	if s.publish != nil {
		s.publish(s.last)
	}
	return s.last, true
}

// Run refreshes immediately, on every poll tick while auto refresh is on,
// and whenever triggered, until ctx is done.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	go s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.Filter().AutoRefresh {
				go s.Refresh(ctx)
			}
		case <-s.trigger:
			go s.Refresh(ctx)
		}
	}
}

type clientMessage struct {
	Type   string `json:"type"`
	Range  string `json:"range"`
	Office string `json:"office"`
	Auto   *bool  `json:"auto"`
}

// HandleMessage applies a frame sent by the browser.
func (s *Session) HandleMessage(data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.cfg.Log.Debug("Session %s: ignoring frame: %v", s.ID, err)
		return
	}

	switch msg.Type {
	case "filter":
		f := s.Filter()
		f.Range = ParseRange(msg.Range)
		f.Office = msg.Office
		if msg.Auto != nil {
			f.AutoRefresh = *msg.Auto
		}
		s.SetFilter(f)
	case "refresh":
		s.Trigger()
	}
}

// Registry tracks open sessions so API events can refresh them all.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	metrics  *metrics.Metrics
}

func NewRegistry(m *metrics.Metrics) *Registry {
	if m == nil {
		m = metrics.NewWithRegisterer(nil)
	}
	return &Registry{sessions: make(map[string]*Session), metrics: m}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	r.metrics.DashboardSessions.Set(float64(len(r.sessions)))
}

func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s.ID)
	r.metrics.DashboardSessions.Set(float64(len(r.sessions)))
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// RefreshAll triggers every session.
func (r *Registry) RefreshAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		s.Trigger()
	}
}
