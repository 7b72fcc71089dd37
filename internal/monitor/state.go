package monitor

import (
	"sync"
	"time"

	"OfficeSLAMonitor/internal/models"
)

// InstantState classifies a single probe round: the office is reachable if
// either the gateway or the MX answers, and fully up only when the tunnel
// probe answers as well.
func InstantState(gw, mx, ipsec bool) models.State {
	if gw || mx {
		if ipsec {
			return models.StateUp
		}
		return models.StateDegraded
	}
	return models.StateDown
}

// Tracker debounces instant states into the committed office state.
type Tracker struct {
	mu sync.Mutex

	retriesDown int
	retriesUp   int

	state      models.State
	failStreak int
	okStreak   int
	lastChange time.Time
	lastSample *models.Sample
}

func NewTracker(retriesDown, retriesUp int, now time.Time) *Tracker {
	t := &Tracker{state: models.StateUnknown, lastChange: now}
	t.SetRetries(retriesDown, retriesUp)
	return t
}

func (t *Tracker) SetRetries(down, up int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retriesDown = max(down, 1)
	t.retriesUp = max(up, 1)
}

// Observe records a probe round and reports whether the committed state
// changed. Leaving up or unknown for down or degraded takes retriesDown
// consecutive rounds; every other change takes retriesUp.
func (t *Tracker) Observe(sample models.Sample, now time.Time) (models.State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := sample
	t.lastSample = &s
	next := InstantState(sample.Gateway, sample.MX, sample.IPsec)

	if next == t.state {
		t.failStreak = 0
		t.okStreak = 0
		return t.state, false
	}

	if next.Incident() && (t.state == models.StateUp || t.state == models.StateUnknown) {
		t.failStreak++
		t.okStreak = 0
		if t.failStreak < t.retriesDown {
			return t.state, false
		}
	} else {
		t.okStreak++
		t.failStreak = 0
		if t.okStreak < t.retriesUp {
			return t.state, false
		}
	}

	t.state = next
	t.failStreak = 0
	t.okStreak = 0
	t.lastChange = now
	return t.state, true
}

// TrackerSnapshot is a consistent copy of a tracker.
type TrackerSnapshot struct {
	State      models.State
	LastChange time.Time
	LastSample *models.Sample
}

func (t *Tracker) Snapshot() TrackerSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := TrackerSnapshot{State: t.state, LastChange: t.lastChange}
	if t.lastSample != nil {
		s := *t.lastSample
		snap.LastSample = &s
	}
	return snap
}
