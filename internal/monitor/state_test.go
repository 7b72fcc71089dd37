package monitor

import (
	"testing"
	"time"

	"OfficeSLAMonitor/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestInstantState(t *testing.T) {
	tests := []struct {
		gw, mx, ipsec bool
		want          models.State
	}{
		{true, true, true, models.StateUp},
		{true, false, true, models.StateUp},
		{false, true, true, models.StateUp},
		{true, true, false, models.StateDegraded},
		{false, true, false, models.StateDegraded},
		{false, false, true, models.StateDown},
		{false, false, false, models.StateDown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, InstantState(tt.gw, tt.mx, tt.ipsec), "gw=%t mx=%t ipsec=%t", tt.gw, tt.mx, tt.ipsec)
	}
}

var (
	upSample   = models.Sample{Gateway: true, MX: true, IPsec: true}
	degSample  = models.Sample{Gateway: true}
	downSample = models.Sample{}
)

func TestTrackerDebounce(t *testing.T) {
	now := time.Unix(1000, 0)
	tr := NewTracker(2, 1, now)
	assert.Equal(t, models.StateUnknown, tr.Snapshot().State)

	// unknown -> up needs retries_up rounds
	state, changed := tr.Observe(upSample, now.Add(time.Second))
	assert.True(t, changed)
	assert.Equal(t, models.StateUp, state)

	// one failed round is absorbed
	_, changed = tr.Observe(downSample, now.Add(2*time.Second))
	assert.False(t, changed)

	// a good round resets the failure streak
	_, changed = tr.Observe(upSample, now.Add(3*time.Second))
	assert.False(t, changed)
	_, changed = tr.Observe(downSample, now.Add(4*time.Second))
	assert.False(t, changed)

	state, changed = tr.Observe(downSample, now.Add(5*time.Second))
	assert.True(t, changed)
	assert.Equal(t, models.StateDown, state)

	snap := tr.Snapshot()
	assert.Equal(t, now.Add(5*time.Second), snap.LastChange)
	assert.NotNil(t, snap.LastSample)

	// down -> degraded is not "leaving up", so retries_up applies
	state, changed = tr.Observe(degSample, now.Add(6*time.Second))
	assert.True(t, changed)
	assert.Equal(t, models.StateDegraded, state)
}

func TestTrackerMixedIncidentStates(t *testing.T) {
	now := time.Unix(0, 0)
	tr := NewTracker(2, 1, now)
	tr.Observe(upSample, now)

	// degraded then down both count towards leaving up
	_, changed := tr.Observe(degSample, now)
	assert.False(t, changed)
	state, changed := tr.Observe(downSample, now)
	assert.True(t, changed)
	assert.Equal(t, models.StateDown, state)
}

func TestTrackerSetRetries(t *testing.T) {
	now := time.Unix(0, 0)
	tr := NewTracker(3, 1, now)
	tr.Observe(upSample, now)

	tr.SetRetries(1, 1)
	state, changed := tr.Observe(downSample, now)
	assert.True(t, changed)
	assert.Equal(t, models.StateDown, state)

	tr.SetRetries(0, 0)
	state, changed = tr.Observe(upSample, now)
	assert.True(t, changed, "zero thresholds behave as one")
	assert.Equal(t, models.StateUp, state)
}
