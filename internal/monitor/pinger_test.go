package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFpingRTT(t *testing.T) {
	out := "10.0.0.1 : xmt/rcv/%loss = 1/1/0%, min/avg/max = 1.21/1.21/1.21\n"
	assert.Equal(t, 1210*time.Microsecond, parseFpingRTT(out))

	assert.Zero(t, parseFpingRTT("10.0.0.1 : xmt/rcv/%loss = 1/0/100%"))
	assert.Zero(t, parseFpingRTT(""))
}

func TestPingResultRTTMs(t *testing.T) {
	assert.Nil(t, PingResult{}.RTTMs())
	assert.Nil(t, PingResult{OK: true}.RTTMs())

	ms := PingResult{OK: true, RTT: 1500 * time.Microsecond}.RTTMs()
	require.NotNil(t, ms)
	assert.InDelta(t, 1.5, *ms, 1e-9)
}

type slowPinger struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (p *slowPinger) Ping(context.Context, string, time.Duration) PingResult {
	n := p.inFlight.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	p.inFlight.Add(-1)
	return PingResult{OK: true}
}

func TestLimitedPinger(t *testing.T) {
	slow := &slowPinger{}
	p := NewLimitedPinger(slow, 3)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, p.Ping(context.Background(), "h", time.Second).OK)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, slow.peak.Load(), int32(3))
	assert.Positive(t, slow.peak.Load())
}

func TestLimitedPingerCancelled(t *testing.T) {
	p := NewLimitedPinger(&slowPinger{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Acquire on a cancelled context fails unless a slot is free; take the
	// only slot first.
	require.NoError(t, p.sem.Acquire(context.Background(), 1))
	defer p.sem.Release(1)
	assert.False(t, p.Ping(ctx, "h", time.Second).OK)
}
