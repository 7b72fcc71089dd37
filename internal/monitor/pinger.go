package monitor

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"OfficeSLAMonitor/internal/logger"

	probing "github.com/prometheus-community/pro-bing"
	"golang.org/x/sync/semaphore"
)

// PingResult is the outcome of one echo request.
type PingResult struct {
	OK  bool
	RTT time.Duration
}

// RTTMs returns the round trip in milliseconds, or nil when the host did
// not answer.
func (r PingResult) RTTMs() *float64 {
	if !r.OK || r.RTT <= 0 {
		return nil
	}
	ms := float64(r.RTT) / float64(time.Millisecond)
	return &ms
}

type Pinger interface {
	Ping(ctx context.Context, host string, timeout time.Duration) PingResult
}

// FpingPinger shells out to fping with a single probe.
type FpingPinger struct {
	path string
}

var fpingRTT = regexp.MustCompile(`min/avg/max = [0-9.]+/([0-9.]+)/[0-9.]+`)

func (p *FpingPinger) Ping(ctx context.Context, host string, timeout time.Duration) PingResult {
	ms := max(timeout.Milliseconds(), 1)
	cmd := exec.CommandContext(ctx, p.path, "-c1", "-t"+strconv.FormatInt(ms, 10), "-q", host)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return PingResult{}
	}

	return PingResult{OK: true, RTT: parseFpingRTT(stderr.String())}
}

// parseFpingRTT reads the average from fping's quiet summary line.
func parseFpingRTT(out string) time.Duration {
	m := fpingRTT.FindStringSubmatch(out)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return time.Duration(v * float64(time.Millisecond))
}

// ICMPPinger sends the echo itself. Unprivileged mode uses UDP ping
// sockets, which the kernel must allow through net.ipv4.ping_group_range.
type ICMPPinger struct {
	Privileged bool
}

func (p *ICMPPinger) Ping(ctx context.Context, host string, timeout time.Duration) PingResult {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return PingResult{}
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(p.Privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		return PingResult{}
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return PingResult{}
	}
	return PingResult{OK: true, RTT: stats.AvgRtt}
}

// LimitedPinger caps the number of pings in flight across every office.
type LimitedPinger struct {
	next Pinger
	sem  *semaphore.Weighted
}

func NewLimitedPinger(next Pinger, concurrency int) *LimitedPinger {
	return &LimitedPinger{next: next, sem: semaphore.NewWeighted(int64(max(concurrency, 1)))}
}

func (p *LimitedPinger) Ping(ctx context.Context, host string, timeout time.Duration) PingResult {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return PingResult{}
	}
	defer p.sem.Release(1)
	return p.next.Ping(ctx, host, timeout)
}

// NewSystemPinger prefers fping from PATH and falls back to in-process
// ICMP.
func NewSystemPinger(privileged bool, log *logger.Logger) Pinger {
	if path, err := exec.LookPath("fping"); err == nil {
		log.Info("Using fping at %s", path)
		return &FpingPinger{path: path}
	}
	log.Warn("fping not found on PATH, using built-in ICMP (privileged=%t)", privileged)
	return &ICMPPinger{Privileged: privileged}
}
