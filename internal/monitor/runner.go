package monitor

import (
	"context"
	"time"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/models"

	"golang.org/x/sync/errgroup"
)

const EventOneshot = "oneshot"

// Runner drives the periodic tick broadcast and the config watcher next to
// the manager's probe loops.
type Runner struct {
	Manager   *Manager
	Sink      Sink
	Watcher   *Watcher
	Broadcast time.Duration
	// Iterations stops the runner after that many broadcast periods; zero
	// runs until ctx is cancelled.
	Iterations int
	Log        *logger.Logger
}

func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if r.Watcher != nil {
		g.Go(func() error { return r.Watcher.Run(gctx) })
	}
	g.Go(func() error {
		defer cancel()
		r.tickLoop(gctx)
		return nil
	})
	return g.Wait()
}

func (r *Runner) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(r.Broadcast)
	defer ticker.Stop()

	r.Tick(ctx)
	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if r.Iterations > 0 && n >= r.Iterations {
			r.Log.Info("Completed %d iterations", r.Iterations)
			return
		}
		r.Tick(ctx)
	}
}

// Tick prints the current status of every probed office and forwards it
// to the sink.
func (r *Runner) Tick(ctx context.Context) {
	status := r.Manager.Snapshot()
	r.Log.Event(models.EventTick, map[string]interface{}{"status": status})
	if len(status) == 0 {
		return
	}
	if err := r.Sink.Tick(ctx, status); err != nil {
		r.Log.Error("Failed to send tick: %v", err)
	}
}

// Oneshot probes every office once, without debouncing, and returns the
// instant states in config order.
func Oneshot(ctx context.Context, p Pinger, cfg *OfficesFile, timeout time.Duration, now time.Time) []models.TickSample {
	out := make([]models.TickSample, len(cfg.Offices))

	var g errgroup.Group
	for i, spec := range cfg.Offices {
		g.Go(func() error {
			s := ProbeOffice(ctx, p, spec, timeout, now)
			out[i] = models.TickSample{
				Office: spec.Name,
				State:  InstantState(s.Gateway, s.MX, s.IPsec),
				Sample: s,
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
