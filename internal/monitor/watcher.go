package monitor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

// Reconciler applies a freshly loaded offices file.
type Reconciler interface {
	Reconcile(ctx context.Context, cfg *OfficesFile) error
}

// Watcher reloads the offices file when it changes on disk. The directory
// is watched rather than the file so editors that replace the file by
// rename are still seen.
type Watcher struct {
	path    string
	target  Reconciler
	delay   time.Duration
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewWatcher(path string, target Reconciler, m *metrics.Metrics, log *logger.Logger) *Watcher {
	if m == nil {
		m = metrics.NewWithRegisterer(nil)
	}
	return &Watcher{
		path:    path,
		target:  target,
		delay:   100 * time.Millisecond,
		metrics: m,
		log:     log,
	}
}

func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	base := filepath.Base(w.path)
	w.log.Info("Watching %s for changes", w.path)

	// Writes arrive in bursts; reload once they settle.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				timer.Reset(w.delay)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("File watcher error: %v", err)

		case <-timer.C:
			_ = w.Reload(ctx)
		}
	}
}

// Reload loads the file and reconciles. A file that fails to parse leaves
// the running offices untouched.
func (w *Watcher) Reload(ctx context.Context) error {
	cfg, err := LoadOffices(w.path)
	if err != nil {
		w.metrics.ConfigReloadTotal.WithLabelValues("error").Inc()
		w.log.Error("Ignoring offices file change: %v", err)
		return err
	}

	w.metrics.ConfigReloadTotal.WithLabelValues("ok").Inc()
	w.log.Info("Reloaded %s (%d offices)", w.path, len(cfg.Offices))

	if err := w.target.Reconcile(ctx, cfg); err != nil {
		w.log.Warn("Some offices could not be registered: %v", err)
	}
	return nil
}
