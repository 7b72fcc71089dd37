package monitor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReconciler struct {
	mu   sync.Mutex
	cfgs []*OfficesFile
}

func (r *recordingReconciler) Reconcile(_ context.Context, cfg *OfficesFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfgs = append(r.cfgs, cfg)
	return nil
}

func (r *recordingReconciler) last() *OfficesFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cfgs) == 0 {
		return nil
	}
	return r.cfgs[len(r.cfgs)-1]
}

func TestWatcherReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleOffices), 0o644))

	rec := &recordingReconciler{}
	w := NewWatcher(path, rec, nil, quietLogger())

	require.NoError(t, w.Reload(context.Background()))
	require.NotNil(t, rec.last())
	assert.Len(t, rec.last().Offices, 2)

	require.NoError(t, os.WriteFile(path, []byte("offices: [broken"), 0o644))
	assert.Error(t, w.Reload(context.Background()))
	assert.Len(t, rec.cfgs, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(w.metrics.ConfigReloadTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(w.metrics.ConfigReloadTotal.WithLabelValues("ok")))
}

func TestWatcherPicksUpWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "offices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	rec := &recordingReconciler{}
	w := NewWatcher(path, rec, nil, quietLogger())
	w.delay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// unrelated files in the same directory are ignored
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644)
		_ = os.WriteFile(path, []byte(sampleOffices), 0o644)
		cfg := rec.last()
		return cfg != nil && len(cfg.Offices) == 2
	}, 2*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
