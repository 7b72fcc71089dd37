package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.NewWriter(&bytes.Buffer{}, logger.DEBUG)
}

func change(office string, at int64, to models.State) models.StateChange {
	return models.StateChange{Office: office, AtTS: at, ToState: to}
}

func TestComputeSLAClipsSpansToWindow(t *testing.T) {
	w := models.Window{TStart: 10, TEnd: 150}
	changes := []models.StateChange{
		change("HQ", 0, models.StateDown),
		change("HQ", 30, models.StateDegraded),
		change("HQ", 90, models.StateUp),
	}

	rows := ComputeSLA(w, changes, nil, nil)

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "HQ", row.Office)
	assert.Equal(t, int64(20), row.SecDown)
	assert.Equal(t, int64(60), row.SecDeg)
	assert.Equal(t, int64(60), row.SecUp)
	assert.Equal(t, int64(140), row.SecTotal)
	assert.Equal(t, 0.428571, row.UptimeStrict)
	assert.Equal(t, 0.857143, row.UptimeLenient)
	assert.Nil(t, row.CurrentState)
	assert.Nil(t, row.LatestGateway)
}

func TestComputeSLAOmitsOfficesOutsideWindow(t *testing.T) {
	w := models.Window{TStart: 100, TEnd: 200}
	changes := []models.StateChange{
		change("A", 50, models.StateUp),
		change("B", 50, models.StateUp),
		change("B", 80, models.StateDown),
		change("B", 100, models.StateUp),
		change("C", 250, models.StateDown),
	}

	rows := ComputeSLA(w, changes, nil, nil)

	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Office)
	assert.Equal(t, int64(100), rows[0].SecUp)
	assert.Equal(t, 1.0, rows[0].UptimeStrict)

	// the change at 80 ends exactly at t_start and contributes nothing
	assert.Equal(t, "B", rows[1].Office)
	assert.Equal(t, int64(0), rows[1].SecDown)
	assert.Equal(t, int64(100), rows[1].SecUp)
}

func TestComputeSLAZeroLengthWindow(t *testing.T) {
	w := models.Window{TStart: 100, TEnd: 100}
	rows := ComputeSLA(w, []models.StateChange{change("A", 50, models.StateUp)}, nil, nil)
	assert.Empty(t, rows)
}

func TestComputeSLAUnknownStateCountsTowardsTotalOnly(t *testing.T) {
	w := models.Window{TStart: 0, TEnd: 100}
	rows := ComputeSLA(w, []models.StateChange{change("A", 0, models.StateUnknown)}, nil, nil)

	require.Len(t, rows, 1)
	assert.Equal(t, int64(0), rows[0].SecUp+rows[0].SecDeg+rows[0].SecDown)
	assert.Equal(t, int64(100), rows[0].SecTotal)
	assert.Equal(t, 0.0, rows[0].UptimeLenient)
}

func TestSLAQueryAddsCurrentAndLiveFields(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore("HQ", "Branch")
	for _, ev := range []models.StateChangeEvent{
		{Office: "HQ", State: models.StateDown, At: 0},
		{Office: "HQ", State: models.StateDegraded, At: 30},
		{Office: "HQ", State: models.StateUp, At: 90},
		{Office: "HQ", State: models.StateDown, At: 400},
	} {
		_, err := store.Insert(ctx, ev)
		require.NoError(t, err)
	}
	samples := memorySamples{store}
	_, err := samples.InsertBatch(ctx, []models.TickSample{
		{Office: "HQ", Sample: models.Sample{Gateway: true, MX: true, IPsec: false, TS: 140}},
		{Office: "HQ", Sample: models.Sample{Gateway: false, TS: 160}},
	})
	require.NoError(t, err)

	svc := NewSLAService(store, samples, nil, testLogger())
	resp, err := svc.Query(ctx, models.SlaQuery{Window: models.Window{TStart: 10, TEnd: 150}})
	require.NoError(t, err)

	assert.Equal(t, models.Window{TStart: 10, TEnd: 150}, resp.Window)
	require.Len(t, resp.SLA, 1)
	row := resp.SLA[0]
	require.NotNil(t, row.CurrentState)
	assert.Equal(t, models.StateUp, *row.CurrentState)
	assert.Equal(t, models.StateDegraded, *row.PreviousState)
	assert.Equal(t, int64(90), *row.CurrentAt)
	require.NotNil(t, row.LatestSampleTS)
	assert.Equal(t, int64(140), *row.LatestSampleTS)
	assert.True(t, *row.LatestGateway)
	assert.False(t, *row.LatestIPsec)

	resp, err = svc.Query(ctx, models.SlaQuery{Office: "Nowhere", Window: models.Window{TStart: 10, TEnd: 150}})
	require.NoError(t, err)
	assert.Empty(t, resp.SLA)
}

func TestResolveWindowDefaults(t *testing.T) {
	svc := NewSLAService(nil, nil, nil, testLogger())
	svc.now = func() time.Time { return time.Unix(1_000_000, 0) }

	w, err := svc.ResolveWindow(0, 0)
	require.NoError(t, err)
	assert.Equal(t, models.Window{TStart: 1_000_000 - 86400, TEnd: 1_000_000}, w)

	w, err = svc.ResolveWindow(0, 500_000)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000-86400), w.TStart)

	_, err = svc.ResolveWindow(200, 100)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}
