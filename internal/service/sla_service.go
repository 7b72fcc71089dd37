// internal/service/sla_service.go

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/metrics"
	"OfficeSLAMonitor/internal/models"
)

const DefaultWindowSeconds int64 = 86400

var ErrInvalidWindow = errors.New("invalid window")

type SLAService struct {
	changes StateChangeStore
	samples SampleStore
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewSLAService(changes StateChangeStore, samples SampleStore, m *metrics.Metrics, log *logger.Logger) *SLAService {
	if m == nil {
		m = metrics.NewWithRegisterer(nil)
	}
	return &SLAService{
		changes: changes,
		samples: samples,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// ResolveWindow applies the defaults: t_end is now and t_start is one day
// before t_end. Zero means "not given".
func (s *SLAService) ResolveWindow(tStart, tEnd int64) (models.Window, error) {
	if tEnd == 0 {
		tEnd = s.now().Unix()
	}
	if tStart == 0 {
		tStart = tEnd - DefaultWindowSeconds
	}
	if tStart > tEnd {
		return models.Window{}, fmt.Errorf("%w: t_start %d is after t_end %d", ErrInvalidWindow, tStart, tEnd)
	}
	return models.Window{TStart: tStart, TEnd: tEnd}, nil
}

func (s *SLAService) Query(ctx context.Context, q models.SlaQuery) (*models.SlaResponse, error) {
	start := time.Now()
	defer func() { s.metrics.SLAQueryDuration.Observe(time.Since(start).Seconds()) }()

	changes, err := s.changes.ListForWindow(ctx, q.Office, q.Window)
	if err != nil {
		return nil, err
	}
	latest, err := s.changes.LatestAt(ctx, q.Office, q.Window.TEnd)
	if err != nil {
		return nil, err
	}
	samples, err := s.samples.LatestAt(ctx, q.Office, q.Window.TEnd)
	if err != nil {
		return nil, err
	}

	rows := ComputeSLA(q.Window, changes, latest, samples)
	s.log.Debug("SLA query office=%q window=%d..%d rows=%d", q.Office, q.Window.TStart, q.Window.TEnd, len(rows))

	return &models.SlaResponse{Window: q.Window, SLA: rows}, nil
}

func (s *SLAService) Samples(ctx context.Context, office string, w models.Window) (*models.SamplesResponse, error) {
	samples, err := s.samples.List(ctx, office, w, 0)
	if err != nil {
		return nil, err
	}
	return &models.SamplesResponse{Window: w, Office: office, Samples: samples}, nil
}

// ComputeSLA turns ordered state changes into per-office rows. Each change
// holds until the next change of the same office or until t_end; spans are
// clipped to the window. An office appears only if at least one span
// overlaps the window. changes must be sorted by office, then time.
func ComputeSLA(
	w models.Window,
	changes []models.StateChange,
	latest map[string]models.StateChange,
	samples map[string]models.StoredSample,
) []models.SlaRow {
	rows := []models.SlaRow{}
	total := w.TEnd - w.TStart

	for i := 0; i < len(changes); {
		j := i
		for j < len(changes) && changes[j].Office == changes[i].Office {
			j++
		}

		row, ok := officeSpans(w, changes[i:j])
		i = j
		if !ok {
			continue
		}
		row.SecTotal = total

		denom := float64(total)
		if denom < 1 {
			denom = 1
		}
		row.UptimeStrict = round6(float64(row.SecUp) / denom)
		row.UptimeLenient = round6(float64(row.SecUp+row.SecDeg) / denom)

		if c, ok := latest[row.Office]; ok {
			cur, prev, at := c.ToState, c.FromState, c.AtTS
			row.CurrentState = &cur
			row.PreviousState = &prev
			row.CurrentAt = &at
		}
		if smp, ok := samples[row.Office]; ok {
			gw, mx, ipsec, ts := smp.Gateway, smp.MX, smp.IPsec, smp.TS
			row.LatestGateway = &gw
			row.LatestMX = &mx
			row.LatestIPsec = &ipsec
			row.LatestSampleTS = &ts
		}

		rows = append(rows, row)
	}

	return rows
}

func officeSpans(w models.Window, changes []models.StateChange) (models.SlaRow, bool) {
	row := models.SlaRow{Office: changes[0].Office}
	overlaps := false

	for k, c := range changes {
		if c.AtTS >= w.TEnd {
			break
		}
		next := w.TEnd
		if k+1 < len(changes) && changes[k+1].AtTS < w.TEnd {
			next = changes[k+1].AtTS
		}
		if next <= w.TStart {
			continue
		}

		segStart := max(c.AtTS, w.TStart)
		segEnd := min(next, w.TEnd)
		overlaps = true

		switch c.ToState {
		case models.StateUp:
			row.SecUp += segEnd - segStart
		case models.StateDegraded:
			row.SecDeg += segEnd - segStart
		case models.StateDown:
			row.SecDown += segEnd - segStart
		}
	}

	return row, overlaps
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
