// internal/service/ingest_service.go

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/metrics"
	"OfficeSLAMonitor/internal/models"
)

var ErrInvalidEvent = errors.New("invalid event")

const (
	TransportHTTP = "http"
	TransportMQTT = "mqtt"
)

type IngestService struct {
	changes StateChangeStore
	samples SampleStore
	events  Broadcaster
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewIngestService(
	changes StateChangeStore,
	samples SampleStore,
	events Broadcaster,
	m *metrics.Metrics,
	log *logger.Logger,
) *IngestService {
	if events == nil {
		events = noopBroadcaster{}
	}
	if m == nil {
		m = metrics.NewWithRegisterer(nil)
	}
	return &IngestService{
		changes: changes,
		samples: samples,
		events:  events,
		metrics: m,
		log:     log,
	}
}

// RecordStateChange stores ev and, when a row was actually written,
// broadcasts it.
func (s *IngestService) RecordStateChange(ctx context.Context, transport string, ev models.StateChangeEvent) (int64, error) {
	if ev.Office == "" {
		return 0, s.reject("state_change", transport, fmt.Errorf("%w: office is required", ErrInvalidEvent))
	}
	if !ev.State.Known() {
		return 0, s.reject("state_change", transport, fmt.Errorf("%w: state %q must be up, degraded or down", ErrInvalidEvent, ev.State))
	}

	inserted, err := s.changes.Insert(ctx, ev)
	if err != nil {
		return 0, s.reject("state_change", transport, err)
	}
	s.metrics.IngestTotal.WithLabelValues("state_change", transport, "ok").Inc()

	if inserted == 0 {
		s.log.Debug("Duplicate state change ignored: %s at %d", ev.Office, ev.At)
		return 0, nil
	}

	s.metrics.StateChangesTotal.WithLabelValues(string(ev.State)).Inc()
	s.log.Info("State change stored: %s -> %s at %d", ev.Office, ev.State, ev.At)
	s.events.Broadcast(models.EventStateChange, models.Event{
		Type:      models.EventStateChange,
		Office:    ev.Office,
		Timestamp: time.Unix(ev.At, 0).UTC(),
		Data:      ev,
	})

	return inserted, nil
}

// RecordTick stores a batch of samples atomically.
func (s *IngestService) RecordTick(ctx context.Context, transport string, batch []models.TickSample) (int, error) {
	for i, sample := range batch {
		if sample.Office == "" {
			return 0, s.reject("tick", transport, fmt.Errorf("%w: sample %d has no office", ErrInvalidEvent, i))
		}
		if sample.State != "" && sample.State != models.StateUnknown && !sample.State.Known() {
			return 0, s.reject("tick", transport, fmt.Errorf("%w: sample %d has invalid state %q", ErrInvalidEvent, i, sample.State))
		}
	}
	if len(batch) == 0 {
		s.metrics.IngestTotal.WithLabelValues("tick", transport, "ok").Inc()
		return 0, nil
	}

	count, err := s.samples.InsertBatch(ctx, batch)
	if err != nil {
		return 0, s.reject("tick", transport, err)
	}

	s.metrics.IngestTotal.WithLabelValues("tick", transport, "ok").Inc()
	s.metrics.SamplesTotal.Add(float64(count))
	s.log.Debug("Tick stored: %d samples", count)
	s.events.Broadcast(models.EventTick, models.Event{
		Type:      models.EventTick,
		Timestamp: time.Now().UTC(),
		Data:      batch,
	})

	return count, nil
}

// HandleStateChangeMessage is the MQTT entry point for offices/state_change.
func (s *IngestService) HandleStateChangeMessage(ctx context.Context, payload []byte) error {
	var ev models.StateChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return s.reject("state_change", TransportMQTT, fmt.Errorf("%w: %v", ErrInvalidEvent, err))
	}
	_, err := s.RecordStateChange(ctx, TransportMQTT, ev)
	return err
}

// HandleTickMessage is the MQTT entry point for offices/tick.
func (s *IngestService) HandleTickMessage(ctx context.Context, payload []byte) error {
	var batch []models.TickSample
	if err := json.Unmarshal(payload, &batch); err != nil {
		return s.reject("tick", TransportMQTT, fmt.Errorf("%w: %v", ErrInvalidEvent, err))
	}
	_, err := s.RecordTick(ctx, TransportMQTT, batch)
	return err
}

func (s *IngestService) reject(kind, transport string, err error) error {
	s.metrics.IngestTotal.WithLabelValues(kind, transport, "error").Inc()
	s.log.Warn("Rejected %s via %s: %v", kind, transport, err)
	return err
}
