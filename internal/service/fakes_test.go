package service

import (
	"context"
	"sort"
	"sync"

	"OfficeSLAMonitor/internal/models"
	"OfficeSLAMonitor/internal/repository"
)

// memoryStore keeps offices, changes and samples in memory with the same
// semantics as the Postgres repositories.
type memoryStore struct {
	mu      sync.Mutex
	offices map[string]models.UpsertOfficeRequest
	ids     map[string]int64
	changes []models.StateChange
	samples []models.StoredSample
}

func newMemoryStore(names ...string) *memoryStore {
	m := &memoryStore{
		offices: map[string]models.UpsertOfficeRequest{},
		ids:     map[string]int64{},
	}
	for _, n := range names {
		_, _ = m.Upsert(context.Background(), models.UpsertOfficeRequest{Name: n})
	}
	return m
}

func (m *memoryStore) Upsert(_ context.Context, req models.UpsertOfficeRequest) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[req.Name]; !ok {
		m.ids[req.Name] = int64(len(m.ids) + 1)
	}
	m.offices[req.Name] = req
	return m.ids[req.Name], nil
}

func (m *memoryStore) List(context.Context) ([]models.Office, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Office{}
	for name, req := range m.offices {
		out = append(out, models.Office{ID: m.ids[name], Name: name, GatewayIP: req.GatewayIP})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) GetByName(_ context.Context, name string) (*models.Office, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.offices[name]
	if !ok {
		return nil, &repository.UnknownOfficeError{Name: name}
	}
	return &models.Office{ID: m.ids[name], Name: name, GatewayIP: req.GatewayIP}, nil
}

func (m *memoryStore) Insert(_ context.Context, ev models.StateChangeEvent) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.ids[ev.Office]
	if !ok {
		return 0, &repository.UnknownOfficeError{Name: ev.Office}
	}
	from := models.StateUnknown
	var fromAt int64 = -1 << 62
	for _, c := range m.changes {
		if c.Office != ev.Office {
			continue
		}
		if c.AtTS == ev.At {
			return 0, nil
		}
		if c.AtTS < ev.At && c.AtTS > fromAt {
			from, fromAt = c.ToState, c.AtTS
		}
	}
	m.changes = append(m.changes, models.StateChange{
		OfficeID: id, Office: ev.Office, AtTS: ev.At,
		FromState: from, ToState: ev.State,
		SampleGateway: ev.Sample.Gateway, SampleMX: ev.Sample.MX, SampleIPsec: ev.Sample.IPsec,
	})
	return 1, nil
}

func (m *memoryStore) sortedChanges() []models.StateChange {
	out := append([]models.StateChange(nil), m.changes...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Office != out[j].Office {
			return out[i].Office < out[j].Office
		}
		return out[i].AtTS < out[j].AtTS
	})
	return out
}

func (m *memoryStore) ListForWindow(_ context.Context, office string, w models.Window) ([]models.StateChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.StateChange{}
	for _, c := range m.sortedChanges() {
		if office != "" && c.Office != office {
			continue
		}
		if c.AtTS < w.TEnd {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryStore) LatestAt(_ context.Context, office string, ts int64) (map[string]models.StateChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]models.StateChange{}
	for _, c := range m.sortedChanges() {
		if (office == "" || c.Office == office) && c.AtTS <= ts {
			out[c.Office] = c
		}
	}
	return out, nil
}

type memorySamples struct {
	store *memoryStore
}

func (s memorySamples) InsertBatch(_ context.Context, batch []models.TickSample) (int, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	for _, b := range batch {
		if _, ok := s.store.ids[b.Office]; !ok {
			return 0, &repository.UnknownOfficeError{Name: b.Office}
		}
	}
	for _, b := range batch {
		s.store.samples = append(s.store.samples, models.StoredSample{Office: b.Office, Sample: b.Sample})
	}
	return len(batch), nil
}

func (s memorySamples) LatestAt(_ context.Context, office string, ts int64) (map[string]models.StoredSample, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	out := map[string]models.StoredSample{}
	for _, smp := range s.store.samples {
		if (office == "" || smp.Office == office) && smp.TS <= ts {
			if cur, ok := out[smp.Office]; !ok || smp.TS >= cur.TS {
				out[smp.Office] = smp
			}
		}
	}
	return out, nil
}

func (s memorySamples) List(_ context.Context, office string, w models.Window, limit int) ([]models.StoredSample, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	out := []models.StoredSample{}
	for _, smp := range s.store.samples {
		if (office == "" || smp.Office == office) && smp.TS >= w.TStart && smp.TS <= w.TEnd {
			out = append(out, smp)
		}
	}
	return out, nil
}

type recordedEvent struct {
	Type    string
	Payload interface{}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) Broadcast(messageType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{messageType, payload})
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
