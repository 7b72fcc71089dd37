package service

import (
	"context"

	"OfficeSLAMonitor/internal/models"
)

type OfficeStore interface {
	Upsert(ctx context.Context, req models.UpsertOfficeRequest) (int64, error)
	List(ctx context.Context) ([]models.Office, error)
	GetByName(ctx context.Context, name string) (*models.Office, error)
}

type StateChangeStore interface {
	Insert(ctx context.Context, ev models.StateChangeEvent) (int64, error)
	ListForWindow(ctx context.Context, office string, w models.Window) ([]models.StateChange, error)
	LatestAt(ctx context.Context, office string, ts int64) (map[string]models.StateChange, error)
}

type SampleStore interface {
	InsertBatch(ctx context.Context, samples []models.TickSample) (int, error)
	LatestAt(ctx context.Context, office string, ts int64) (map[string]models.StoredSample, error)
	List(ctx context.Context, office string, w models.Window, limit int) ([]models.StoredSample, error)
}

// Broadcaster pushes events to live subscribers.
type Broadcaster interface {
	Broadcast(messageType string, payload interface{})
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, interface{}) {}
