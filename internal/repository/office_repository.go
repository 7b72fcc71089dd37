package repository

import (
	"OfficeSLAMonitor/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type OfficeRepository struct {
	db *sql.DB
}

func NewOfficeRepository(db *sql.DB) *OfficeRepository {
	return &OfficeRepository{db: db}
}

// Upsert inserts the office or updates its probe targets and thresholds,
// returning the office id in both cases.
func (r *OfficeRepository) Upsert(ctx context.Context, req models.UpsertOfficeRequest) (int64, error) {
	query := `
		INSERT INTO offices (name, gateway_ip, mx_ip, tunnel_probe_ip, retries_down, retries_up)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			gateway_ip      = EXCLUDED.gateway_ip,
			mx_ip           = EXCLUDED.mx_ip,
			tunnel_probe_ip = EXCLUDED.tunnel_probe_ip,
			retries_down    = EXCLUDED.retries_down,
			retries_up      = EXCLUDED.retries_up,
			updated_at      = NOW()
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(
		ctx, query,
		req.Name,
		req.GatewayIP,
		req.MXIP,
		req.TunnelProbeIP,
		req.RetriesDown,
		req.RetriesUp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert office %s: %w", req.Name, err)
	}

	return id, nil
}

func (r *OfficeRepository) GetByName(ctx context.Context, name string) (*models.Office, error) {
	query := `
		SELECT id, name, gateway_ip, mx_ip, tunnel_probe_ip,
		       retries_down, retries_up, created_at, updated_at
		FROM offices
		WHERE name = $1
	`

	var o models.Office
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&o.ID,
		&o.Name,
		&o.GatewayIP,
		&o.MXIP,
		&o.TunnelProbeIP,
		&o.RetriesDown,
		&o.RetriesUp,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &UnknownOfficeError{Name: name}
		}
		return nil, fmt.Errorf("failed to scan office: %w", err)
	}

	return &o, nil
}

func (r *OfficeRepository) List(ctx context.Context) ([]models.Office, error) {
	query := `
		SELECT id, name, gateway_ip, mx_ip, tunnel_probe_ip,
		       retries_down, retries_up, created_at, updated_at
		FROM offices
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query offices: %w", err)
	}
	defer rows.Close()

	offices := []models.Office{}
	for rows.Next() {
		var o models.Office
		if err := rows.Scan(
			&o.ID,
			&o.Name,
			&o.GatewayIP,
			&o.MXIP,
			&o.TunnelProbeIP,
			&o.RetriesDown,
			&o.RetriesUp,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan office: %w", err)
		}
		offices = append(offices, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offices: %w", err)
	}

	return offices, nil
}

func (r *OfficeRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offices`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count offices: %w", err)
	}
	return n, nil
}
