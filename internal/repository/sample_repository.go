package repository

import (
	"OfficeSLAMonitor/internal/models"
	"context"
	"database/sql"
	"fmt"
)

const MaxSamplePoints = 500

type SampleRepository struct {
	db *sql.DB
}

func NewSampleRepository(db *sql.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

// InsertBatch stores a tick in one transaction. If any office is unknown
// nothing is written.
func (r *SampleRepository) InsertBatch(ctx context.Context, samples []models.TickSample) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (
			office_id, ts, gateway, mx, ipsec,
			gateway_rtt_ms, mx_rtt_ms, tunnel_rtt_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	ids := make(map[string]int64)
	for _, s := range samples {
		id, ok := ids[s.Office]
		if !ok {
			id, err = officeID(ctx, tx, s.Office)
			if err != nil {
				return 0, err
			}
			ids[s.Office] = id
		}

		if _, err := stmt.ExecContext(
			ctx,
			id,
			s.TS,
			s.Gateway,
			s.MX,
			s.IPsec,
			nullFloat(s.GatewayRTTMs),
			nullFloat(s.MXRTTMs),
			nullFloat(s.TunnelRTTMs),
		); err != nil {
			return 0, fmt.Errorf("failed to insert sample for %s: %w", s.Office, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit samples: %w", err)
	}

	return len(samples), nil
}

// LatestAt returns, per office name, the most recent sample at or before ts.
func (r *SampleRepository) LatestAt(ctx context.Context, office string, ts int64) (map[string]models.StoredSample, error) {
	query := `
		SELECT DISTINCT ON (s.office_id)
		       o.name, s.ts, s.gateway, s.mx, s.ipsec,
		       s.gateway_rtt_ms, s.mx_rtt_ms, s.tunnel_rtt_ms
		FROM samples s
		JOIN offices o ON o.id = s.office_id
		WHERE s.ts <= $1::bigint
		  AND ($2::text = '' OR o.name = $2::text)
		ORDER BY s.office_id, s.ts DESC, s.id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ts, office)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest samples: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]models.StoredSample)
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		latest[s.Office] = s
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating latest samples: %w", err)
	}

	return latest, nil
}

// List returns up to limit of the newest samples inside w, oldest first.
// An empty office selects every office.
func (r *SampleRepository) List(ctx context.Context, office string, w models.Window, limit int) ([]models.StoredSample, error) {
	if limit <= 0 || limit > MaxSamplePoints {
		limit = MaxSamplePoints
	}

	query := `
		SELECT name, ts, gateway, mx, ipsec, gateway_rtt_ms, mx_rtt_ms, tunnel_rtt_ms
		FROM (
			SELECT s.id, o.name, s.ts, s.gateway, s.mx, s.ipsec,
			       s.gateway_rtt_ms, s.mx_rtt_ms, s.tunnel_rtt_ms
			FROM samples s
			JOIN offices o ON o.id = s.office_id
			WHERE s.ts >= $1::bigint AND s.ts <= $2::bigint
			  AND ($3::text = '' OR o.name = $3::text)
			ORDER BY s.ts DESC, s.id DESC
			LIMIT $4
		) recent
		ORDER BY ts ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, w.TStart, w.TEnd, office, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	samples := []models.StoredSample{}
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating samples: %w", err)
	}

	return samples, nil
}

func scanSample(rows *sql.Rows) (models.StoredSample, error) {
	var s models.StoredSample
	var gw, mx, tun sql.NullFloat64
	if err := rows.Scan(
		&s.Office,
		&s.TS,
		&s.Gateway,
		&s.MX,
		&s.IPsec,
		&gw,
		&mx,
		&tun,
	); err != nil {
		return s, fmt.Errorf("failed to scan sample: %w", err)
	}
	s.GatewayRTTMs = floatPtr(gw)
	s.MXRTTMs = floatPtr(mx)
	s.TunnelRTTMs = floatPtr(tun)
	return s, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
