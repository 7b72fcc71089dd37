package repository

import (
	"OfficeSLAMonitor/internal/models"
	"context"
	"database/sql"
	"fmt"
)

type StateChangeRepository struct {
	db *sql.DB
}

func NewStateChangeRepository(db *sql.DB) *StateChangeRepository {
	return &StateChangeRepository{db: db}
}

// Insert records a transition. from_state is taken from the latest earlier
// change of the same office. A second event at the same (office, at) is
// ignored and reports 0 rows inserted.
func (r *StateChangeRepository) Insert(ctx context.Context, ev models.StateChangeEvent) (int64, error) {
	id, err := officeID(ctx, r.db, ev.Office)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO state_changes (
			office_id, at_ts, from_state, to_state,
			sample_gateway, sample_mx, sample_ipsec
		)
		SELECT $1::bigint, $2::bigint, COALESCE((
			SELECT to_state FROM state_changes
			WHERE office_id = $1::bigint AND at_ts < $2::bigint
			ORDER BY at_ts DESC
			LIMIT 1
		), 'unknown'), $3::text, $4::boolean, $5::boolean, $6::boolean
		ON CONFLICT (office_id, at_ts) DO NOTHING
	`

	result, err := r.db.ExecContext(
		ctx, query,
		id,
		ev.At,
		string(ev.State),
		ev.Sample.Gateway,
		ev.Sample.MX,
		ev.Sample.IPsec,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert state change: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted rows: %w", err)
	}

	return inserted, nil
}

// ListForWindow returns every change that contributes a span to w: the last
// change at or before t_start plus all later changes before t_end, ordered by
// office name then time.
func (r *StateChangeRepository) ListForWindow(ctx context.Context, office string, w models.Window) ([]models.StateChange, error) {
	query := `
		SELECT o.name, s.office_id, s.at_ts, s.from_state, s.to_state,
		       s.sample_gateway, s.sample_mx, s.sample_ipsec
		FROM state_changes s
		JOIN offices o ON o.id = s.office_id
		WHERE s.at_ts < $2::bigint
		  AND s.at_ts >= COALESCE((
			SELECT MAX(p.at_ts) FROM state_changes p
			WHERE p.office_id = s.office_id AND p.at_ts <= $1::bigint
		  ), $1::bigint)
		  AND ($3::text = '' OR o.name = $3::text)
		ORDER BY o.name, s.at_ts
	`

	rows, err := r.db.QueryContext(ctx, query, w.TStart, w.TEnd, office)
	if err != nil {
		return nil, fmt.Errorf("failed to query state changes: %w", err)
	}
	defer rows.Close()

	changes := []models.StateChange{}
	for rows.Next() {
		var c models.StateChange
		if err := scanStateChange(rows, &c); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating state changes: %w", err)
	}

	return changes, nil
}

// LatestAt returns, per office name, the most recent change at or before ts.
func (r *StateChangeRepository) LatestAt(ctx context.Context, office string, ts int64) (map[string]models.StateChange, error) {
	query := `
		SELECT DISTINCT ON (s.office_id)
		       o.name, s.office_id, s.at_ts, s.from_state, s.to_state,
		       s.sample_gateway, s.sample_mx, s.sample_ipsec
		FROM state_changes s
		JOIN offices o ON o.id = s.office_id
		WHERE s.at_ts <= $1::bigint
		  AND ($2::text = '' OR o.name = $2::text)
		ORDER BY s.office_id, s.at_ts DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ts, office)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest state changes: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]models.StateChange)
	for rows.Next() {
		var c models.StateChange
		if err := scanStateChange(rows, &c); err != nil {
			return nil, err
		}
		latest[c.Office] = c
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating latest state changes: %w", err)
	}

	return latest, nil
}

func scanStateChange(rows *sql.Rows, c *models.StateChange) error {
	var from, to string
	if err := rows.Scan(
		&c.Office,
		&c.OfficeID,
		&c.AtTS,
		&from,
		&to,
		&c.SampleGateway,
		&c.SampleMX,
		&c.SampleIPsec,
	); err != nil {
		return fmt.Errorf("failed to scan state change: %w", err)
	}
	c.FromState = models.State(from)
	c.ToState = models.State(to)
	return nil
}
