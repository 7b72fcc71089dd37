package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrOfficeNotFound = errors.New("office not found")

// UnknownOfficeError names the office an ingest referred to.
type UnknownOfficeError struct {
	Name string
}

func (e *UnknownOfficeError) Error() string {
	return fmt.Sprintf("Unknown office '%s'", e.Name)
}

func (e *UnknownOfficeError) Unwrap() error {
	return ErrOfficeNotFound
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func officeID(ctx context.Context, q querier, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM offices WHERE name = $1`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, &UnknownOfficeError{Name: name}
		}
		return 0, fmt.Errorf("failed to look up office %s: %w", name, err)
	}
	return id, nil
}
