package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"kiln_controller/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	ovenStateRowID = 1

	upsertStateSQL = `
		INSERT INTO oven_state (id, state, profile, temperature, target, heat_duty, runtime_s, total_s, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state=excluded.state,
			profile=excluded.profile,
			temperature=excluded.temperature,
			target=excluded.target,
			heat_duty=excluded.heat_duty,
			runtime_s=excluded.runtime_s,
			total_s=excluded.total_s,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT id, state, profile, temperature, target, heat_duty, runtime_s, total_s, updated_at
		FROM oven_state WHERE id=?
	`
)

// Save writes the single oven_state row. UpdatedAt is stored in UTC and
// defaults to now.
func (r *StateSQLite) Save(ctx context.Context, s models.OvenState) error {
	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	var profile sql.NullString
	if s.Profile != "" {
		profile = sql.NullString{String: s.Profile, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, upsertStateSQL,
		ovenStateRowID,
		s.State,
		profile,
		s.Temperature,
		s.Target,
		s.HeatDuty,
		s.Runtime,
		s.TotalTime,
		ts,
	)
	return err
}

// Load returns the persisted state, or the zero value when nothing was
// saved yet.
func (r *StateSQLite) Load(ctx context.Context) (models.OvenState, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, ovenStateRowID)

	var (
		s       models.OvenState
		profile sql.NullString
	)
	if err := row.Scan(
		&s.ID,
		&s.State,
		&profile,
		&s.Temperature,
		&s.Target,
		&s.HeatDuty,
		&s.Runtime,
		&s.TotalTime,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.OvenState{}, nil
		}
		return models.OvenState{}, err
	}
	s.Profile = profile.String
	if left := s.TotalTime - s.Runtime; left > 0 {
		s.TimeLeft = left
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
