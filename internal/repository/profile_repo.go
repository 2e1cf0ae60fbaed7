package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kiln_controller/internal/models"
)

type ProfileSQLite struct {
	db *sql.DB
}

func NewProfileSQLite(db *sql.DB) *ProfileSQLite { return &ProfileSQLite{db: db} }

const (
	upsertProfileSQL = `
		INSERT INTO profiles (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at
	`
	selectProfileSQL  = `SELECT name, data, updated_at FROM profiles WHERE name = ?`
	selectProfilesSQL = `SELECT name, data, updated_at FROM profiles ORDER BY name ASC`
	deleteProfileSQL  = `DELETE FROM profiles WHERE name = ?`
)

// Save inserts or replaces the profile with the same name.
func (r *ProfileSQLite) Save(ctx context.Context, p models.Profile) error {
	data, err := json.Marshal(p.Data)
	if err != nil {
		return fmt.Errorf("marshal profile %q: %w", p.Name, err)
	}
	ts := p.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	if _, err := r.db.ExecContext(ctx, upsertProfileSQL, p.Name, string(data), ts.UTC()); err != nil {
		return fmt.Errorf("save profile %q: %w", p.Name, err)
	}
	return nil
}

func (r *ProfileSQLite) Get(ctx context.Context, name string) (models.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, selectProfileSQL, name))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	return p, err
}

func (r *ProfileSQLite) List(ctx context.Context) ([]models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, selectProfilesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Profile, 0, 8)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProfileSQLite) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, deleteProfileSQL, name)
	if err != nil {
		return fmt.Errorf("delete profile %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete profile %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(s scanner) (models.Profile, error) {
	var (
		p    models.Profile
		data string
	)
	if err := s.Scan(&p.Name, &data, &p.UpdatedAt); err != nil {
		return models.Profile{}, err
	}
	if err := json.Unmarshal([]byte(data), &p.Data); err != nil {
		return models.Profile{}, fmt.Errorf("decode profile %q: %w", p.Name, err)
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
