package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"kiln_controller/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type StateRepo interface {
	Save(ctx context.Context, s models.OvenState) error
	Load(ctx context.Context) (models.OvenState, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.OvenEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.OvenEvent, error)
}

type ProfileRepo interface {
	Save(ctx context.Context, p models.Profile) error
	Get(ctx context.Context, name string) (models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	Delete(ctx context.Context, name string) error
}

type Repository struct {
	StateRepo   StateRepo
	EventRepo   EventRepo
	ProfileRepo ProfileRepo
	Auth        Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo:   NewStateSQLite(db),
		EventRepo:   NewEventSQLite(db),
		ProfileRepo: NewProfileSQLite(db),
		Auth:        NewUserRepository(db),
	}
}
