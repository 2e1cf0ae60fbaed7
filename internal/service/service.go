package service

import (
	"context"
	"errors"
	"time"

	"kiln_controller/internal/logger"
	"kiln_controller/internal/models"
	"kiln_controller/internal/oven"
	"kiln_controller/internal/profile"
	"kiln_controller/internal/repository"
)

var ErrNotRunning = errors.New("no profile is running")

// Oven is the part of the controller the services drive.
type Oven interface {
	RunProfile(p *profile.Profile, startAtMinutes float64) error
	Abort() bool
	Snapshot() oven.Snapshot
}

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Kiln starts and aborts firings.
type Kiln interface {
	RunProfile(ctx context.Context, name string, startAtMinutes float64) error
	Abort(ctx context.Context) error
}

// Monitoring exposes the oven state.
type Monitoring interface {
	GetState(ctx context.Context) (models.OvenState, error)
	LastRecorded(ctx context.Context) (models.OvenState, error)
}

// EventLog exposes the append-only oven log with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.OvenEvent, error)
}

// Profiles manages stored firing schedules.
type Profiles interface {
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	GetProfile(ctx context.Context, name string) (models.Profile, error)
	SaveProfile(ctx context.Context, p models.Profile) error
	DeleteProfile(ctx context.Context, name string) error
	Import(ctx context.Context, ps []*profile.Profile) (int, error)
}

// Service aggregates the application services.
type Service struct {
	Kiln
	Monitoring
	EventLog
	Profiles
	Authorization
}

type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

func NewService(repos *repository.Repository, ov Oven, auth AuthConfig, log *logger.Logger) *Service {
	return &Service{
		Kiln:          NewKilnService(ov, repos.ProfileRepo, log),
		Monitoring:    NewMonitoringService(ov, repos.StateRepo),
		EventLog:      NewEventLogService(repos.EventRepo),
		Profiles:      NewProfileService(repos.ProfileRepo),
		Authorization: NewAuthService(repos.Auth, auth, log),
	}
}

// LogFilter selects events by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "START", "ABORT", "COMPLETE", "EMERGENCY"
}
