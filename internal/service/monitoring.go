package service

import (
	"context"
	"time"

	"kiln_controller/internal/models"
	"kiln_controller/internal/oven"
	"kiln_controller/internal/repository"
)

type MonitoringService struct {
	oven      Oven
	stateRepo repository.StateRepo
	now       func() time.Time
}

func NewMonitoringService(ov Oven, stateRepo repository.StateRepo) *MonitoringService {
	return &MonitoringService{oven: ov, stateRepo: stateRepo, now: time.Now}
}

// GetState returns the live oven state.
func (s *MonitoringService) GetState(_ context.Context) (models.OvenState, error) {
	return ToOvenState(s.oven.Snapshot(), s.now()), nil
}

// LastRecorded returns the state persisted by the recorder. The zero value
// means nothing was recorded yet.
func (s *MonitoringService) LastRecorded(ctx context.Context) (models.OvenState, error) {
	return s.stateRepo.Load(ctx)
}

// ToOvenState converts a snapshot taken at at into its API form.
func ToOvenState(snap oven.Snapshot, at time.Time) models.OvenState {
	return models.OvenState{
		State:       snap.State.String(),
		Profile:     snap.Profile,
		Temperature: snap.Temperature,
		Target:      snap.Target,
		HeatDuty:    snap.HeatDuty,
		Runtime:     snap.Runtime,
		TotalTime:   snap.TotalTime,
		TimeLeft:    snap.TimeLeft(),
		UpdatedAt:   toUTC(at),
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
