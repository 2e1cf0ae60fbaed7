package service

import (
	"context"
	"testing"
	"time"

	"kiln_controller/internal/models"
	"kiln_controller/internal/oven"
)

func TestMonitoringService_GetState_Live(t *testing.T) {
	fo := &fakeOven{snap: oven.Snapshot{
		Runtime:     120,
		Temperature: 250.5,
		Target:      260,
		State:       oven.Running,
		HeatDuty:    0.4,
		TotalTime:   600,
		Profile:     "bisque",
	}}
	svc := NewMonitoringService(fo, &fakeStateRepo{})
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))
	svc.now = func() time.Time { return at }

	got, err := svc.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState returned error: %v", err)
	}
	want := models.OvenState{
		State:       "RUNNING",
		Profile:     "bisque",
		Temperature: 250.5,
		Target:      260,
		HeatDuty:    0.4,
		Runtime:     120,
		TotalTime:   600,
		TimeLeft:    480,
		UpdatedAt:   at.UTC(),
	}
	if got != want {
		t.Fatalf("state mismatch:\n got  %+v\n want %+v", got, want)
	}
	if got.UpdatedAt.Location() != time.UTC {
		t.Fatalf("updated_at must be UTC, got %v", got.UpdatedAt.Location())
	}
}

func TestMonitoringService_GetState_Idle(t *testing.T) {
	svc := NewMonitoringService(&fakeOven{snap: oven.Snapshot{Temperature: 21}}, &fakeStateRepo{})

	got, err := svc.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState returned error: %v", err)
	}
	if got.State != "IDLE" || got.Profile != "" || got.TimeLeft != 0 {
		t.Fatalf("unexpected idle state: %+v", got)
	}
	if got.Temperature != 21 {
		t.Fatalf("temperature = %v, want 21", got.Temperature)
	}
}

func TestMonitoringService_LastRecorded(t *testing.T) {
	stored := models.OvenState{State: "RUNNING", Profile: "glaze", Runtime: 30}
	svc := NewMonitoringService(&fakeOven{}, &fakeStateRepo{loaded: stored})

	got, err := svc.LastRecorded(context.Background())
	if err != nil {
		t.Fatalf("LastRecorded returned error: %v", err)
	}
	if got != stored {
		t.Fatalf("got %+v, want %+v", got, stored)
	}
}
