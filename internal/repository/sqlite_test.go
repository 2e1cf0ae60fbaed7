package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"kiln_controller/internal/models"
	"kiln_controller/internal/repository"
	"kiln_controller/internal/repository/db"
)

// Round trips through a real SQLite file.
func newSQLiteRepos(t *testing.T) *repository.Repository {
	t.Helper()
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "kiln.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return repository.NewRepository(conn)
}

func TestSQLite_StateRoundTrip(t *testing.T) {
	repos := newSQLiteRepos(t)
	ctx := context.Background()

	empty, err := repos.StateRepo.Load(ctx)
	if err != nil || empty.ID != 0 {
		t.Fatalf("expected empty state, got %+v, %v", empty, err)
	}

	at := time.Date(2025, 5, 5, 5, 5, 5, 0, time.UTC)
	for _, s := range []models.OvenState{
		{State: "RUNNING", Profile: "cone-6", Temperature: 640, Target: 650, HeatDuty: 0.8, Runtime: 100, TotalTime: 400, UpdatedAt: at},
		{State: "IDLE", Temperature: 630, UpdatedAt: at.Add(time.Minute)},
	} {
		if err := repos.StateRepo.Save(ctx, s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := repos.StateRepo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != 1 || got.State != "IDLE" || got.Profile != "" || got.Temperature != 630 {
		t.Fatalf("unexpected state %+v", got)
	}
	if !got.UpdatedAt.Equal(at.Add(time.Minute)) {
		t.Fatalf("updated_at = %v", got.UpdatedAt)
	}
}

func TestSQLite_EventsFilterByTimeAndType(t *testing.T) {
	repos := newSQLiteRepos(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, typ := range []string{"START", "EMERGENCY", "START", "COMPLETE"} {
		err := repos.EventRepo.Append(ctx, models.OvenEvent{
			OccurredAt:  base.Add(time.Duration(i) * time.Hour),
			Type:        typ,
			Description: typ,
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	all, err := repos.EventRepo.List(ctx, time.Time{}, time.Time{}, "")
	if err != nil || len(all) != 4 {
		t.Fatalf("List all: %d, %v", len(all), err)
	}
	if !all[3].OccurredAt.Equal(base.Add(3 * time.Hour)) {
		t.Fatalf("occurred_at = %v", all[3].OccurredAt)
	}

	starts, err := repos.EventRepo.List(ctx, base.Add(30*time.Minute), base.Add(3*time.Hour), "start")
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(starts) != 1 || !starts[0].OccurredAt.Equal(base.Add(2*time.Hour)) {
		t.Fatalf("unexpected filtered events %+v", starts)
	}
}

func TestSQLite_ProfilesCRUD(t *testing.T) {
	repos := newSQLiteRepos(t)
	ctx := context.Background()

	p := models.Profile{Name: "bisque", Data: [][]float64{{0, 20}, {3600, 600}}}
	if err := repos.ProfileRepo.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p.Data = append(p.Data, []float64{7200, 950})
	if err := repos.ProfileRepo.Save(ctx, p); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	got, err := repos.ProfileRepo.Get(ctx, "bisque")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Data) != 3 || got.Data[2][1] != 950 {
		t.Fatalf("unexpected profile %+v", got)
	}

	list, err := repos.ProfileRepo.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %d, %v", len(list), err)
	}

	if err := repos.ProfileRepo.Delete(ctx, "bisque"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repos.ProfileRepo.Get(ctx, "bisque"); !errors.Is(err, repository.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestSQLite_Users(t *testing.T) {
	repos := newSQLiteRepos(t)
	ctx := context.Background()

	id, err := repos.Auth.Create(ctx, "potter", "hash")
	if err != nil || id == 0 {
		t.Fatalf("Create: %d, %v", id, err)
	}
	if _, err := repos.Auth.Create(ctx, "potter", "other"); err == nil {
		t.Fatal("duplicate username accepted")
	}
	u, err := repos.Auth.GetByUsername(ctx, "potter")
	if err != nil || u == nil || u.ID != id {
		t.Fatalf("GetByUsername: %+v, %v", u, err)
	}
}
