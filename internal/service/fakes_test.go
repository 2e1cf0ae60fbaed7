package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"kiln_controller/internal/models"
	"kiln_controller/internal/oven"
	"kiln_controller/internal/profile"
	"kiln_controller/internal/repository"
)

type fakeOven struct {
	mu       sync.Mutex
	snap     oven.Snapshot
	runErr   error
	running  bool
	started  *profile.Profile
	startAt  float64
	runCalls int
}

func (f *fakeOven) RunProfile(p *profile.Profile, startAtMinutes float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runCalls++
	if f.runErr != nil {
		return f.runErr
	}
	f.running = true
	f.started = p
	f.startAt = startAtMinutes
	f.snap.State = oven.Running
	f.snap.Profile = p.Name()
	f.snap.TotalTime = p.Duration()
	return nil
}

func (f *fakeOven) Abort() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	was := f.running
	f.running = false
	f.snap = oven.Snapshot{Temperature: f.snap.Temperature}
	return was
}

func (f *fakeOven) Snapshot() oven.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

type fakeProfileRepo struct {
	mu      sync.Mutex
	items   map[string]models.Profile
	saveErr error
}

func newFakeProfileRepo(ps ...models.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{items: map[string]models.Profile{}}
	for _, p := range ps {
		r.items[p.Name] = p
	}
	return r
}

func (r *fakeProfileRepo) Save(_ context.Context, p models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.items[p.Name] = p
	return nil
}

func (r *fakeProfileRepo) Get(_ context.Context, name string) (models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[name]
	if !ok {
		return models.Profile{}, fmt.Errorf("%w: %q", repository.ErrProfileNotFound, name)
	}
	return p, nil
}

func (r *fakeProfileRepo) List(_ context.Context) ([]models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Profile, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeProfileRepo) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[name]; !ok {
		return fmt.Errorf("%w: %q", repository.ErrProfileNotFound, name)
	}
	delete(r.items, name)
	return nil
}

type fakeEventRepo struct {
	mu sync.Mutex

	gotFrom time.Time
	gotTo   time.Time
	gotType string
	calls   int

	appended  []models.OvenEvent
	appendErr error
	events    []models.OvenEvent
	err       error
}

func (f *fakeEventRepo) Append(_ context.Context, e models.OvenEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, e)
	return f.appendErr
}

func (f *fakeEventRepo) List(_ context.Context, from, to time.Time, typ string) ([]models.OvenEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotFrom, f.gotTo, f.gotType = from, to, typ
	return f.events, f.err
}

func (f *fakeEventRepo) stored() []models.OvenEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OvenEvent(nil), f.appended...)
}

type fakeStateRepo struct {
	mu      sync.Mutex
	saved   []models.OvenState
	loaded  models.OvenState
	saveErr error
}

func (f *fakeStateRepo) Save(_ context.Context, s models.OvenState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, s)
	return f.saveErr
}

func (f *fakeStateRepo) Load(_ context.Context) (models.OvenState, error) {
	return f.loaded, nil
}

func (f *fakeStateRepo) saves() []models.OvenState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OvenState(nil), f.saved...)
}

var bisque = models.Profile{Name: "bisque", Data: [][]float64{{0, 20}, {1800, 300}, {3600, 600}}}
