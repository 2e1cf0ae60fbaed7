package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"kiln_controller/internal/logger"
	"kiln_controller/internal/models"
	"kiln_controller/internal/oven"
	"kiln_controller/internal/repository"
)

const recorderQueue = 64

// SnapshotSource is read by the recorder on every interval.
type SnapshotSource interface {
	Snapshot() oven.Snapshot
}

// Recorder persists oven events and periodic state snapshots. It is the
// oven's event sink: OvenEvent only queues, Run does the writes so the
// control loop never waits on the database.
type Recorder struct {
	events    repository.EventRepo
	state     repository.StateRepo
	clock     clockwork.Clock
	log       *logger.Logger
	queue     chan oven.Event
	listeners []oven.EventSink
}

func NewRecorder(events repository.EventRepo, state repository.StateRepo, clock clockwork.Clock, log *logger.Logger) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{
		events: events,
		state:  state,
		clock:  clock,
		log:    logger.OrNop(log),
		queue:  make(chan oven.Event, recorderQueue),
	}
}

// Notify registers sinks that get every event after it is stored. Call it
// before Run.
func (r *Recorder) Notify(sinks ...oven.EventSink) {
	r.listeners = append(r.listeners, sinks...)
}

// OvenEvent implements oven.EventSink. Events are dropped, with a warning,
// when the queue is full.
func (r *Recorder) OvenEvent(e oven.Event) {
	select {
	case r.queue <- e:
	default:
		r.log.Warnw("oven_event_dropped", "type", string(e.Kind), "profile", e.Profile)
	}
}

// Run stores queued events and saves src every interval until ctx is done.
// Pending events and a final snapshot are written on the way out.
func (r *Recorder) Run(ctx context.Context, src SnapshotSource, interval time.Duration) error {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.flush(src)
			return ctx.Err()
		case e := <-r.queue:
			r.store(ctx, e)
		case <-ticker.Chan():
			if err := r.SaveState(ctx, src); err != nil {
				r.log.Errorw("oven_state_save_failed", "err", err)
			}
		}
	}
}

// SaveState persists one snapshot of src.
func (r *Recorder) SaveState(ctx context.Context, src SnapshotSource) error {
	return r.state.Save(ctx, ToOvenState(src.Snapshot(), r.clock.Now()))
}

func (r *Recorder) flush(src SnapshotSource) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case e := <-r.queue:
			r.store(ctx, e)
		default:
			if err := r.SaveState(ctx, src); err != nil {
				r.log.Errorw("oven_state_save_failed", "err", err)
			}
			return
		}
	}
}

func (r *Recorder) store(ctx context.Context, e oven.Event) {
	if err := r.events.Append(ctx, toOvenEvent(e)); err != nil {
		r.log.Errorw("oven_event_store_failed", "type", string(e.Kind), "err", err)
	}
	for _, l := range r.listeners {
		l.OvenEvent(e)
	}
}

func toOvenEvent(e oven.Event) models.OvenEvent {
	return models.OvenEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  toUTC(e.At),
		Type:        string(e.Kind),
		Description: describe(e),
		Metadata: map[string]any{
			"profile":     e.Profile,
			"temperature": e.Temperature,
			"target":      e.Target,
			"runtime":     e.Runtime,
		},
	}
}

func describe(e oven.Event) string {
	switch e.Kind {
	case oven.EventStart:
		return fmt.Sprintf("profile %s started", e.Profile)
	case oven.EventAbort:
		return fmt.Sprintf("profile %s aborted at %.0fs", e.Profile, e.Runtime)
	case oven.EventComplete:
		return fmt.Sprintf("profile %s completed", e.Profile)
	case oven.EventEmergency:
		return fmt.Sprintf("emergency shutoff at %.1f degrees", e.Temperature)
	default:
		return string(e.Kind)
	}
}
