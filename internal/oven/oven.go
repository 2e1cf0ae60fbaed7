// Package oven runs the kiln control loop: it tracks a firing profile with a
// PID controller and drives the heater with time-proportioned pulses.
package oven

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"kiln_controller/internal/logger"
	"kiln_controller/internal/pid"
	"kiln_controller/internal/profile"
)

var (
	ErrNoProfile      = errors.New("oven: no profile given")
	ErrAlreadyRunning = errors.New("oven: a profile is already running")
	ErrInvalidConfig  = errors.New("oven: invalid configuration")
	ErrInvalidStart   = errors.New("oven: start offset must not be negative")
)

// Config is read once at construction.
type Config struct {
	TimeStep             time.Duration `mapstructure:"time_step"`
	IdlePoll             time.Duration `mapstructure:"idle_poll"`
	EmergencyShutoffTemp float64       `mapstructure:"emergency_shutoff_temp"`
	ThermocoupleOffset   float64       `mapstructure:"thermocouple_offset"`
	// Simulate advances runtime by exactly one TimeStep per tick instead of
	// following the wall clock.
	Simulate bool `mapstructure:"simulate"`

	Gains pid.Gains `mapstructure:"-"`
}

func (c Config) Validate() error {
	if c.TimeStep <= 0 {
		return fmt.Errorf("%w: time step must be positive", ErrInvalidConfig)
	}
	if c.IdlePoll < 0 {
		return fmt.Errorf("%w: idle poll must not be negative", ErrInvalidConfig)
	}
	if c.EmergencyShutoffTemp <= 0 {
		return fmt.Errorf("%w: emergency shutoff temperature must be positive", ErrInvalidConfig)
	}
	if err := c.Gains.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// TemperatureSource is the read side of a sensor.
type TemperatureSource interface {
	Temperature() float64
}

// Heater is the actuator as seen by the control loop.
type Heater interface {
	SetDuty(d float64)
	Set(on bool) error
	Off() error
}

// Oven owns the session state and the PID controller. All methods are safe
// for concurrent use; only Run drives the heater on.
type Oven struct {
	cfg    Config
	sensor TemperatureSource
	heater Heater
	clock  clockwork.Clock
	log    *logger.Logger
	events EventSink

	mu          sync.RWMutex
	state       State
	profile     *profile.Profile
	pid         *pid.Controller
	startTime   time.Time
	startOffset float64
	runtime     float64
	totalTime   float64
	target      float64
	duty        float64
}

func New(cfg Config, sensor TemperatureSource, heater Heater, clock clockwork.Clock, log *logger.Logger, events EventSink) (*Oven, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sensor == nil || heater == nil {
		return nil, fmt.Errorf("%w: sensor and heater are required", ErrInvalidConfig)
	}
	if cfg.IdlePoll == 0 {
		cfg.IdlePoll = time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if events == nil {
		events = nopSink{}
	}
	o := &Oven{
		cfg:    cfg,
		sensor: sensor,
		heater: heater,
		clock:  clock,
		log:    logger.OrNop(log),
		events: events,
	}
	o.resetLocked()
	return o, nil
}

// RunProfile starts firing p, skipping the first startAtMinutes of it.
func (o *Oven) RunProfile(p *profile.Profile, startAtMinutes float64) error {
	if p == nil {
		return ErrNoProfile
	}
	if startAtMinutes < 0 {
		return fmt.Errorf("%w: %v minutes", ErrInvalidStart, startAtMinutes)
	}

	o.mu.Lock()
	if o.state == Running {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.state = Running
	o.profile = p
	o.pid = pid.New(o.cfg.Gains, o.clock)
	o.startTime = o.clock.Now()
	o.startOffset = startAtMinutes * 60
	o.runtime = o.startOffset
	o.totalTime = p.Duration()
	o.target = p.TargetTemperature(o.runtime)
	ev := o.eventLocked(EventStart)
	o.mu.Unlock()

	o.log.Infow("oven_run_profile",
		"profile", p.Name(),
		"start_offset", ev.Runtime,
		"total_time", p.Duration())
	o.events.OvenEvent(ev)
	return nil
}

// Abort returns the oven to IDLE from any state. It reports whether a
// profile was running.
func (o *Oven) Abort() bool {
	o.mu.Lock()
	if o.state != Running {
		o.resetLocked()
		o.mu.Unlock()
		return false
	}
	ev := o.eventLocked(EventAbort)
	o.resetLocked()
	o.mu.Unlock()

	o.log.Infow("oven_abort", "profile", ev.Profile, "runtime", ev.Runtime)
	o.events.OvenEvent(ev)
	return true
}

func (o *Oven) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Snapshot returns a consistent copy of the session.
func (o *Oven) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s := Snapshot{
		Runtime:     o.runtime,
		Temperature: o.sensor.Temperature() + o.cfg.ThermocoupleOffset,
		Target:      o.target,
		State:       o.state,
		HeatDuty:    o.duty,
		TotalTime:   o.totalTime,
	}
	if o.profile != nil {
		s.Profile = o.profile.Name()
	}
	return s
}

// Run executes the control loop until ctx is done. Each tick energises the
// heater for its duty share of TimeStep and keeps it off for the rest.
func (o *Oven) Run(ctx context.Context) error {
	defer func() {
		if err := o.heater.Off(); err != nil {
			o.log.Errorw("heater_off_failed", "err", err)
		}
	}()

	for {
		if o.State() != Running {
			if err := o.sleep(ctx, o.cfg.IdlePoll); err != nil {
				return err
			}
			continue
		}

		on := o.safeTick()
		if on >= o.cfg.TimeStep {
			// Full duty: the element stays on into the next tick.
			if err := o.sleep(ctx, o.cfg.TimeStep); err != nil {
				return err
			}
			continue
		}
		if err := o.sleep(ctx, on); err != nil {
			return err
		}
		if err := o.heater.Set(false); err != nil {
			o.log.Errorw("heater_switch_failed", "on", false, "err", err)
		}
		if err := o.sleep(ctx, o.cfg.TimeStep-on); err != nil {
			return err
		}
	}
}

// Tick performs one control step and returns how long the heater should be
// kept on within it. An IDLE oven does nothing.
func (o *Oven) Tick() time.Duration {
	ev, on := o.tick()
	if ev != nil {
		o.events.OvenEvent(*ev)
	}
	return on
}

func (o *Oven) tick() (*Event, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != Running {
		return nil, 0
	}

	step := o.cfg.TimeStep
	if o.cfg.Simulate {
		o.runtime += step.Seconds()
	} else {
		o.runtime = o.clock.Since(o.startTime).Seconds() + o.startOffset
	}
	o.target = o.profile.TargetTemperature(o.runtime)

	temp := o.sensor.Temperature() + o.cfg.ThermocoupleOffset
	signal := o.pid.Compute(o.target, temp)
	duty := 0.0
	if signal > 0 {
		duty = signal
	}

	if temp >= o.cfg.EmergencyShutoffTemp {
		ev := o.eventLocked(EventEmergency)
		o.log.Errorw("oven_emergency_shutoff",
			"temperature", temp,
			"threshold", o.cfg.EmergencyShutoffTemp,
			"profile", ev.Profile,
			"runtime", o.runtime)
		o.resetLocked()
		return &ev, 0
	}
	if o.runtime > o.totalTime {
		ev := o.eventLocked(EventComplete)
		o.log.Infow("oven_schedule_complete", "profile", ev.Profile, "runtime", o.runtime)
		o.resetLocked()
		return &ev, 0
	}

	o.duty = duty
	o.heater.SetDuty(duty)
	on := time.Duration(duty * float64(step))

	o.log.Debugw("oven_tick",
		"temperature", temp,
		"target", o.target,
		"pid", signal,
		"heat_on", on.Seconds(),
		"heat_off", (step - on).Seconds(),
		"runtime", o.runtime,
		"total_time", o.totalTime,
		"time_left", o.totalTime-o.runtime)

	if on > 0 {
		if err := o.heater.Set(true); err != nil {
			o.log.Errorw("heater_switch_failed", "on", true, "err", err)
		}
	}
	return nil, on
}

// safeTick contains a panic to the tick it happened in.
func (o *Oven) safeTick() (on time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Errorw("oven_tick_panic", "panic", r)
			if err := o.heater.Off(); err != nil {
				o.log.Errorw("heater_off_failed", "err", err)
			}
			on = 0
		}
	}()
	return o.Tick()
}

// resetLocked clears the session, forces the heater off and starts a fresh
// PID controller.
func (o *Oven) resetLocked() {
	o.state = Idle
	o.profile = nil
	o.startTime = time.Time{}
	o.startOffset = 0
	o.runtime = 0
	o.totalTime = 0
	o.target = 0
	o.duty = 0
	o.pid = pid.New(o.cfg.Gains, o.clock)
	if err := o.heater.Off(); err != nil {
		o.log.Errorw("heater_off_failed", "err", err)
	}
}

func (o *Oven) eventLocked(kind EventKind) Event {
	ev := Event{
		Kind:        kind,
		Temperature: o.sensor.Temperature() + o.cfg.ThermocoupleOffset,
		Runtime:     o.runtime,
		Target:      o.target,
		At:          o.clock.Now(),
	}
	if o.profile != nil {
		ev.Profile = o.profile.Name()
	}
	return ev
}

func (o *Oven) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-o.clock.After(d):
		return nil
	}
}
