// Package sensor publishes the kiln chamber temperature on its own cadence.
//
// Two variants exist: Real polls a hardware Driver and Simulated integrates a
// lumped thermal model of the kiln. Which one is used is decided by
// configuration at construction time.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"kiln_controller/internal/logger"
)

var (
	ErrNoDriver       = errors.New("sensor: real sensor requires a hardware driver")
	ErrUnknownKind    = errors.New("sensor: unknown sensor kind")
	ErrAllReadsFailed = errors.New("sensor: every read attempt in the cycle failed")
)

// Sensor is the common contract of both variants.
type Sensor interface {
	// Temperature returns the last published reading without any offset.
	Temperature() float64
	// Run refreshes the reading until ctx is done.
	Run(ctx context.Context) error
}

// Driver performs one blocking read from the thermocouple converter.
type Driver interface {
	Read() (float64, error)
}

// DutySource exposes the heater duty of the current control tick.
type DutySource interface {
	HeatDuty() float64
}

type Kind string

const (
	KindReal      Kind = "real"
	KindSimulated Kind = "simulated"
)

// Config selects and parameterises the variant.
type Config struct {
	Kind     Kind
	TimeStep time.Duration
	// Attempts is the number of reads per refresh cycle of the real sensor.
	Attempts int
	Sim      SimConfig
}

// New builds the variant named by cfg.Kind. The real sensor needs driver;
// the simulated one needs duty.
func New(cfg Config, driver Driver, duty DutySource, clock clockwork.Clock, log *logger.Logger) (Sensor, error) {
	switch cfg.Kind {
	case KindReal:
		if driver == nil {
			return nil, ErrNoDriver
		}
		return NewReal(driver, cfg.TimeStep, cfg.Attempts, clock, log), nil
	case KindSimulated:
		if duty == nil {
			return nil, errors.New("sensor: simulated sensor requires a duty source")
		}
		sim := cfg.Sim
		if sim.TimeStep <= 0 {
			sim.TimeStep = cfg.TimeStep
		}
		return NewSimulated(sim, duty, clock, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// value is a float64 with atomic loads and stores; one goroutine writes it.
type value struct {
	bits atomic.Uint64
}

func (v *value) Load() float64   { return math.Float64frombits(v.bits.Load()) }
func (v *value) Store(f float64) { v.bits.Store(math.Float64bits(f)) }

// sleep waits d on clock, returning early with ctx's error.
func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
