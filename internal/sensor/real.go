package sensor

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"kiln_controller/internal/logger"
)

const (
	// DefaultAttempts is the number of reads per refresh cycle.
	DefaultAttempts = 5
	// DefaultTimeStep is the refresh period when none is given.
	DefaultTimeStep = 2 * time.Second
)

// Real publishes the maximum of several hardware reads per cycle. Taking the
// maximum keeps a single under-read from making the controller over-fire.
type Real struct {
	driver   Driver
	timeStep time.Duration
	attempts int
	clock    clockwork.Clock
	log      *logger.Logger

	temp value
}

func NewReal(driver Driver, timeStep time.Duration, attempts int, clock clockwork.Clock, log *logger.Logger) *Real {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	if timeStep <= 0 {
		timeStep = DefaultTimeStep
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Real{
		driver:   driver,
		timeStep: timeStep,
		attempts: attempts,
		clock:    clock,
		log:      logger.OrNop(log),
	}
}

func (s *Real) Temperature() float64 { return s.temp.Load() }

func (s *Real) Run(ctx context.Context) error {
	for {
		if err := s.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warnw("sensor_cycle_failed", "err", err, "temperature", s.Temperature())
		}
	}
}

// Cycle performs one refresh: Attempts reads spread evenly over the time
// step. Failed reads are skipped. When every read fails the previous
// temperature stays published and ErrAllReadsFailed is returned.
func (s *Real) Cycle(ctx context.Context) error {
	spacing := s.timeStep / time.Duration(s.attempts)

	var (
		hottest float64
		ok      bool
	)
	for i := 0; i < s.attempts; i++ {
		t, err := s.read()
		if err != nil {
			s.log.Warnw("sensor_read_failed", "attempt", i+1, "err", err)
		} else if !ok || t > hottest {
			hottest, ok = t, true
		}
		if err := sleep(ctx, s.clock, spacing); err != nil {
			return err
		}
	}

	if !ok {
		return ErrAllReadsFailed
	}
	s.temp.Store(hottest)
	return nil
}

// read calls the driver, turning a panic into an error so a misbehaving
// driver cannot take the refresh loop down.
func (s *Real) read() (t float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("driver panic: %v", r)
		}
	}()
	return s.driver.Read()
}
