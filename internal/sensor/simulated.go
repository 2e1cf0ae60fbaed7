package sensor

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"kiln_controller/internal/logger"
)

// SimConfig holds the constants of the two-node thermal model.
type SimConfig struct {
	TEnv     float64 `mapstructure:"t_env"`      // ambient, degrees
	CHeat    float64 `mapstructure:"c_heat"`     // element heat capacity, J/K
	COven    float64 `mapstructure:"c_oven"`     // chamber heat capacity, J/K
	PHeat    float64 `mapstructure:"p_heat"`     // element power, W
	RONoCool float64 `mapstructure:"r_o_nocool"` // chamber to ambient, K/W
	RHoNoAir float64 `mapstructure:"r_ho_noair"` // element to chamber, K/W

	// TimeStep is the integration step; SleepTime the wall time between
	// steps, TimeStep when zero.
	TimeStep  time.Duration `mapstructure:"-"`
	SleepTime time.Duration `mapstructure:"-"`
}

func (c SimConfig) Validate() error {
	if c.CHeat <= 0 || c.COven <= 0 {
		return errors.New("sensor: heat capacities must be positive")
	}
	if c.RONoCool <= 0 || c.RHoNoAir <= 0 {
		return errors.New("sensor: thermal resistances must be positive")
	}
	if c.PHeat < 0 {
		return errors.New("sensor: heater power must not be negative")
	}
	if c.TimeStep <= 0 {
		return errors.New("sensor: simulation time step must be positive")
	}
	if c.SleepTime < 0 {
		return errors.New("sensor: simulation sleep time must not be negative")
	}
	return nil
}

// SteadyState is the chamber temperature at which full power equals the
// loss to ambient.
func (c SimConfig) SteadyState() float64 {
	return c.TEnv + c.PHeat*c.RONoCool
}

// Simulated integrates the model with explicit Euler steps and publishes the
// chamber temperature.
type Simulated struct {
	cfg   SimConfig
	duty  DutySource
	clock clockwork.Clock
	log   *logger.Logger

	// owned by the goroutine calling Step
	tOven float64
	tHeat float64

	temp    value
	element value
}

func NewSimulated(cfg SimConfig, duty DutySource, clock clockwork.Clock, log *logger.Logger) (*Simulated, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SleepTime == 0 {
		cfg.SleepTime = cfg.TimeStep
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Simulated{
		cfg:   cfg,
		duty:  duty,
		clock: clock,
		log:   logger.OrNop(log),
		tOven: cfg.TEnv,
		tHeat: cfg.TEnv,
	}
	s.temp.Store(cfg.TEnv)
	s.element.Store(cfg.TEnv)
	return s, nil
}

func (s *Simulated) Temperature() float64 { return s.temp.Load() }

// ElementTemperature returns the heating element node temperature.
func (s *Simulated) ElementTemperature() float64 { return s.element.Load() }

func (s *Simulated) Run(ctx context.Context) error {
	for {
		s.Step()
		if err := sleep(ctx, s.clock, s.cfg.SleepTime); err != nil {
			return err
		}
	}
}

// Step advances the model by one time step and publishes the result.
func (s *Simulated) Step() {
	dt := s.cfg.TimeStep.Seconds()
	duty := s.duty.HeatDuty()

	// energy into the element
	qHeat := s.cfg.PHeat * dt * duty
	s.tHeat += qHeat / s.cfg.CHeat

	// element -> chamber
	pHo := (s.tHeat - s.tOven) / s.cfg.RHoNoAir
	s.tOven += pHo * dt / s.cfg.COven
	s.tHeat -= pHo * dt / s.cfg.CHeat

	// chamber -> ambient
	pEnv := (s.tOven - s.cfg.TEnv) / s.cfg.RONoCool
	s.tOven -= pEnv * dt / s.cfg.COven

	s.log.Debugw("sim_step",
		"heater_w", s.cfg.PHeat*duty,
		"element", s.tHeat,
		"element_to_oven_w", pHo,
		"oven", s.tOven,
		"oven_to_env_w", pEnv)

	s.temp.Store(s.tOven)
	s.element.Store(s.tHeat)
}
