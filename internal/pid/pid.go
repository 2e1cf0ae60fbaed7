// Package pid implements the bounded PID law used by the oven controller.
//
// The output and the integral term are both clamped to [-1, 1] so the signal
// can be read directly as a heater duty fraction.
package pid

import (
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

var ErrNegativeGain = errors.New("pid: gains must be greater or equal to zero")

// MinStep is the smallest time step used between two Compute calls. It also
// replaces zero or negative steps caused by a coarse or adjusted clock.
const MinStep = time.Millisecond

type Gains struct {
	Kp float64 `mapstructure:"kp"`
	Ki float64 `mapstructure:"ki"`
	Kd float64 `mapstructure:"kd"`
}

func (g Gains) Validate() error {
	if g.Kp < 0 || g.Ki < 0 || g.Kd < 0 {
		return ErrNegativeGain
	}
	return nil
}

// Controller is not safe for concurrent use; the oven control loop owns it.
type Controller struct {
	gains    Gains
	clock    clockwork.Clock
	integral float64
	lastErr  float64
	lastTime time.Time
}

func New(g Gains, clock clockwork.Clock) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{gains: g, clock: clock, lastTime: clock.Now()}
}

func (c *Controller) Gains() Gains { return c.gains }

// Integral returns the current accumulated integral term.
func (c *Controller) Integral() float64 { return c.integral }

// Compute returns the control signal in [-1, 1] for the given setpoint and
// measured value.
func (c *Controller) Compute(setpoint, measured float64) float64 {
	now := c.clock.Now()
	dt := now.Sub(c.lastTime)
	if dt < MinStep {
		dt = MinStep
	}
	secs := dt.Seconds()

	err := setpoint - measured
	c.integral = clamp(c.integral+err*secs*c.gains.Ki, -1, 1)
	derivative := (err - c.lastErr) / secs

	out := clamp(c.gains.Kp*err+c.integral+c.gains.Kd*derivative, -1, 1)

	c.lastErr = err
	c.lastTime = now
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
