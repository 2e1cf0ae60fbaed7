// Package heater drives the heating element. The oven controller issues
// logical on/off commands and records the duty of the current tick; the
// Switch implementation maps them onto the hardware.
package heater

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"kiln_controller/internal/logger"
)

var ErrUnsupported = errors.New("heater: gpio is not supported on this platform")

// Switch is the element relay.
type Switch interface {
	// Set drives the relay to the logical state on. Polarity is the
	// implementation's concern.
	Set(on bool) error
	Close() error
}

type Heater struct {
	mu    sync.Mutex
	sw    Switch
	on    bool
	known bool

	// duty is written by the control loop and read by the simulated sensor.
	duty atomic.Uint64

	log *logger.Logger
}

func New(sw Switch, log *logger.Logger) *Heater {
	if sw == nil {
		sw = Nop{}
	}
	return &Heater{sw: sw, log: logger.OrNop(log)}
}

// SetDuty records the fraction of the current tick the element is driven on.
func (h *Heater) SetDuty(d float64) {
	if math.IsNaN(d) || d < 0 {
		d = 0
	}
	if d > 1 {
		d = 1
	}
	h.duty.Store(math.Float64bits(d))
}

// HeatDuty returns the duty of the current tick.
func (h *Heater) HeatDuty() float64 {
	return math.Float64frombits(h.duty.Load())
}

// Set drives the element. The switch is only written when the state changes.
func (h *Heater) Set(on bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.known && h.on == on {
		return nil
	}
	if err := h.sw.Set(on); err != nil {
		h.known = false
		return err
	}
	h.on = on
	h.known = true
	return nil
}

// IsOn reports the last state successfully written to the switch.
func (h *Heater) IsOn() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.known && h.on
}

// Off zeroes the duty and switches the element off.
func (h *Heater) Off() error {
	h.SetDuty(0)
	return h.Set(false)
}

func (h *Heater) Close() error {
	offErr := h.Off()
	if offErr != nil {
		h.log.Errorw("heater_off_on_close_failed", "err", offErr)
	}
	return errors.Join(offErr, h.sw.Close())
}

// Nop is the switch used when the oven is simulated.
type Nop struct{}

func (Nop) Set(bool) error { return nil }
func (Nop) Close() error   { return nil }

// rawLevel maps a logical state onto the GPIO line level. Without inversion
// the relay is active low.
func rawLevel(on, invert bool) int {
	if on == invert {
		return 1
	}
	return 0
}
