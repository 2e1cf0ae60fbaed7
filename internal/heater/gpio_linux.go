//go:build linux

package heater

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOSwitch drives the relay through the Linux GPIO character device.
type GPIOSwitch struct {
	line   *gpiocdev.Line
	invert bool
}

// NewGPIOSwitch requests pin on chip (e.g. "gpiochip0") as an output that
// starts in the logical off state.
func NewGPIOSwitch(chip string, pin int, invert bool) (*GPIOSwitch, error) {
	line, err := gpiocdev.RequestLine(chip, pin,
		gpiocdev.AsOutput(rawLevel(false, invert)),
		gpiocdev.WithConsumer("kiln-heater"))
	if err != nil {
		return nil, fmt.Errorf("request heater pin %d on %s: %w", pin, chip, err)
	}
	return &GPIOSwitch{line: line, invert: invert}, nil
}

func (s *GPIOSwitch) Set(on bool) error {
	if err := s.line.SetValue(rawLevel(on, s.invert)); err != nil {
		return fmt.Errorf("set heater pin: %w", err)
	}
	return nil
}

func (s *GPIOSwitch) Close() error {
	return s.line.Close()
}
