//go:build !linux

package heater

// GPIOSwitch is unavailable off Linux.
type GPIOSwitch struct{}

func NewGPIOSwitch(chip string, pin int, invert bool) (*GPIOSwitch, error) {
	return nil, ErrUnsupported
}

func (s *GPIOSwitch) Set(on bool) error { return ErrUnsupported }
func (s *GPIOSwitch) Close() error      { return nil }
