package sensor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IIODriver reads a thermocouple converter (MAX31855, MAX6675, ...) bound to
// the Linux industrial I/O subsystem, e.g. /sys/bus/iio/devices/iio:device0.
type IIODriver struct {
	dir        string
	fahrenheit bool
}

// NewIIODriver reads from the device directory dir. Readings are reported in
// degrees Fahrenheit when fahrenheit is set, Celsius otherwise.
func NewIIODriver(dir string, fahrenheit bool) *IIODriver {
	return &IIODriver{dir: dir, fahrenheit: fahrenheit}
}

// Read prefers the processed in_temp_input attribute (milli-degrees C) and
// falls back to in_temp_raw scaled by in_temp_scale.
func (d *IIODriver) Read() (float64, error) {
	milli, err := readAttr(filepath.Join(d.dir, "in_temp_input"))
	if errors.Is(err, fs.ErrNotExist) {
		milli, err = d.readRaw()
	}
	if err != nil {
		return 0, err
	}
	c := milli / 1000
	if d.fahrenheit {
		return c*9/5 + 32, nil
	}
	return c, nil
}

func (d *IIODriver) readRaw() (float64, error) {
	raw, err := readAttr(filepath.Join(d.dir, "in_temp_raw"))
	if err != nil {
		return 0, err
	}
	scale, err := readAttr(filepath.Join(d.dir, "in_temp_scale"))
	if errors.Is(err, fs.ErrNotExist) {
		return raw, nil
	}
	if err != nil {
		return 0, err
	}
	return raw * scale, nil
}

func readAttr(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return v, nil
}
