package sensor

import (
	"context"
	"errors"
	"sync"
)

// Reading is one scripted driver result.
type Reading struct {
	Value float64
	Err   error
}

// FakeDriver returns scripted readings in order, repeating the last one once
// the script is exhausted.
type FakeDriver struct {
	mu       sync.Mutex
	readings []Reading
	index    int
	reads    int
}

func NewFakeDriver(readings ...Reading) *FakeDriver {
	return &FakeDriver{readings: readings}
}

func (f *FakeDriver) Read() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if len(f.readings) == 0 {
		return 0, errors.New("no readings configured")
	}
	r := f.readings[f.index]
	if f.index < len(f.readings)-1 {
		f.index++
	}
	return r.Value, r.Err
}

// Reads returns the number of Read calls so far.
func (f *FakeDriver) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Static is a sensor whose temperature is set by the caller.
type Static struct {
	temp value
}

func NewStatic(t float64) *Static {
	s := &Static{}
	s.temp.Store(t)
	return s
}

func (s *Static) Set(t float64)        { s.temp.Store(t) }
func (s *Static) Temperature() float64 { return s.temp.Load() }

func (s *Static) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
