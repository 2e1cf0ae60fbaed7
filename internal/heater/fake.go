package heater

import "sync"

// FakeSwitch records every command it receives.
type FakeSwitch struct {
	mu     sync.Mutex
	calls  []bool
	closed bool

	// Err, if set, is returned by Set.
	Err error
}

func (f *FakeSwitch) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.calls = append(f.calls, on)
	return nil
}

func (f *FakeSwitch) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Calls returns a copy of the recorded commands.
func (f *FakeSwitch) Calls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.calls...)
}

// Last returns the most recent command and whether any was recorded.
func (f *FakeSwitch) Last() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return false, false
	}
	return f.calls[len(f.calls)-1], true
}

func (f *FakeSwitch) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
