package oven

import "time"

type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Running:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}

// Snapshot is an immutable view of the oven at one instant. Times are in
// seconds; Temperature includes the thermocouple offset.
type Snapshot struct {
	Runtime     float64
	Temperature float64
	Target      float64
	State       State
	HeatDuty    float64
	TotalTime   float64
	Profile     string
}

// TimeLeft is the remaining schedule time, never negative.
func (s Snapshot) TimeLeft() float64 {
	if left := s.TotalTime - s.Runtime; left > 0 {
		return left
	}
	return 0
}

type EventKind string

const (
	EventStart     EventKind = "START"
	EventAbort     EventKind = "ABORT"
	EventComplete  EventKind = "COMPLETE"
	EventEmergency EventKind = "EMERGENCY"
)

// Event marks a state transition of the oven.
type Event struct {
	Kind        EventKind
	Profile     string
	Temperature float64
	Target      float64
	Runtime     float64
	At          time.Time
}

// EventSink receives transitions. It is called outside the oven lock and
// must not block for long.
type EventSink interface {
	OvenEvent(Event)
}

type nopSink struct{}

func (nopSink) OvenEvent(Event) {}
