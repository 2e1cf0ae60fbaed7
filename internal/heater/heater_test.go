package heater

import (
	"errors"
	"math"
	"testing"
)

func TestRawLevel(t *testing.T) {
	tests := []struct {
		on, invert bool
		want       int
	}{
		{true, false, 0},
		{false, false, 1},
		{true, true, 1},
		{false, true, 0},
	}
	for _, tt := range tests {
		if got := rawLevel(tt.on, tt.invert); got != tt.want {
			t.Errorf("rawLevel(%v, %v) = %d, want %d", tt.on, tt.invert, got, tt.want)
		}
	}
}

func TestSetDuty_Clamps(t *testing.T) {
	h := New(&FakeSwitch{}, nil)
	cases := map[float64]float64{
		0.25:       0.25,
		-0.5:       0,
		1.7:        1,
		math.NaN(): 0,
	}
	for in, want := range cases {
		h.SetDuty(in)
		if got := h.HeatDuty(); got != want {
			t.Errorf("SetDuty(%v) -> %v, want %v", in, got, want)
		}
	}
}

func TestSet_WritesOnlyOnChange(t *testing.T) {
	sw := &FakeSwitch{}
	h := New(sw, nil)

	for _, on := range []bool{true, true, false, false, true} {
		if err := h.Set(on); err != nil {
			t.Fatalf("Set(%v): %v", on, err)
		}
	}
	calls := sw.Calls()
	want := []bool{true, false, true}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
	if !h.IsOn() {
		t.Fatal("expected heater on")
	}
}

func TestSet_ErrorForcesRewrite(t *testing.T) {
	sw := &FakeSwitch{Err: errors.New("gpio busy")}
	h := New(sw, nil)
	if err := h.Set(true); err == nil {
		t.Fatal("expected error")
	}
	if h.IsOn() {
		t.Fatal("failed write must not report on")
	}
	sw.Err = nil
	if err := h.Set(true); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(sw.Calls()) != 1 {
		t.Fatalf("expected one recorded call, got %v", sw.Calls())
	}
}

func TestOffAndClose(t *testing.T) {
	sw := &FakeSwitch{}
	h := New(sw, nil)
	h.SetDuty(0.8)
	_ = h.Set(true)

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if h.HeatDuty() != 0 || h.IsOn() {
		t.Fatalf("expected off with zero duty, on=%v duty=%v", h.IsOn(), h.HeatDuty())
	}
	if last, _ := sw.Last(); last {
		t.Fatal("last command should be off")
	}
	if !sw.Closed() {
		t.Fatal("switch not closed")
	}
}
