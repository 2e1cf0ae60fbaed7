package profile

import (
	"errors"
	"math"
	"testing"
)

func mustNew(t *testing.T, points ...Point) *Profile {
	t.Helper()
	p, err := New("test", points)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
	}{
		{"no points", nil},
		{"single point", []Point{{0, 20}}},
		{"NaN temperature", []Point{{0, 20}, {10, math.NaN()}}},
		{"infinite time", []Point{{0, 20}, {math.Inf(1), 30}}},
		{"negative time", []Point{{-5, 20}, {10, 30}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("bad", tt.points)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Fatalf("expected ErrInvalidFormat, got %v", err)
			}
		})
	}
}

func TestNew_SortsAndCopies(t *testing.T) {
	in := []Point{{600, 200}, {0, 20}, {300, 150}}
	p := mustNew(t, in...)
	in[0].Temperature = 999

	got := p.Points()
	want := []Point{{0, 20}, {300, 150}, {600, 200}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Points()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	got[0].Temperature = -1
	if p.Points()[0].Temperature != 20 {
		t.Fatal("Points must return a copy")
	}
	if p.Duration() != 600 {
		t.Fatalf("Duration() = %v, want 600", p.Duration())
	}
}

func TestTargetTemperature(t *testing.T) {
	p := mustNew(t, Point{0, 20}, Point{600, 200})

	tests := []struct {
		at   float64
		want float64
	}{
		{0, 20},
		{300, 110},
		{150, 65},
		{600, 200},
		{600.0001, 0},
		{700, 0},
		{-10, 20},
	}
	for _, tt := range tests {
		if got := p.TargetTemperature(tt.at); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("TargetTemperature(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestTargetTemperature_BeforeFirstPointHoldsFirst(t *testing.T) {
	p := mustNew(t, Point{60, 100}, Point{120, 300})
	if got := p.TargetTemperature(30); got != 100 {
		t.Fatalf("got %v, want 100", got)
	}
	if p.IsRising(30) {
		t.Fatal("no bounding segment before the first point")
	}
}

func TestTargetTemperature_ContinuousAndMonotonicPerSegment(t *testing.T) {
	p := mustNew(t, Point{0, 20}, Point{100, 500}, Point{200, 500}, Point{300, 100})
	prev := p.TargetTemperature(0)
	for s := 1; s <= 300; s++ {
		cur := p.TargetTemperature(float64(s))
		if math.Abs(cur-prev) > 4.8+1e-9 {
			t.Fatalf("jump at %ds: %v -> %v", s, prev, cur)
		}
		switch {
		case s <= 100 && cur < prev:
			t.Fatalf("not rising in first segment at %ds", s)
		case s > 200 && cur > prev:
			t.Fatalf("not falling in last segment at %ds", s)
		}
		prev = cur
	}
}

func TestTargetTemperature_DuplicateTimes(t *testing.T) {
	// step change: encounter order is kept, the later point wins for t >= 100
	p := mustNew(t, Point{0, 20}, Point{100, 200}, Point{100, 400}, Point{200, 400})
	if got := p.TargetTemperature(100); got != 400 {
		t.Fatalf("at the step got %v, want 400", got)
	}
	if got := p.TargetTemperature(50); math.Abs(got-110) > 1e-9 {
		t.Fatalf("before the step got %v, want 110", got)
	}
}

func TestIsRising(t *testing.T) {
	p := mustNew(t, Point{0, 20}, Point{100, 500}, Point{200, 500}, Point{300, 100})
	tests := []struct {
		at   float64
		want bool
	}{
		{0, true},
		{50, true},
		{100, false},
		{150, false},
		{250, false},
		{300, false},
		{400, false},
	}
	for _, tt := range tests {
		if got := p.IsRising(tt.at); got != tt.want {
			t.Errorf("IsRising(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestIsRising_AgreesWithInterpolationSlope(t *testing.T) {
	p := mustNew(t, Point{0, 20}, Point{100, 500}, Point{200, 300}, Point{300, 300})
	for s := 0.5; s < 300; s += 7 {
		slope := p.TargetTemperature(s+0.25) - p.TargetTemperature(s)
		if p.IsRising(s) != (slope > 0) {
			t.Fatalf("IsRising(%v)=%v disagrees with slope %v", s, p.IsRising(s), slope)
		}
	}
}

func TestParse(t *testing.T) {
	p, err := Parse([]byte(`{"name":"bisque","data":[[600,200],[0,20]]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Name() != "bisque" {
		t.Fatalf("Name() = %q", p.Name())
	}
	if math.Abs(p.TargetTemperature(300)-110) > 1e-9 {
		t.Fatalf("TargetTemperature(300) = %v", p.TargetTemperature(300))
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"one point":     `{"name":"x","data":[[0,20]]}`,
		"non numeric":   `{"name":"x","data":[[0,"hot"],[10,20]]}`,
		"triplet":       `{"name":"x","data":[[0,20,1],[10,20]]}`,
		"data not list": `{"name":"x","data":5}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(body)); !errors.Is(err, ErrInvalidFormat) {
				t.Fatalf("expected ErrInvalidFormat, got %v", err)
			}
		})
	}
}
