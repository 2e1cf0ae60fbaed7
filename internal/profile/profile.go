// Package profile models a firing profile: a named, piecewise-linear
// schedule of target temperature over elapsed time.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrInvalidFormat = errors.New("invalid profile format")
	ErrTooFewPoints  = fmt.Errorf("%w: at least two points are required", ErrInvalidFormat)
)

// Point is a single control point: Time in seconds since the start of the
// firing, Temperature in degrees.
type Point struct {
	Time        float64
	Temperature float64
}

// Profile is immutable after construction.
type Profile struct {
	name   string
	points []Point
}

// New validates the points and returns a profile sorted by time. Points with
// equal times keep the order they were given in.
func New(name string, points []Point) (*Profile, error) {
	if len(points) < 2 {
		return nil, ErrTooFewPoints
	}
	sorted := make([]Point, len(points))
	copy(sorted, points)
	for i, p := range sorted {
		if !finite(p.Time) || !finite(p.Temperature) {
			return nil, fmt.Errorf("%w: point %d is not a finite number", ErrInvalidFormat, i)
		}
		if p.Time < 0 {
			return nil, fmt.Errorf("%w: point %d has negative time %v", ErrInvalidFormat, i, p.Time)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	return &Profile{name: name, points: sorted}, nil
}

// document is the schedule description: {"name": "...", "data": [[t, T], ...]}.
type document struct {
	Name string            `json:"name"`
	Data []json.RawMessage `json:"data"`
}

// Parse builds a profile from its JSON schedule description.
func Parse(data []byte) (*Profile, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	points := make([]Point, 0, len(doc.Data))
	for i, raw := range doc.Data {
		var pair []float64
		if err := json.Unmarshal(raw, &pair); err != nil {
			return nil, fmt.Errorf("%w: point %d: %v", ErrInvalidFormat, i, err)
		}
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: point %d must be a [time, temperature] pair", ErrInvalidFormat, i)
		}
		points = append(points, Point{Time: pair[0], Temperature: pair[1]})
	}
	return New(doc.Name, points)
}

func (p *Profile) Name() string { return p.name }

// Points returns a copy of the sorted control points.
func (p *Profile) Points() []Point {
	out := make([]Point, len(p.points))
	copy(out, p.points)
	return out
}

// Duration is the time of the last control point, in seconds.
func (p *Profile) Duration() float64 {
	return p.points[len(p.points)-1].Time
}

// segment returns the two consecutive points bounding t, i.e. the first
// point later than t and its predecessor.
func (p *Profile) segment(t float64) (prev, next Point, ok bool) {
	if t > p.Duration() {
		return Point{}, Point{}, false
	}
	i := sort.Search(len(p.points), func(i int) bool { return p.points[i].Time > t })
	if i == 0 || i == len(p.points) {
		return Point{}, Point{}, false
	}
	return p.points[i-1], p.points[i], true
}

// TargetTemperature interpolates the schedule at t seconds. Past the end of
// the schedule it returns 0; at exactly the end it returns the final point's
// temperature; before the first point it holds the first point's temperature.
func (p *Profile) TargetTemperature(t float64) float64 {
	if t > p.Duration() {
		return 0
	}
	prev, next, ok := p.segment(t)
	if !ok {
		if t < p.points[0].Time {
			return p.points[0].Temperature
		}
		return p.points[len(p.points)-1].Temperature
	}
	slope := (next.Temperature - prev.Temperature) / (next.Time - prev.Time)
	return prev.Temperature + (t-prev.Time)*slope
}

// IsRising reports whether the segment bounding t climbs in temperature.
func (p *Profile) IsRising(t float64) bool {
	prev, next, ok := p.segment(t)
	if !ok {
		return false
	}
	return prev.Temperature < next.Temperature
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
