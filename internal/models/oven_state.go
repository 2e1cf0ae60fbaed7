package models

import "time"

// OvenState is the oven snapshot as served by the API and persisted in the
// single-row oven_state table. Times are in seconds.
type OvenState struct {
	ID          int       `json:"-"`
	State       string    `json:"state"` // IDLE | RUNNING
	Profile     string    `json:"profile,omitempty"`
	Temperature float64   `json:"temperature"`
	Target      float64   `json:"target"`
	HeatDuty    float64   `json:"heat_duty"`
	Runtime     float64   `json:"runtime"`
	TotalTime   float64   `json:"total_time"`
	TimeLeft    float64   `json:"time_left"`
	UpdatedAt   time.Time `json:"updated_at"`
}
