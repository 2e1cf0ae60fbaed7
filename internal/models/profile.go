package models

import "time"

// Profile is a stored firing schedule. Data holds [seconds, temperature]
// pairs, the same layout as the profile files.
type Profile struct {
	Name      string      `json:"name" binding:"required"`
	Data      [][]float64 `json:"data" binding:"required"`
	UpdatedAt time.Time   `json:"updated_at,omitempty"`
}
