package models

import "time"

// OvenEvent is a single log entry.
type OvenEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"` // START | ABORT | COMPLETE | EMERGENCY
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
