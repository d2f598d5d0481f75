package model

import "time"

// Serial is one physically distinct unit of a serialized material.
type Serial struct {
	ID         int64      `json:"id"`
	MaterialID int64      `json:"material_id"`
	Number     string     `json:"number"`
	Status     string     `json:"status"`
	Location   string     `json:"location,omitempty"`
	Tags       string     `json:"tags,omitempty"`
	EventID    *int64     `json:"event_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	MaterialName string `json:"material_name,omitempty"`
	EventName    string `json:"event_name,omitempty"`
}

// Serial statuses. A serial is linked to an event exactly while in use;
// lost and consumed are terminal but the row is kept for audit.
const (
	SerialAvailable   = "available"
	SerialInUse       = "in-use"
	SerialMaintenance = "maintenance"
	SerialLost        = "lost"
	SerialConsumed    = "consumed"
)
