package model

import "time"

// Event is the minimal projection of an event owned by the external event
// module: enough to link serials, allocations, and movements to a name.
type Event struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ChecklistLine states that an event requires a quantity of a material.
// AllocatedQty is derived from the allocation rows against the line; the
// required limit is soft and enforced by callers, not here.
type ChecklistLine struct {
	ID          int64     `json:"id"`
	EventID     int64     `json:"event_id"`
	MaterialID  int64     `json:"material_id"`
	RequiredQty int       `json:"required_qty"`
	CreatedAt   time.Time `json:"created_at"`

	// Joined fields (not always populated).
	MaterialName string `json:"material_name,omitempty"`
	AllocatedQty int    `json:"allocated_qty"`
}
