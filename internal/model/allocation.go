package model

import "time"

// Shipment modes. Advance shipments travel with a carrier before the event;
// with-crew allocations are carried by a named crew member.
const (
	ModeAdvanceShipment = "advance-shipment"
	ModeWithCrew        = "with-crew"
)

// Allocation statuses.
const (
	AllocationReserved = "reserved"
	AllocationReturned = "returned"
)

// Return outcomes. Exactly one becomes the terminal sub-state of a returned
// allocation.
const (
	OutcomeReturnedOK      = "returned-ok"
	OutcomeReturnedDamaged = "returned-damaged"
	OutcomeLost            = "lost"
	OutcomeConsumed        = "consumed"
)

// ValidOutcome reports whether s is a known return outcome.
func ValidOutcome(s string) bool {
	switch s {
	case OutcomeReturnedOK, OutcomeReturnedDamaged, OutcomeLost, OutcomeConsumed:
		return true
	}
	return false
}

// Allocation binds a material (and, if serialized, one specific serial) to an
// event's checklist line. Quantity is always 1 for serialized materials.
type Allocation struct {
	ID          int64      `json:"id"`
	EventID     int64      `json:"event_id"`
	LineID      int64      `json:"line_id"`
	MaterialID  int64      `json:"material_id"`
	SerialID    *int64     `json:"serial_id,omitempty"`
	Quantity    int        `json:"quantity"`
	Mode        string     `json:"mode"`
	Carrier     string     `json:"carrier,omitempty"`
	Responsible string     `json:"responsible,omitempty"`
	Status      string     `json:"status"`
	Outcome     string     `json:"outcome,omitempty"`
	ReturnedQty *int       `json:"returned_qty,omitempty"`
	ReturnNotes string     `json:"return_notes,omitempty"`
	CreatedBy   *int64     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`

	// Joined fields (not always populated).
	MaterialName string `json:"material_name,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	EventName    string `json:"event_name,omitempty"`
}

// BatchReturnResult is the per-item outcome of a batch return. Items are
// processed independently; a failed item never blocks its siblings.
type BatchReturnResult struct {
	AllocationID int64  `json:"allocation_id"`
	OK           bool   `json:"ok"`
	Error        string `json:"error,omitempty"`
}
