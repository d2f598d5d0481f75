package model

import "time"

// Movement operation kinds.
const (
	OpEntry         = "entry"
	OpExit          = "exit"
	OpAdjustment    = "adjustment"
	OpAllocation    = "allocation"
	OpDeallocation  = "deallocation"
	OpReturnOK      = "return-ok"
	OpReturnDamaged = "return-damaged"
	OpLoss          = "loss"
	OpConsumption   = "consumption"
)

// Movement is one entry of the append-only stock ledger. Entries are never
// updated or deleted; corrections are new compensating entries.
type Movement struct {
	ID         int64     `json:"id"`
	MaterialID int64     `json:"material_id"`
	SerialID   *int64    `json:"serial_id,omitempty"`
	EventID    *int64    `json:"event_id,omitempty"`
	Op         string    `json:"op"`
	Quantity   int       `json:"quantity"`
	Reason     string    `json:"reason,omitempty"`
	ProofRefs  []string  `json:"proof_refs,omitempty"`
	RecordedBy *int64    `json:"recorded_by,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`

	// Joined fields (not always populated).
	MaterialName string `json:"material_name,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	EventName    string `json:"event_name,omitempty"`
}
