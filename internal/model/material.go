package model

import "time"

// ControlMode determines how stock of a material is tracked: either as
// individually numbered serial units or as a bulk quantity.
type ControlMode string

const (
	ControlSerialized ControlMode = "serialized"
	ControlQuantity   ControlMode = "quantity"
)

// Valid reports whether the control mode is one of the known variants.
func (c ControlMode) Valid() bool {
	return c == ControlSerialized || c == ControlQuantity
}

// Material is a catalog entry for one kind of equipment.
//
// For quantity-controlled materials TotalQty and AvailableQty are
// authoritative columns. For serialized materials they are derived from the
// serial rows at query time and the columns stay zero.
type Material struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Category     string      `json:"category,omitempty"`
	Control      ControlMode `json:"control"`
	Description  string      `json:"description,omitempty"`
	TotalQty     int         `json:"total_qty"`
	AvailableQty int         `json:"available_qty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	DeletedAt    *time.Time  `json:"deleted_at,omitempty"`
}

// MaterialSummary is the read-side availability view of one material.
// Serialized counts come from serial rows, quantity counts from the
// material columns; ReservedQty sums open allocations in both modes.
type MaterialSummary struct {
	MaterialID     int64       `json:"material_id"`
	Name           string      `json:"name"`
	Control        ControlMode `json:"control"`
	TotalQty       int         `json:"total_qty"`
	AvailableQty   int         `json:"available_qty"`
	InUseQty       int         `json:"in_use_qty"`
	MaintenanceQty int         `json:"maintenance_qty"`
	LostQty        int         `json:"lost_qty"`
	ConsumedQty    int         `json:"consumed_qty"`
	ReservedQty    int         `json:"reserved_qty"`
}
