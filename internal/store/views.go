package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
)

// Read-side projections. Everything here is computed from current catalog
// and allocation state and mutates nothing.

// GetMaterialSummary returns the availability breakdown for one material.
// Serialized counts come from the serial rows; quantity counts from the
// material columns. ReservedQty sums open allocations in both modes.
func GetMaterialSummary(ctx context.Context, db *sql.DB, materialID int64) (*model.MaterialSummary, error) {
	s := &model.MaterialSummary{MaterialID: materialID}
	err := db.QueryRowContext(ctx,
		`SELECT name, control FROM materials WHERE id = ?`, materialID,
	).Scan(&s.Name, &s.Control)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting material: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM allocations WHERE material_id = ? AND status = 'reserved'`,
		materialID,
	).Scan(&s.ReservedQty)
	if err != nil {
		return nil, fmt.Errorf("counting reservations: %w", err)
	}

	switch s.Control {
	case model.ControlSerialized:
		rows, err := db.QueryContext(ctx,
			`SELECT status, COUNT(*) FROM serials WHERE material_id = ? GROUP BY status`,
			materialID,
		)
		if err != nil {
			return nil, fmt.Errorf("counting serials: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				return nil, fmt.Errorf("scanning serial count: %w", err)
			}
			s.TotalQty += n
			switch status {
			case model.SerialAvailable:
				s.AvailableQty = n
			case model.SerialInUse:
				s.InUseQty = n
			case model.SerialMaintenance:
				s.MaintenanceQty = n
			case model.SerialLost:
				s.LostQty = n
			case model.SerialConsumed:
				s.ConsumedQty = n
			}
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("counting serials: %w", err)
		}

	case model.ControlQuantity:
		err = db.QueryRowContext(ctx,
			`SELECT total_qty, available_qty FROM materials WHERE id = ?`, materialID,
		).Scan(&s.TotalQty, &s.AvailableQty)
		if err != nil {
			return nil, fmt.Errorf("reading quantities: %w", err)
		}
		s.InUseQty = s.ReservedQty
	}

	return s, nil
}

// ListPendingReturns returns an event's open allocations, oldest first: the
// work list for reconciliation once the event wraps.
func ListPendingReturns(ctx context.Context, db *sql.DB, eventID int64) ([]model.Allocation, error) {
	rows, err := db.QueryContext(ctx,
		allocationSelect+` WHERE a.event_id = ? AND a.status = 'reserved'
		 ORDER BY a.created_at, a.id`, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending returns: %w", err)
	}
	defer rows.Close()

	return scanAllocations(rows)
}
