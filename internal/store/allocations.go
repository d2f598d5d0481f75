package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
)

// Allocate reserves inventory against an event's checklist line in a single
// transaction. For serialized materials serialNumber names the unit and
// quantity is ignored (always 1); for quantity materials serialNumber must
// be empty and quantity is the slice to reserve.
//
// The required quantity on the line is a soft limit: callers may
// over-allocate and the checklist projection exposes the excess. Concurrent
// callers racing for the same serial are resolved by a conditional update;
// exactly one wins.
func Allocate(ctx context.Context, db *sql.DB, lineID int64, serialNumber string, quantity int, mode, carrier, responsible string, userID *int64) (*model.Allocation, error) {
	switch mode {
	case model.ModeAdvanceShipment:
		if carrier == "" {
			return nil, fmt.Errorf("%w: advance shipments need a carrier", model.ErrMissingModeMetadata)
		}
	case model.ModeWithCrew:
		if responsible == "" {
			return nil, fmt.Errorf("%w: with-crew allocations need a responsible person", model.ErrMissingModeMetadata)
		}
	default:
		return nil, fmt.Errorf("invalid shipment mode %q", mode)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var eventID, materialID int64
	var control model.ControlMode
	err = tx.QueryRowContext(ctx,
		`SELECT l.event_id, l.material_id, m.control
		 FROM checklist_lines l
		 JOIN materials m ON m.id = l.material_id
		 WHERE l.id = ? AND m.deleted_at IS NULL`, lineID,
	).Scan(&eventID, &materialID, &control)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: checklist line %d", model.ErrNotFound, lineID)
	}
	if err != nil {
		return nil, fmt.Errorf("checking checklist line: %w", err)
	}

	var serialID *int64
	switch control {
	case model.ControlSerialized:
		if serialNumber == "" {
			return nil, fmt.Errorf("%w: material %d is serialized; a serial number is required", model.ErrWrongControlMode, materialID)
		}
		quantity = 1

		var id int64
		var status string
		err = tx.QueryRowContext(ctx,
			`SELECT id, status FROM serials WHERE material_id = ? AND number = ?`,
			materialID, serialNumber,
		).Scan(&id, &status)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: serial %q on material %d", model.ErrNotFound, serialNumber, materialID)
		}
		if err != nil {
			return nil, fmt.Errorf("checking serial: %w", err)
		}
		if status != model.SerialAvailable {
			return nil, fmt.Errorf("%w: serial %q is %s", model.ErrSerialUnavailable, serialNumber, status)
		}

		// Conditional claim: loses cleanly if another caller reserved the
		// serial between the read above and here.
		result, err := tx.ExecContext(ctx,
			`UPDATE serials SET status = 'in-use', event_id = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status = 'available'`,
			eventID, id,
		)
		if err != nil {
			return nil, fmt.Errorf("reserving serial: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("%w: serial %q was taken", model.ErrSerialUnavailable, serialNumber)
		}
		serialID = &id

	case model.ControlQuantity:
		if serialNumber != "" {
			return nil, fmt.Errorf("%w: material %d is quantity-controlled; no serial number applies", model.ErrWrongControlMode, materialID)
		}
		if quantity <= 0 {
			return nil, fmt.Errorf("quantity must be positive")
		}

		var available int
		err = tx.QueryRowContext(ctx,
			`SELECT available_qty FROM materials WHERE id = ?`, materialID,
		).Scan(&available)
		if err != nil {
			return nil, fmt.Errorf("checking available quantity: %w", err)
		}
		if available < quantity {
			return nil, fmt.Errorf("%w: material %d has %d available, need %d", model.ErrInsufficientStock, materialID, available, quantity)
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE materials SET available_qty = available_qty - ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND available_qty >= ?`,
			quantity, materialID, quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("reserving quantity: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("%w: material %d stock changed underneath", model.ErrInsufficientStock, materialID)
		}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO allocations (event_id, line_id, material_id, serial_id, quantity, mode, carrier, responsible, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		eventID, lineID, materialID, serialID, quantity, mode, carrier, responsible, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating allocation: %w", err)
	}

	allocationID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting allocation id: %w", err)
	}

	err = appendMovement(ctx, tx, model.Movement{
		MaterialID: materialID,
		SerialID:   serialID,
		EventID:    &eventID,
		Op:         model.OpAllocation,
		Quantity:   quantity,
		Reason:     mode,
		RecordedBy: userID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing allocation: %w", err)
	}

	return GetAllocation(ctx, db, allocationID)
}

// Deallocate cancels a reservation that has not been returned yet, releasing
// the serial or restoring the quantity. The allocation row is removed (the
// ledger keeps the trace) so the checklist line frees up again.
func Deallocate(ctx context.Context, db *sql.DB, allocationID int64, userID *int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var a model.Allocation
	var control model.ControlMode
	err = tx.QueryRowContext(ctx,
		`SELECT a.event_id, a.material_id, a.serial_id, a.quantity, a.status, m.control
		 FROM allocations a
		 JOIN materials m ON m.id = a.material_id
		 WHERE a.id = ?`, allocationID,
	).Scan(&a.EventID, &a.MaterialID, &a.SerialID, &a.Quantity, &a.Status, &control)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: allocation %d", model.ErrNotFound, allocationID)
	}
	if err != nil {
		return fmt.Errorf("checking allocation: %w", err)
	}
	if a.Status != model.AllocationReserved {
		return fmt.Errorf("%w: allocation %d is already returned", model.ErrAllocationNotReversible, allocationID)
	}

	switch control {
	case model.ControlSerialized:
		_, err = tx.ExecContext(ctx,
			`UPDATE serials SET status = 'available', event_id = NULL, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status = 'in-use'`, a.SerialID,
		)
		if err != nil {
			return fmt.Errorf("releasing serial: %w", err)
		}
	case model.ControlQuantity:
		_, err = tx.ExecContext(ctx,
			`UPDATE materials SET available_qty = available_qty + ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`, a.Quantity, a.MaterialID,
		)
		if err != nil {
			return fmt.Errorf("restoring quantity: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM allocations WHERE id = ?`, allocationID); err != nil {
		return fmt.Errorf("removing allocation: %w", err)
	}

	err = appendMovement(ctx, tx, model.Movement{
		MaterialID: a.MaterialID,
		SerialID:   a.SerialID,
		EventID:    &a.EventID,
		Op:         model.OpDeallocation,
		Quantity:   a.Quantity,
		RecordedBy: userID,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing deallocation: %w", err)
	}
	return nil
}

// allocationSelect joins the names callers display alongside an allocation.
const allocationSelect = `
	SELECT a.id, a.event_id, a.line_id, a.material_id, a.serial_id, a.quantity,
	       a.mode, a.carrier, a.responsible, a.status, a.outcome, a.returned_qty,
	       a.return_notes, a.created_by, a.created_at, a.returned_at,
	       m.name AS material_name,
	       COALESCE(s.number, '') AS serial_number,
	       e.name AS event_name
	FROM allocations a
	JOIN materials m ON m.id = a.material_id
	LEFT JOIN serials s ON s.id = a.serial_id
	JOIN events e ON e.id = a.event_id`

// GetAllocation returns an allocation by ID.
func GetAllocation(ctx context.Context, db *sql.DB, id int64) (*model.Allocation, error) {
	a := &model.Allocation{}
	var carrier, responsible, outcome, returnNotes sql.NullString
	err := db.QueryRowContext(ctx,
		allocationSelect+` WHERE a.id = ?`, id,
	).Scan(&a.ID, &a.EventID, &a.LineID, &a.MaterialID, &a.SerialID, &a.Quantity,
		&a.Mode, &carrier, &responsible, &a.Status, &outcome, &a.ReturnedQty,
		&returnNotes, &a.CreatedBy, &a.CreatedAt, &a.ReturnedAt,
		&a.MaterialName, &a.SerialNumber, &a.EventName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting allocation: %w", err)
	}
	a.Carrier = carrier.String
	a.Responsible = responsible.String
	a.Outcome = outcome.String
	a.ReturnNotes = returnNotes.String
	return a, nil
}

// ListAllocations returns allocations, optionally filtered by event,
// material, and status.
func ListAllocations(ctx context.Context, db *sql.DB, eventID, materialID int64, status string) ([]model.Allocation, error) {
	query := allocationSelect + ` WHERE 1=1`
	var args []any

	if eventID > 0 {
		query += ` AND a.event_id = ?`
		args = append(args, eventID)
	}
	if materialID > 0 {
		query += ` AND a.material_id = ?`
		args = append(args, materialID)
	}
	if status != "" {
		query += ` AND a.status = ?`
		args = append(args, status)
	}

	query += ` ORDER BY a.created_at DESC, a.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing allocations: %w", err)
	}
	defer rows.Close()

	return scanAllocations(rows)
}

func scanAllocations(rows *sql.Rows) ([]model.Allocation, error) {
	var allocations []model.Allocation
	for rows.Next() {
		var a model.Allocation
		var carrier, responsible, outcome, returnNotes sql.NullString
		if err := rows.Scan(&a.ID, &a.EventID, &a.LineID, &a.MaterialID, &a.SerialID, &a.Quantity,
			&a.Mode, &carrier, &responsible, &a.Status, &outcome, &a.ReturnedQty,
			&returnNotes, &a.CreatedBy, &a.CreatedAt, &a.ReturnedAt,
			&a.MaterialName, &a.SerialNumber, &a.EventName); err != nil {
			return nil, fmt.Errorf("scanning allocation: %w", err)
		}
		a.Carrier = carrier.String
		a.Responsible = responsible.String
		a.Outcome = outcome.String
		a.ReturnNotes = returnNotes.String
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}
