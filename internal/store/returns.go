package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
)

// RegisterReturn resolves a reserved allocation to one of the four terminal
// outcomes, adjusting inventory and appending one ledger entry, all inside a
// single transaction.
//
// returnedQty only applies to quantity-mode allocations with outcome
// returned-ok: any shortfall against the allocated quantity is treated as
// implicitly consumed and written off the total. Serialized returns are
// all-or-nothing and ignore returnedQty. Damaged and lost outcomes require
// a justification in notes.
func RegisterReturn(ctx context.Context, db *sql.DB, allocationID int64, outcome, notes string, proofRefs []string, returnedQty *int, userID *int64) (*model.Allocation, error) {
	if !model.ValidOutcome(outcome) {
		return nil, fmt.Errorf("invalid return outcome %q", outcome)
	}
	if (outcome == model.OutcomeReturnedDamaged || outcome == model.OutcomeLost) && notes == "" {
		return nil, fmt.Errorf("%w: outcome %s requires notes", model.ErrMissingJustification, outcome)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
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
		return nil, fmt.Errorf("%w: allocation %d", model.ErrNotFound, allocationID)
	}
	if err != nil {
		return nil, fmt.Errorf("checking allocation: %w", err)
	}
	if a.Status != model.AllocationReserved {
		return nil, fmt.Errorf("%w: allocation %d", model.ErrAlreadyReturned, allocationID)
	}

	finalQty := a.Quantity
	var op string

	switch control {
	case model.ControlSerialized:
		// All-or-nothing: returnedQty is ignored for serialized units.
		var serialStatus string
		switch outcome {
		case model.OutcomeReturnedOK:
			serialStatus = model.SerialAvailable
			op = model.OpReturnOK
		case model.OutcomeReturnedDamaged:
			serialStatus = model.SerialMaintenance
			op = model.OpReturnDamaged
		case model.OutcomeLost:
			serialStatus = model.SerialLost
			op = model.OpLoss
		case model.OutcomeConsumed:
			return nil, fmt.Errorf("%w: serialized units cannot be consumed", model.ErrWrongControlMode)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE serials SET status = ?, event_id = NULL, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status = 'in-use'`,
			serialStatus, a.SerialID,
		)
		if err != nil {
			return nil, fmt.Errorf("updating serial: %w", err)
		}

	case model.ControlQuantity:
		if returnedQty != nil {
			if *returnedQty < 0 || *returnedQty > a.Quantity {
				return nil, fmt.Errorf("%w: returned %d of %d allocated", model.ErrInvalidReturnedQuantity, *returnedQty, a.Quantity)
			}
		}

		switch outcome {
		case model.OutcomeReturnedOK:
			op = model.OpReturnOK
			returned := a.Quantity
			if returnedQty != nil {
				returned = *returnedQty
			}
			finalQty = returned
			shortfall := a.Quantity - returned
			// The shortfall never comes back: it is written off the total
			// as implicitly consumed.
			_, err = tx.ExecContext(ctx,
				`UPDATE materials SET available_qty = available_qty + ?, total_qty = total_qty - ?,
				        updated_at = CURRENT_TIMESTAMP
				 WHERE id = ?`,
				returned, shortfall, a.MaterialID,
			)
		case model.OutcomeReturnedDamaged:
			// Stock stays out of circulation until RestoreQuantity brings
			// it back; neither total nor available moves here.
			op = model.OpReturnDamaged
		case model.OutcomeLost:
			op = model.OpLoss
			_, err = tx.ExecContext(ctx,
				`UPDATE materials SET total_qty = total_qty - ?, updated_at = CURRENT_TIMESTAMP
				 WHERE id = ?`,
				a.Quantity, a.MaterialID,
			)
		case model.OutcomeConsumed:
			op = model.OpConsumption
			_, err = tx.ExecContext(ctx,
				`UPDATE materials SET total_qty = total_qty - ?, updated_at = CURRENT_TIMESTAMP
				 WHERE id = ?`,
				a.Quantity, a.MaterialID,
			)
		}
		if err != nil {
			return nil, fmt.Errorf("updating material stock: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE allocations SET status = 'returned', outcome = ?, returned_qty = ?,
		        return_notes = ?, returned_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'reserved'`,
		outcome, finalQty, notes, allocationID,
	)
	if err != nil {
		return nil, fmt.Errorf("marking allocation returned: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: allocation %d", model.ErrAlreadyReturned, allocationID)
	}

	err = appendMovement(ctx, tx, model.Movement{
		MaterialID: a.MaterialID,
		SerialID:   a.SerialID,
		EventID:    &a.EventID,
		Op:         op,
		Quantity:   finalQty,
		Reason:     notes,
		ProofRefs:  proofRefs,
		RecordedBy: userID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing return: %w", err)
	}

	return GetAllocation(ctx, db, allocationID)
}

// RegisterReturnBatch applies one shared outcome to many allocations. Items
// are processed independently: each gets its own transaction, and a failure
// (say, an allocation someone already returned) is recorded in its result
// without aborting the rest.
func RegisterReturnBatch(ctx context.Context, db *sql.DB, allocationIDs []int64, outcome, notes string, proofRefs []string, userID *int64) []model.BatchReturnResult {
	results := make([]model.BatchReturnResult, 0, len(allocationIDs))
	for _, id := range allocationIDs {
		res := model.BatchReturnResult{AllocationID: id}
		if _, err := RegisterReturn(ctx, db, id, outcome, notes, proofRefs, nil, userID); err != nil {
			res.Error = err.Error()
		} else {
			res.OK = true
		}
		results = append(results, res)
	}
	return results
}
