package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
)

// CreateMaterial creates a catalog entry. initialQty is only legal for
// quantity-controlled materials and is recorded as a stock entry in the
// ledger; serialized materials start empty and grow serial by serial.
func CreateMaterial(ctx context.Context, db *sql.DB, name, category string, control model.ControlMode, description string, initialQty int, userID *int64) (*model.Material, error) {
	if !control.Valid() {
		return nil, fmt.Errorf("invalid control mode %q", control)
	}
	if initialQty < 0 {
		return nil, fmt.Errorf("initial quantity must not be negative")
	}
	if initialQty > 0 && control != model.ControlQuantity {
		return nil, fmt.Errorf("%w: initial quantity only applies to quantity-controlled materials", model.ErrWrongControlMode)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO materials (name, category, control, description, total_qty, available_qty)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		name, category, control, description, initialQty, initialQty,
	)
	if err != nil {
		return nil, fmt.Errorf("creating material: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting material id: %w", err)
	}

	if initialQty > 0 {
		err = appendMovement(ctx, tx, model.Movement{
			MaterialID: id,
			Op:         model.OpEntry,
			Quantity:   initialQty,
			Reason:     "initial stock",
			RecordedBy: userID,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing material: %w", err)
	}

	return GetMaterial(ctx, db, id)
}

// GetMaterial returns a material by ID. For serialized materials the
// total/available quantities are derived from serial rows, never from the
// stored columns.
func GetMaterial(ctx context.Context, db *sql.DB, id int64) (*model.Material, error) {
	m := &model.Material{}
	var category, description sql.NullString
	err := db.QueryRowContext(ctx,
		materialSelect+` WHERE m.id = ?`, id,
	).Scan(&m.ID, &m.Name, &category, &m.Control, &description,
		&m.TotalQty, &m.AvailableQty, &m.CreatedAt, &m.UpdatedAt, &m.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting material: %w", err)
	}
	m.Category = category.String
	m.Description = description.String
	return m, nil
}

// materialSelect derives total/available counts from serial rows for
// serialized materials and reads the columns for quantity materials.
const materialSelect = `
	SELECT m.id, m.name, m.category, m.control, m.description,
	       CASE WHEN m.control = 'serialized'
	            THEN (SELECT COUNT(*) FROM serials s WHERE s.material_id = m.id)
	            ELSE m.total_qty END AS total_qty,
	       CASE WHEN m.control = 'serialized'
	            THEN (SELECT COUNT(*) FROM serials s WHERE s.material_id = m.id AND s.status = 'available')
	            ELSE m.available_qty END AS available_qty,
	       m.created_at, m.updated_at, m.deleted_at
	FROM materials m`

// ListMaterials returns all non-deleted materials, optionally filtered by
// category.
func ListMaterials(ctx context.Context, db *sql.DB, category string) ([]model.Material, error) {
	query := materialSelect + ` WHERE m.deleted_at IS NULL`
	var args []any

	if category != "" {
		query += ` AND m.category = ?`
		args = append(args, category)
	}

	query += ` ORDER BY m.name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing materials: %w", err)
	}
	defer rows.Close()

	var materials []model.Material
	for rows.Next() {
		var m model.Material
		var cat, description sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &cat, &m.Control, &description,
			&m.TotalQty, &m.AvailableQty, &m.CreatedAt, &m.UpdatedAt, &m.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning material: %w", err)
		}
		m.Category = cat.String
		m.Description = description.String
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// UpdateMaterial updates a material's descriptive fields. Control mode and
// quantities are owned by the allocation/return operations and AdjustQuantity.
func UpdateMaterial(ctx context.Context, db *sql.DB, id int64, name, category, description string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE materials SET name = ?, category = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		name, category, description, id,
	)
	if err != nil {
		return fmt.Errorf("updating material: %w", err)
	}
	return nil
}

// AdjustQuantity changes the stock of a quantity-controlled material by
// delta (positive for entries, negative for exits) and records a ledger
// entry. Fails if the resulting available stock would go negative.
func AdjustQuantity(ctx context.Context, db *sql.DB, materialID int64, delta int, reason string, userID *int64) (*model.Material, error) {
	if delta == 0 {
		return nil, fmt.Errorf("delta must be non-zero")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var control model.ControlMode
	var available int
	err = tx.QueryRowContext(ctx,
		`SELECT control, available_qty FROM materials WHERE id = ? AND deleted_at IS NULL`,
		materialID,
	).Scan(&control, &available)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: material %d", model.ErrNotFound, materialID)
	}
	if err != nil {
		return nil, fmt.Errorf("checking material: %w", err)
	}
	if control != model.ControlQuantity {
		return nil, fmt.Errorf("%w: material %d is serialized; manage its serials instead", model.ErrWrongControlMode, materialID)
	}
	if available+delta < 0 {
		return nil, fmt.Errorf("%w: material %d has %d available, adjustment %d", model.ErrNegativeStockViolation, materialID, available, delta)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE materials SET total_qty = total_qty + ?, available_qty = available_qty + ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		delta, delta, materialID,
	)
	if err != nil {
		return nil, fmt.Errorf("adjusting quantity: %w", err)
	}

	op := model.OpEntry
	qty := delta
	if delta < 0 {
		op = model.OpExit
		qty = -delta
	}
	err = appendMovement(ctx, tx, model.Movement{
		MaterialID: materialID,
		Op:         op,
		Quantity:   qty,
		Reason:     reason,
		RecordedBy: userID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing adjustment: %w", err)
	}

	return GetMaterial(ctx, db, materialID)
}

// RestoreQuantity puts damaged bulk stock back into circulation: available
// grows by qty while total stays put (the units never left the books). This
// is the recovery path after a returned-damaged outcome on a quantity
// material.
func RestoreQuantity(ctx context.Context, db *sql.DB, materialID int64, qty int, reason string, userID *int64) (*model.Material, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var control model.ControlMode
	var total, available int
	err = tx.QueryRowContext(ctx,
		`SELECT control, total_qty, available_qty FROM materials WHERE id = ? AND deleted_at IS NULL`,
		materialID,
	).Scan(&control, &total, &available)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: material %d", model.ErrNotFound, materialID)
	}
	if err != nil {
		return nil, fmt.Errorf("checking material: %w", err)
	}
	if control != model.ControlQuantity {
		return nil, fmt.Errorf("%w: material %d is serialized; repair its serials instead", model.ErrWrongControlMode, materialID)
	}
	if available+qty > total {
		return nil, fmt.Errorf("%w: restoring %d would exceed total %d (available %d)", model.ErrNegativeStockViolation, qty, total, available)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE materials SET available_qty = available_qty + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		qty, materialID,
	)
	if err != nil {
		return nil, fmt.Errorf("restoring quantity: %w", err)
	}

	err = appendMovement(ctx, tx, model.Movement{
		MaterialID: materialID,
		Op:         model.OpAdjustment,
		Quantity:   qty,
		Reason:     reason,
		RecordedBy: userID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing restore: %w", err)
	}

	return GetMaterial(ctx, db, materialID)
}

// DeleteMaterial soft-deletes a material. Refused while any open allocation
// still references it.
func DeleteMaterial(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var open int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM allocations WHERE material_id = ? AND status = 'reserved'`, id,
	).Scan(&open)
	if err != nil {
		return fmt.Errorf("checking open allocations: %w", err)
	}
	if open > 0 {
		return fmt.Errorf("material %d has %d open allocations", id, open)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE materials SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting material: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing deletion: %w", err)
	}
	return nil
}
