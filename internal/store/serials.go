package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
)

// CreateSerial registers one physical unit of a serialized material. The
// number must be unique within the material. Records a ledger entry of 1.
func CreateSerial(ctx context.Context, db *sql.DB, materialID int64, number, location, tags string, userID *int64) (*model.Serial, error) {
	if number == "" {
		return nil, fmt.Errorf("serial number required")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var control model.ControlMode
	err = tx.QueryRowContext(ctx,
		`SELECT control FROM materials WHERE id = ? AND deleted_at IS NULL`, materialID,
	).Scan(&control)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: material %d", model.ErrNotFound, materialID)
	}
	if err != nil {
		return nil, fmt.Errorf("checking material: %w", err)
	}
	if control != model.ControlSerialized {
		return nil, fmt.Errorf("%w: material %d is quantity-controlled", model.ErrWrongControlMode, materialID)
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM serials WHERE material_id = ? AND number = ?`, materialID, number,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking serial number: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("%w: %q on material %d", model.ErrDuplicateSerialNumber, number, materialID)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO serials (material_id, number, location, tags) VALUES (?, ?, ?, ?)`,
		materialID, number, location, tags,
	)
	if err != nil {
		return nil, fmt.Errorf("creating serial: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting serial id: %w", err)
	}

	err = appendMovement(ctx, tx, model.Movement{
		MaterialID: materialID,
		SerialID:   &id,
		Op:         model.OpEntry,
		Quantity:   1,
		Reason:     fmt.Sprintf("serial %s registered", number),
		RecordedBy: userID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing serial: %w", err)
	}

	return GetSerial(ctx, db, materialID, number)
}

// GetSerial returns a serial by material and number.
func GetSerial(ctx context.Context, db *sql.DB, materialID int64, number string) (*model.Serial, error) {
	s := &model.Serial{}
	var location, tags sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT s.id, s.material_id, s.number, s.status, s.location, s.tags, s.event_id,
		        s.created_at, s.updated_at,
		        m.name AS material_name, COALESCE(e.name, '') AS event_name
		 FROM serials s
		 JOIN materials m ON m.id = s.material_id
		 LEFT JOIN events e ON e.id = s.event_id
		 WHERE s.material_id = ? AND s.number = ?`, materialID, number,
	).Scan(&s.ID, &s.MaterialID, &s.Number, &s.Status, &location, &tags, &s.EventID,
		&s.CreatedAt, &s.UpdatedAt, &s.MaterialName, &s.EventName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting serial: %w", err)
	}
	s.Location = location.String
	s.Tags = tags.String
	return s, nil
}

// ListSerials returns a material's serials, available units first, then by
// number. Optionally filtered by status.
func ListSerials(ctx context.Context, db *sql.DB, materialID int64, status string) ([]model.Serial, error) {
	query := `SELECT s.id, s.material_id, s.number, s.status, s.location, s.tags, s.event_id,
	                 s.created_at, s.updated_at,
	                 m.name AS material_name, COALESCE(e.name, '') AS event_name
	          FROM serials s
	          JOIN materials m ON m.id = s.material_id
	          LEFT JOIN events e ON e.id = s.event_id
	          WHERE s.material_id = ?`
	args := []any{materialID}

	if status != "" {
		query += ` AND s.status = ?`
		args = append(args, status)
	}

	query += ` ORDER BY CASE WHEN s.status = 'available' THEN 0 ELSE 1 END, s.number`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing serials: %w", err)
	}
	defer rows.Close()

	var serials []model.Serial
	for rows.Next() {
		var s model.Serial
		var location, tags sql.NullString
		if err := rows.Scan(&s.ID, &s.MaterialID, &s.Number, &s.Status, &location, &tags, &s.EventID,
			&s.CreatedAt, &s.UpdatedAt, &s.MaterialName, &s.EventName); err != nil {
			return nil, fmt.Errorf("scanning serial: %w", err)
		}
		s.Location = location.String
		s.Tags = tags.String
		serials = append(serials, s)
	}
	return serials, rows.Err()
}

// UpdateSerial updates a serial's location and tags. Status and event links
// are owned by the allocation and return operations.
func UpdateSerial(ctx context.Context, db *sql.DB, materialID int64, number, location, tags string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE serials SET location = ?, tags = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE material_id = ? AND number = ?`,
		location, tags, materialID, number,
	)
	if err != nil {
		return fmt.Errorf("updating serial: %w", err)
	}
	return nil
}

// DeleteSerial removes a serial that is not out on an event. Records a
// ledger exit of 1.
func DeleteSerial(ctx context.Context, db *sql.DB, materialID int64, number string, userID *int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT id, status FROM serials WHERE material_id = ? AND number = ?`,
		materialID, number,
	).Scan(&id, &status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: serial %q on material %d", model.ErrNotFound, number, materialID)
	}
	if err != nil {
		return fmt.Errorf("checking serial: %w", err)
	}
	if status == model.SerialInUse {
		return fmt.Errorf("%w: serial %q is allocated to an event", model.ErrSerialInUse, number)
	}

	// Allocation rows keep the serial id for audit, so the row can only go
	// away if nothing ever referenced it.
	var refs int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM allocations WHERE serial_id = ?`, id,
	).Scan(&refs)
	if err != nil {
		return fmt.Errorf("checking serial references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("%w: serial %q is referenced by %d allocations", model.ErrSerialInUse, number, refs)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM serials WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting serial: %w", err)
	}

	err = appendMovement(ctx, tx, model.Movement{
		MaterialID: materialID,
		Op:         model.OpExit,
		Quantity:   1,
		Reason:     fmt.Sprintf("serial %s removed", number),
		RecordedBy: userID,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing serial deletion: %w", err)
	}
	return nil
}
