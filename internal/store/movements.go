package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
)

// appendMovement writes one ledger entry inside the caller's transaction.
// The ledger is append-only: no code in this repository updates or deletes
// movement rows; corrections are new compensating entries.
func appendMovement(ctx context.Context, tx *sql.Tx, m model.Movement) error {
	var proofRefs any
	if len(m.ProofRefs) > 0 {
		b, err := json.Marshal(m.ProofRefs)
		if err != nil {
			return fmt.Errorf("encoding proof refs: %w", err)
		}
		proofRefs = string(b)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO movements (material_id, serial_id, event_id, op, quantity, reason, proof_refs, recorded_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MaterialID, m.SerialID, m.EventID, m.Op, m.Quantity, m.Reason, proofRefs, m.RecordedBy,
	)
	if err != nil {
		return fmt.Errorf("appending movement: %w", err)
	}
	return nil
}

// ListMovementsByMaterial returns the movement history of a material,
// newest first. If serialNumber is non-empty, only entries for that serial
// are returned.
func ListMovementsByMaterial(ctx context.Context, db *sql.DB, materialID int64, serialNumber string) ([]model.Movement, error) {
	query := `SELECT mv.id, mv.material_id, mv.serial_id, mv.event_id, mv.op, mv.quantity,
	                 mv.reason, mv.proof_refs, mv.recorded_by, mv.recorded_at,
	                 m.name AS material_name,
	                 COALESCE(s.number, '') AS serial_number,
	                 COALESCE(e.name, '') AS event_name
	          FROM movements mv
	          JOIN materials m ON m.id = mv.material_id
	          LEFT JOIN serials s ON s.id = mv.serial_id
	          LEFT JOIN events e ON e.id = mv.event_id
	          WHERE mv.material_id = ?`
	args := []any{materialID}

	if serialNumber != "" {
		query += ` AND s.number = ?`
		args = append(args, serialNumber)
	}

	query += ` ORDER BY mv.recorded_at DESC, mv.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	defer rows.Close()

	return scanMovements(rows)
}

// ListMovementsByEvent returns all movement entries linked to an event,
// newest first.
func ListMovementsByEvent(ctx context.Context, db *sql.DB, eventID int64) ([]model.Movement, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT mv.id, mv.material_id, mv.serial_id, mv.event_id, mv.op, mv.quantity,
		        mv.reason, mv.proof_refs, mv.recorded_by, mv.recorded_at,
		        m.name AS material_name,
		        COALESCE(s.number, '') AS serial_number,
		        COALESCE(e.name, '') AS event_name
		 FROM movements mv
		 JOIN materials m ON m.id = mv.material_id
		 LEFT JOIN serials s ON s.id = mv.serial_id
		 LEFT JOIN events e ON e.id = mv.event_id
		 WHERE mv.event_id = ?
		 ORDER BY mv.recorded_at DESC, mv.id DESC`, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing event movements: %w", err)
	}
	defer rows.Close()

	return scanMovements(rows)
}

func scanMovements(rows *sql.Rows) ([]model.Movement, error) {
	var movements []model.Movement
	for rows.Next() {
		var m model.Movement
		var reason, proofRefs sql.NullString
		if err := rows.Scan(&m.ID, &m.MaterialID, &m.SerialID, &m.EventID, &m.Op, &m.Quantity,
			&reason, &proofRefs, &m.RecordedBy, &m.RecordedAt,
			&m.MaterialName, &m.SerialNumber, &m.EventName); err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		m.Reason = reason.String
		if proofRefs.Valid && proofRefs.String != "" {
			if err := json.Unmarshal([]byte(proofRefs.String), &m.ProofRefs); err != nil {
				return nil, fmt.Errorf("decoding proof refs: %w", err)
			}
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
