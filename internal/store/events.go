package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
)

// CreateEvent registers an event row for the external event module. Only the
// fields needed to annotate allocations and ledger entries are kept here.
func CreateEvent(ctx context.Context, db *sql.DB, name string, startsAt, endsAt *time.Time) (*model.Event, error) {
	if name == "" {
		return nil, fmt.Errorf("event name required")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO events (name, starts_at, ends_at) VALUES (?, ?, ?)`,
		name, startsAt, endsAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting event id: %w", err)
	}

	return GetEvent(ctx, db, id)
}

// GetEvent returns an event by ID.
func GetEvent(ctx context.Context, db *sql.DB, id int64) (*model.Event, error) {
	e := &model.Event{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, starts_at, ends_at, created_at FROM events WHERE id = ?`, id,
	).Scan(&e.ID, &e.Name, &e.StartsAt, &e.EndsAt, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting event: %w", err)
	}
	return e, nil
}

// ListEvents returns all events, newest first.
func ListEvents(ctx context.Context, db *sql.DB) ([]model.Event, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, starts_at, ends_at, created_at FROM events ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.StartsAt, &e.EndsAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// AddChecklistLine states that an event requires requiredQty units of a
// material.
func AddChecklistLine(ctx context.Context, db *sql.DB, eventID, materialID int64, requiredQty int) (*model.ChecklistLine, error) {
	if requiredQty <= 0 {
		return nil, fmt.Errorf("required quantity must be positive")
	}

	event, err := GetEvent(ctx, db, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("%w: event %d", model.ErrNotFound, eventID)
	}

	material, err := GetMaterial(ctx, db, materialID)
	if err != nil {
		return nil, err
	}
	if material == nil || material.DeletedAt != nil {
		return nil, fmt.Errorf("%w: material %d", model.ErrNotFound, materialID)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO checklist_lines (event_id, material_id, required_qty) VALUES (?, ?, ?)`,
		eventID, materialID, requiredQty,
	)
	if err != nil {
		return nil, fmt.Errorf("creating checklist line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting checklist line id: %w", err)
	}

	return GetChecklistLine(ctx, db, id)
}

// checklistSelect derives the allocated quantity from the allocation rows
// against each line. Returned allocations still count: only deallocation
// frees a line up again.
const checklistSelect = `
	SELECT l.id, l.event_id, l.material_id, l.required_qty, l.created_at,
	       m.name AS material_name,
	       COALESCE((SELECT SUM(a.quantity) FROM allocations a WHERE a.line_id = l.id), 0) AS allocated_qty
	FROM checklist_lines l
	JOIN materials m ON m.id = l.material_id`

// GetChecklistLine returns a checklist line with its derived allocated count.
func GetChecklistLine(ctx context.Context, db *sql.DB, id int64) (*model.ChecklistLine, error) {
	l := &model.ChecklistLine{}
	err := db.QueryRowContext(ctx,
		checklistSelect+` WHERE l.id = ?`, id,
	).Scan(&l.ID, &l.EventID, &l.MaterialID, &l.RequiredQty, &l.CreatedAt,
		&l.MaterialName, &l.AllocatedQty)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting checklist line: %w", err)
	}
	return l, nil
}

// ListChecklist returns an event's checklist lines with allocated counts.
func ListChecklist(ctx context.Context, db *sql.DB, eventID int64) ([]model.ChecklistLine, error) {
	rows, err := db.QueryContext(ctx,
		checklistSelect+` WHERE l.event_id = ? ORDER BY m.name, l.id`, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing checklist: %w", err)
	}
	defer rows.Close()

	var lines []model.ChecklistLine
	for rows.Next() {
		var l model.ChecklistLine
		if err := rows.Scan(&l.ID, &l.EventID, &l.MaterialID, &l.RequiredQty, &l.CreatedAt,
			&l.MaterialName, &l.AllocatedQty); err != nil {
			return nil, fmt.Errorf("scanning checklist line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// DeleteChecklistLine removes a line that has no allocations against it.
func DeleteChecklistLine(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var refs int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM allocations WHERE line_id = ?`, id,
	).Scan(&refs)
	if err != nil {
		return fmt.Errorf("checking line allocations: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("checklist line %d has %d allocations", id, refs)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM checklist_lines WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting checklist line: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing line deletion: %w", err)
	}
	return nil
}
