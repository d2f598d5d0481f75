package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Proof is a stored piece of return evidence (a processed photo). Ledger
// entries reference proofs as opaque "proof:<id>" strings; external URLs
// pass through the ledger untouched and never land here.
type Proof struct {
	ID        int64     `json:"id"`
	MIME      string    `json:"mime"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateProof stores processed image data and returns its reference id.
func CreateProof(ctx context.Context, db *sql.DB, data []byte, mime string, width, height int, userID *int64) (*Proof, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO proofs (data, mime, width, height, created_by) VALUES (?, ?, ?, ?, ?)`,
		data, mime, width, height, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("storing proof: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting proof id: %w", err)
	}

	p := &Proof{ID: id, MIME: mime, Width: width, Height: height, CreatedBy: userID}
	err = db.QueryRowContext(ctx,
		`SELECT created_at FROM proofs WHERE id = ?`, id,
	).Scan(&p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reading proof: %w", err)
	}
	return p, nil
}

// GetProofData returns a proof's image bytes and MIME type.
func GetProofData(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var data []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT data, mime FROM proofs WHERE id = ?`, id,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting proof: %w", err)
	}
	return data, mime, nil
}
