package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/corkboard/internal/apperr"
	"github.com/starford/corkboard/internal/board"
)

// Record is the stored board of one user.
type Record struct {
	UserID      string       `json:"userId"`
	Items       []board.Item `json:"items"`
	LastUpdated time.Time    `json:"lastUpdated"`
}

// GetWorkspace returns the user's board, creating an empty one if none is
// stored yet.
func (db *DB) GetWorkspace(ctx context.Context, userID string) (Record, error) {
	if userID == "" {
		return Record{}, fmt.Errorf("workspace: empty user id: %w", apperr.ErrInvalid)
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO workspaces (user_id, items, last_updated) VALUES (?, '[]', ?)`,
		userID, time.Now().UTC())
	if err != nil {
		return Record{}, fmt.Errorf("workspace: ensure workspace: %w", err)
	}

	var raw string
	rec := Record{UserID: userID}
	err = db.conn.QueryRowContext(ctx,
		`SELECT items, last_updated FROM workspaces WHERE user_id = ?`, userID).
		Scan(&raw, &rec.LastUpdated)
	if err != nil {
		return Record{}, fmt.Errorf("workspace: get workspace: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &rec.Items); err != nil {
		return Record{}, fmt.Errorf("workspace: decode items: %w", err)
	}
	if rec.Items == nil {
		rec.Items = []board.Item{}
	}
	return rec, nil
}

// SaveWorkspace replaces the user's items and stamps the record.
func (db *DB) SaveWorkspace(ctx context.Context, userID string, items []board.Item) (Record, error) {
	if userID == "" {
		return Record{}, fmt.Errorf("workspace: empty user id: %w", apperr.ErrInvalid)
	}
	if items == nil {
		items = []board.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return Record{}, fmt.Errorf("workspace: encode items: %w", err)
	}
	now := time.Now().UTC()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO workspaces (user_id, items, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			items        = excluded.items,
			last_updated = excluded.last_updated
	`, userID, string(data), now)
	if err != nil {
		return Record{}, fmt.Errorf("workspace: save workspace: %w", err)
	}
	return Record{UserID: userID, Items: items, LastUpdated: now}, nil
}
