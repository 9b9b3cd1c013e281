package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SaveDisplay stores or updates a display.
func (s *Store) SaveDisplay(ctx context.Context, d *Display) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO displays (id, user_id, name, token, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			token = excluded.token,
			active = excluded.active,
			updated_at = excluded.updated_at
	`, d.ID, d.UserID, d.Name, d.Token, d.Active, d.CreatedAt, d.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving display: %w", err)
	}
	return nil
}

// GetDisplay retrieves a display by id.
func (s *Store) GetDisplay(ctx context.Context, id string) (*Display, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, token, active, created_at, updated_at
		FROM displays WHERE id = ?
	`, id)
	return scanDisplay(row)
}

// GetDisplayByToken retrieves a display by its device token.
func (s *Store) GetDisplayByToken(ctx context.Context, token string) (*Display, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, token, active, created_at, updated_at
		FROM displays WHERE token = ?
	`, token)
	return scanDisplay(row)
}

// ListDisplays returns all displays for a user.
func (s *Store) ListDisplays(ctx context.Context, userID string) ([]Display, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, token, active, created_at, updated_at
		FROM displays WHERE user_id = ? ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying displays: %w", err)
	}
	defer rows.Close()

	var displays []Display
	for rows.Next() {
		var d Display
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Token, &d.Active,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning display: %w", err)
		}
		displays = append(displays, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating displays: %w", err)
	}
	return displays, nil
}

// DeleteDisplay removes a display.
func (s *Store) DeleteDisplay(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM displays WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting display: %w", err)
	}
	return nil
}

func scanDisplay(row *sql.Row) (*Display, error) {
	var d Display
	if err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Token, &d.Active,
		&d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning display: %w", err)
	}
	return &d, nil
}
