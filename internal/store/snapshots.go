package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
)

// SaveSnapshot replaces the cached calendar snapshot for a user. The whole
// snapshot is written atomically; partial updates are never performed.
func (s *Store) SaveSnapshot(ctx context.Context, userID string, snap *calendar.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (user_id, data, last_synced_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			data = excluded.data,
			last_synced_at = excluded.last_synced_at
	`, userID, string(data), snap.LastSyncedAt.UTC())

	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves the cached snapshot for a user. Returns ErrNotFound
// when the user has never been synced.
func (s *Store) GetSnapshot(ctx context.Context, userID string) (*calendar.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT data FROM snapshots WHERE user_id = ?
	`, userID)

	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning snapshot: %w", err)
	}

	var snap calendar.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshalling snapshot: %w", err)
	}
	return &snap, nil
}

// DeleteSnapshot removes the cached snapshot for a user.
func (s *Store) DeleteSnapshot(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}
