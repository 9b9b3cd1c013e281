package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SaveMember stores or updates a household member.
func (s *Store) SaveMember(ctx context.Context, m *Member) error {
	connectedJSON, err := json.Marshal(m.ConnectedAccounts)
	if err != nil {
		return fmt.Errorf("marshalling connected accounts: %w", err)
	}

	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO members (id, user_id, name, color, connected_accounts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			color = excluded.color,
			connected_accounts = excluded.connected_accounts,
			updated_at = excluded.updated_at
	`, m.ID, m.UserID, m.Name, m.Color, string(connectedJSON), m.CreatedAt, m.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving member: %w", err)
	}
	return nil
}

// GetMember retrieves a member by id.
func (s *Store) GetMember(ctx context.Context, id string) (*Member, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, color, connected_accounts, created_at, updated_at
		FROM members WHERE id = ?
	`, id)

	var m Member
	var connectedJSON string
	if err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.Color, &connectedJSON,
		&m.CreatedAt, &m.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning member: %w", err)
	}
	if err := json.Unmarshal([]byte(connectedJSON), &m.ConnectedAccounts); err != nil {
		return nil, fmt.Errorf("unmarshalling connected accounts: %w", err)
	}
	return &m, nil
}

// ListMembers returns all household members for a user, in creation order.
// Creation order determines attribution and account fallback precedence.
func (s *Store) ListMembers(ctx context.Context, userID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, color, connected_accounts, created_at, updated_at
		FROM members WHERE user_id = ? ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		var connectedJSON string
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.Color, &connectedJSON,
			&m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		if err := json.Unmarshal([]byte(connectedJSON), &m.ConnectedAccounts); err != nil {
			return nil, fmt.Errorf("unmarshalling connected accounts: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}
	return members, nil
}

// DeleteMember removes a household member.
func (s *Store) DeleteMember(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM members WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}
	return nil
}
