package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SaveAccount stores or updates a provider account, including its tokens.
func (s *Store) SaveAccount(ctx context.Context, a *Account) error {
	scopesJSON, err := json.Marshal(a.Scopes)
	if err != nil {
		return fmt.Errorf("marshalling scopes: %w", err)
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts
			(id, user_id, provider, email, access_token, refresh_token, token_expiry,
			 scopes, auth_error, auth_error_message, auth_error_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			provider = excluded.provider,
			email = excluded.email,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expiry = excluded.token_expiry,
			scopes = excluded.scopes,
			auth_error = excluded.auth_error,
			auth_error_message = excluded.auth_error_message,
			auth_error_at = excluded.auth_error_at,
			updated_at = excluded.updated_at
	`, a.ID, a.UserID, a.Provider, a.Email, a.AccessToken, a.RefreshToken,
		nullTime(a.TokenExpiry), string(scopesJSON), a.AuthError, a.AuthErrorMessage,
		nullTime(a.AuthErrorAt), a.CreatedAt, a.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, email, access_token, refresh_token, token_expiry,
		       scopes, auth_error, auth_error_message, auth_error_at, created_at, updated_at
		FROM accounts WHERE id = ?
	`, id)
	return scanAccount(row)
}

// ListAccounts returns all provider accounts for a user, in creation order.
// Creation order is what makes sync merges and fallback account selection
// deterministic.
func (s *Store) ListAccounts(ctx context.Context, userID string) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, provider, email, access_token, refresh_token, token_expiry,
		       scopes, auth_error, auth_error_message, auth_error_at, created_at, updated_at
		FROM accounts WHERE user_id = ? ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccountRows(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}
	return accounts, nil
}

// UpdateAccountTokens persists a refreshed token set and clears any previous
// auth error. An empty refreshToken keeps the stored one, since providers
// only rotate refresh tokens occasionally.
func (s *Store) UpdateAccountTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	query := `
		UPDATE accounts SET
			access_token = ?,
			token_expiry = ?,
			auth_error = '',
			auth_error_message = '',
			auth_error_at = NULL,
			updated_at = ?
		WHERE id = ?
	`
	args := []any{accessToken, nullTime(expiry), time.Now().UTC(), id}
	if refreshToken != "" {
		query = `
			UPDATE accounts SET
				access_token = ?,
				refresh_token = ?,
				token_expiry = ?,
				auth_error = '',
				auth_error_message = '',
				auth_error_at = NULL,
				updated_at = ?
			WHERE id = ?
		`
		args = []any{accessToken, refreshToken, nullTime(expiry), time.Now().UTC(), id}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating account tokens: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAccountAuthError records the auth state of an account along with a
// human-readable message and the time it happened. Pass AuthErrorNone to
// clear it.
func (s *Store) SetAccountAuthError(ctx context.Context, id, authError, message string) error {
	var at any
	if authError != AuthErrorNone {
		at = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET auth_error = ?, auth_error_message = ?, auth_error_at = ?, updated_at = ? WHERE id = ?
	`, authError, message, at, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("setting account auth error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAccount removes a provider account.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}

func scanAccount(row *sql.Row) (*Account, error) {
	a, err := scanAccountFrom(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

func scanAccountRows(rows *sql.Rows) (*Account, error) {
	return scanAccountFrom(rows.Scan)
}

func scanAccountFrom(scan func(dest ...any) error) (*Account, error) {
	var a Account
	var scopesJSON string
	var expiry, authErrorAt sql.NullTime
	if err := scan(&a.ID, &a.UserID, &a.Provider, &a.Email, &a.AccessToken,
		&a.RefreshToken, &expiry, &scopesJSON, &a.AuthError, &a.AuthErrorMessage,
		&authErrorAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	if expiry.Valid {
		a.TokenExpiry = expiry.Time
	}
	if authErrorAt.Valid {
		a.AuthErrorAt = authErrorAt.Time
	}
	if err := json.Unmarshal([]byte(scopesJSON), &a.Scopes); err != nil {
		return nil, fmt.Errorf("unmarshalling scopes: %w", err)
	}
	return &a, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
