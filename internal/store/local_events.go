package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SaveLocalCalendar stores or updates a local family calendar.
func (s *Store) SaveLocalCalendar(ctx context.Context, c *LocalCalendar) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_calendars (id, user_id, name, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			color = excluded.color,
			updated_at = excluded.updated_at
	`, c.ID, c.UserID, c.Name, c.Color, c.CreatedAt, c.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving local calendar: %w", err)
	}
	return nil
}

// GetLocalCalendar retrieves a local calendar by id.
func (s *Store) GetLocalCalendar(ctx context.Context, id string) (*LocalCalendar, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, color, created_at, updated_at
		FROM local_calendars WHERE id = ?
	`, id)

	var c LocalCalendar
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning local calendar: %w", err)
	}
	return &c, nil
}

// ListLocalCalendars returns all local calendars for a user, in creation
// order.
func (s *Store) ListLocalCalendars(ctx context.Context, userID string) ([]LocalCalendar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, color, created_at, updated_at
		FROM local_calendars WHERE user_id = ? ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying local calendars: %w", err)
	}
	defer rows.Close()

	var calendars []LocalCalendar
	for rows.Next() {
		var c LocalCalendar
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning local calendar: %w", err)
		}
		calendars = append(calendars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating local calendars: %w", err)
	}
	return calendars, nil
}

// DeleteLocalCalendar removes a local calendar and its events.
func (s *Store) DeleteLocalCalendar(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM local_calendars WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting local calendar: %w", err)
	}
	return nil
}

// SaveLocalEvent stores or updates an event on a local calendar.
func (s *Store) SaveLocalEvent(ctx context.Context, e *LocalEvent) error {
	recurrenceJSON, err := json.Marshal(e.Recurrence)
	if err != nil {
		return fmt.Errorf("marshalling recurrence: %w", err)
	}
	assignedJSON, err := json.Marshal(e.AssignedTo)
	if err != nil {
		return fmt.Errorf("marshalling assigned members: %w", err)
	}

	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO local_events
			(id, calendar_id, user_id, title, description, location, start, "end",
			 all_day, category, recurrence, assigned_to, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			calendar_id = excluded.calendar_id,
			title = excluded.title,
			description = excluded.description,
			location = excluded.location,
			start = excluded.start,
			"end" = excluded."end",
			all_day = excluded.all_day,
			category = excluded.category,
			recurrence = excluded.recurrence,
			assigned_to = excluded.assigned_to,
			updated_at = excluded.updated_at
	`, e.ID, e.CalendarID, e.UserID, e.Title, e.Description, e.Location,
		e.Start.UTC(), e.End.UTC(), e.AllDay, e.Category,
		string(recurrenceJSON), string(assignedJSON), e.CreatedAt, e.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving local event: %w", err)
	}
	return nil
}

// GetLocalEvent retrieves a local event by id.
func (s *Store) GetLocalEvent(ctx context.Context, id string) (*LocalEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, calendar_id, user_id, title, description, location, start, "end",
		       all_day, category, recurrence, assigned_to, created_at, updated_at
		FROM local_events WHERE id = ?
	`, id)
	return scanLocalEvent(row.Scan)
}

// ListLocalEvents returns all local events for a user across their local
// calendars, in start order.
func (s *Store) ListLocalEvents(ctx context.Context, userID string) ([]LocalEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, calendar_id, user_id, title, description, location, start, "end",
		       all_day, category, recurrence, assigned_to, created_at, updated_at
		FROM local_events WHERE user_id = ? ORDER BY start, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying local events: %w", err)
	}
	defer rows.Close()

	var events []LocalEvent
	for rows.Next() {
		e, err := scanLocalEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating local events: %w", err)
	}
	return events, nil
}

// DeleteLocalEvent removes a local event.
func (s *Store) DeleteLocalEvent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM local_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting local event: %w", err)
	}
	return nil
}

func scanLocalEvent(scan func(dest ...any) error) (*LocalEvent, error) {
	var e LocalEvent
	var recurrenceJSON, assignedJSON string
	if err := scan(&e.ID, &e.CalendarID, &e.UserID, &e.Title, &e.Description,
		&e.Location, &e.Start, &e.End, &e.AllDay, &e.Category,
		&recurrenceJSON, &assignedJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning local event: %w", err)
	}
	if err := json.Unmarshal([]byte(recurrenceJSON), &e.Recurrence); err != nil {
		return nil, fmt.Errorf("unmarshalling recurrence: %w", err)
	}
	if err := json.Unmarshal([]byte(assignedJSON), &e.AssignedTo); err != nil {
		return nil, fmt.Errorf("unmarshalling assigned members: %w", err)
	}
	return &e, nil
}
