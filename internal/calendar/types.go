package calendar

import (
	"time"

	gcal "google.golang.org/api/calendar/v3"
)

// Event is the provider-neutral calendar event served to displays.
// Events are ephemeral materializations of provider (or local) state: each
// sync cycle rebuilds them wholesale, they are never diffed or patched.
type Event struct {
	ID          string    `json:"id"`
	CalendarID  string    `json:"calendarId"`
	AccountID   string    `json:"accountId,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"isAllDay"`
	Category    string    `json:"category,omitempty"`
	Recurrence  []string  `json:"recurrence,omitempty"` // RRULE, EXRULE, RDATE, EXDATE lines
	AssignedTo  []string  `json:"assignedTo,omitempty"` // household member ids
	Status      string    `json:"status,omitempty"`
}

// EventInput represents the input for creating or updating a calendar event.
type EventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"isAllDay"`
	TimeZone    string    `json:"timeZone,omitempty"`
	Category    string    `json:"category,omitempty"`
	Recurrence  []string  `json:"recurrence,omitempty"`
	AssignedTo  []string  `json:"assignedTo,omitempty"`
}

// Calendar describes one calendar visible to a user, either mirrored from a
// provider account or a local family calendar.
type Calendar struct {
	ID         string `json:"id"`
	AccountID  string `json:"accountId,omitempty"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	Primary    bool   `json:"primary,omitempty"`
	AccessRole string `json:"accessRole,omitempty"` // "owner", "writer", "reader", "freeBusyReader"
}

// Snapshot is the full aggregated calendar state cached for one user.
// It is created lazily on first sync and fully replaced on each subsequent
// sync; no component patches it partially.
type Snapshot struct {
	Calendars    []Calendar `json:"calendars"`
	Events       []Event    `json:"events"`
	LastSyncedAt time.Time  `json:"lastSyncedAt"`
}

// NewSnapshot returns an empty snapshot with non-nil slices, so an empty
// snapshot still serializes as empty arrays rather than null.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Calendars: []Calendar{},
		Events:    []Event{},
	}
}

// Clone returns a deep copy of the snapshot. Used by the mutation path to
// retain a rollback point before applying optimistic changes.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Calendars:    make([]Calendar, len(s.Calendars)),
		Events:       make([]Event, len(s.Events)),
		LastSyncedAt: s.LastSyncedAt,
	}
	copy(out.Calendars, s.Calendars)
	for i, ev := range s.Events {
		out.Events[i] = ev
		if ev.Recurrence != nil {
			out.Events[i].Recurrence = append([]string(nil), ev.Recurrence...)
		}
		if ev.AssignedTo != nil {
			out.Events[i].AssignedTo = append([]string(nil), ev.AssignedTo...)
		}
	}
	return out
}

// SyncResult reports the outcome of one sync cycle.
type SyncResult struct {
	Calendars int `json:"calendarsCount"`
	Events    int `json:"eventsCount"`
}

// fromGoogleEvent converts a Google Calendar event to the neutral Event model.
// The caller stamps accountID and calendarID because the provider payload does
// not carry them.
func fromGoogleEvent(ev *gcal.Event, accountID, calendarID string) Event {
	out := Event{
		ID:          ev.Id,
		CalendarID:  calendarID,
		AccountID:   accountID,
		Title:       ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Status:      ev.Status,
		Recurrence:  ev.Recurrence,
	}

	if ev.EventType != "" && ev.EventType != "default" {
		out.Category = ev.EventType
	}

	if ev.Start != nil {
		if ev.Start.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, ev.Start.DateTime); err == nil {
				out.Start = t
			}
		} else if ev.Start.Date != "" {
			if t, err := time.Parse("2006-01-02", ev.Start.Date); err == nil {
				out.Start = t
				out.AllDay = true
			}
		}
	}

	if ev.End != nil {
		if ev.End.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, ev.End.DateTime); err == nil {
				out.End = t
			}
		} else if ev.End.Date != "" {
			if t, err := time.Parse("2006-01-02", ev.End.Date); err == nil {
				out.End = t
			}
		}
	}

	return out
}

// toGoogleEvent converts an EventInput to a Google Calendar event payload.
func toGoogleEvent(input EventInput) *gcal.Event {
	ev := &gcal.Event{
		Summary:     input.Title,
		Description: input.Description,
		Location:    input.Location,
	}

	// For all-day events the provider wants Date instead of DateTime.
	if input.AllDay {
		if !input.Start.IsZero() {
			ev.Start = &gcal.EventDateTime{Date: input.Start.Format("2006-01-02")}
		}
		if !input.End.IsZero() {
			ev.End = &gcal.EventDateTime{Date: input.End.Format("2006-01-02")}
		}
	} else {
		tz := input.TimeZone
		if tz == "" {
			tz = "UTC"
		}
		if !input.Start.IsZero() {
			ev.Start = &gcal.EventDateTime{
				DateTime: input.Start.Format(time.RFC3339),
				TimeZone: tz,
			}
		}
		if !input.End.IsZero() {
			ev.End = &gcal.EventDateTime{
				DateTime: input.End.Format(time.RFC3339),
				TimeZone: tz,
			}
		}
	}

	if len(input.Recurrence) > 0 {
		ev.Recurrence = input.Recurrence
	}

	return ev
}

// fromGoogleCalendar converts a Google calendar list entry to the neutral
// Calendar model.
func fromGoogleCalendar(entry *gcal.CalendarListEntry, accountID string) Calendar {
	return Calendar{
		ID:         entry.Id,
		AccountID:  accountID,
		Name:       entry.Summary,
		Color:      entry.BackgroundColor,
		Primary:    entry.Primary,
		AccessRole: entry.AccessRole,
	}
}
