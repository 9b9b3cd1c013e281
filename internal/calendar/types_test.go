package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
)

func TestFromGoogleEventTimed(t *testing.T) {
	ev := &gcal.Event{
		Id:          "ev1",
		Summary:     "Dentist",
		Description: "Checkup",
		Location:    "Main St",
		Status:      "confirmed",
		Start:       &gcal.EventDateTime{DateTime: "2026-03-10T09:00:00Z"},
		End:         &gcal.EventDateTime{DateTime: "2026-03-10T09:30:00Z"},
	}

	got := fromGoogleEvent(ev, "acct1", "cal1")

	assert.Equal(t, "ev1", got.ID)
	assert.Equal(t, "cal1", got.CalendarID)
	assert.Equal(t, "acct1", got.AccountID)
	assert.Equal(t, "Dentist", got.Title)
	assert.False(t, got.AllDay)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), got.Start)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC), got.End)
	assert.Empty(t, got.Category)
}

func TestFromGoogleEventAllDay(t *testing.T) {
	ev := &gcal.Event{
		Id:      "ev2",
		Summary: "School holiday",
		Start:   &gcal.EventDateTime{Date: "2026-04-01"},
		End:     &gcal.EventDateTime{Date: "2026-04-02"},
	}

	got := fromGoogleEvent(ev, "acct1", "cal1")

	assert.True(t, got.AllDay)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), got.Start)
	assert.Equal(t, time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), got.End)
}

func TestFromGoogleEventCategory(t *testing.T) {
	ev := &gcal.Event{Id: "ev3", EventType: "outOfOffice"}
	got := fromGoogleEvent(ev, "acct1", "cal1")
	assert.Equal(t, "outOfOffice", got.Category)

	ev.EventType = "default"
	got = fromGoogleEvent(ev, "acct1", "cal1")
	assert.Empty(t, got.Category)
}

func TestToGoogleEventTimed(t *testing.T) {
	input := EventInput{
		Title:    "Soccer practice",
		Start:    time.Date(2026, 5, 1, 16, 0, 0, 0, time.UTC),
		End:      time.Date(2026, 5, 1, 17, 0, 0, 0, time.UTC),
		TimeZone: "Europe/Berlin",
	}

	ev := toGoogleEvent(input)

	require.NotNil(t, ev.Start)
	require.NotNil(t, ev.End)
	assert.Equal(t, "2026-05-01T16:00:00Z", ev.Start.DateTime)
	assert.Equal(t, "Europe/Berlin", ev.Start.TimeZone)
	assert.Empty(t, ev.Start.Date)
}

func TestToGoogleEventAllDay(t *testing.T) {
	input := EventInput{
		Title:  "Birthday",
		AllDay: true,
		Start:  time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 6, 16, 0, 0, 0, 0, time.UTC),
	}

	ev := toGoogleEvent(input)

	require.NotNil(t, ev.Start)
	assert.Equal(t, "2026-06-15", ev.Start.Date)
	assert.Empty(t, ev.Start.DateTime)
}

func TestToGoogleEventDefaultsTimeZone(t *testing.T) {
	input := EventInput{
		Start: time.Date(2026, 5, 1, 16, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 5, 1, 17, 0, 0, 0, time.UTC),
	}

	ev := toGoogleEvent(input)
	require.NotNil(t, ev.Start)
	assert.Equal(t, "UTC", ev.Start.TimeZone)
}

func TestSnapshotClone(t *testing.T) {
	orig := &Snapshot{
		Calendars: []Calendar{{ID: "cal1", Name: "Work"}},
		Events: []Event{
			{
				ID:         "ev1",
				Recurrence: []string{"RRULE:FREQ=WEEKLY"},
				AssignedTo: []string{"member1"},
			},
		},
		LastSyncedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	clone := orig.Clone()
	require.NotNil(t, clone)
	assert.Equal(t, orig, clone)

	// Mutating the clone must not touch the original.
	clone.Events[0].AssignedTo[0] = "member2"
	clone.Events[0].Recurrence[0] = "RRULE:FREQ=DAILY"
	clone.Calendars[0].Name = "Changed"

	assert.Equal(t, "member1", orig.Events[0].AssignedTo[0])
	assert.Equal(t, "RRULE:FREQ=WEEKLY", orig.Events[0].Recurrence[0])
	assert.Equal(t, "Work", orig.Calendars[0].Name)
}

func TestSnapshotCloneNil(t *testing.T) {
	var s *Snapshot
	assert.Nil(t, s.Clone())
}

func TestNewSnapshotHasNonNilSlices(t *testing.T) {
	s := NewSnapshot()
	assert.NotNil(t, s.Calendars)
	assert.NotNil(t, s.Events)
	assert.Len(t, s.Calendars, 0)
	assert.Len(t, s.Events, 0)
}
