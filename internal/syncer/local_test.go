package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
)

func TestMaterializeLocalPlainEvent(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)

	cals := []store.LocalCalendar{{ID: "family-1", Name: "Family", Color: "#00ff00"}}
	events := []store.LocalEvent{{
		ID:         "le1",
		CalendarID: "family-1",
		Title:      "Picnic",
		Start:      time.Date(2026, 9, 5, 11, 0, 0, 0, time.UTC),
		End:        time.Date(2026, 9, 5, 14, 0, 0, 0, time.UTC),
		AssignedTo: []string{"m1"},
	}}

	outCals, outEvents := materializeLocal(cals, events, start, end)
	require.Len(t, outCals, 1)
	assert.Equal(t, "family-1", outCals[0].ID)
	assert.Equal(t, "owner", outCals[0].AccessRole)

	require.Len(t, outEvents, 1)
	assert.Equal(t, "le1", outEvents[0].ID)
	assert.Equal(t, []string{"m1"}, outEvents[0].AssignedTo)
}

func TestMaterializeLocalFiltersOutsideWindow(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	events := []store.LocalEvent{{
		ID:    "past",
		Start: time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 7, 1, 11, 0, 0, 0, time.UTC),
	}}

	_, outEvents := materializeLocal(nil, events, start, end)
	assert.Empty(t, outEvents)
}

func TestExpandRecurringWeeklyEvent(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	le := store.LocalEvent{
		ID:         "le1",
		CalendarID: "family-1",
		Title:      "Swim class",
		Start:      time.Date(2026, 8, 3, 15, 0, 0, 0, time.UTC), // a Monday
		End:        time.Date(2026, 8, 3, 16, 0, 0, 0, time.UTC),
		Recurrence: []string{"RRULE:FREQ=WEEKLY"},
	}

	out := expandLocalEvent(le, start, end)
	require.Len(t, out, 5, "five Mondays in August 2026 from the 3rd")

	// Each occurrence keeps the duration and gets a unique id.
	seen := map[string]bool{}
	for _, ev := range out {
		assert.Equal(t, time.Hour, ev.End.Sub(ev.Start))
		assert.False(t, seen[ev.ID], "occurrence ids must be unique")
		seen[ev.ID] = true
	}
	assert.Equal(t, time.Date(2026, 8, 3, 15, 0, 0, 0, time.UTC), out[0].Start)
	assert.Equal(t, time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC), out[4].Start)
}

func TestExpandRecurringHonorsCount(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2027, 8, 1, 0, 0, 0, 0, time.UTC)

	le := store.LocalEvent{
		ID:         "le1",
		Start:      time.Date(2026, 8, 3, 15, 0, 0, 0, time.UTC),
		End:        time.Date(2026, 8, 3, 16, 0, 0, 0, time.UTC),
		Recurrence: []string{"RRULE:FREQ=DAILY;COUNT=3"},
	}

	out := expandLocalEvent(le, start, end)
	assert.Len(t, out, 3)
}

func TestExpandBadRuleDegradesToSingleOccurrence(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	le := store.LocalEvent{
		ID:         "le1",
		Start:      time.Date(2026, 8, 3, 15, 0, 0, 0, time.UTC),
		End:        time.Date(2026, 8, 3, 16, 0, 0, 0, time.UTC),
		Recurrence: []string{"RRULE:FREQ=NONSENSE"},
	}

	out := expandLocalEvent(le, start, end)
	require.Len(t, out, 1)
	assert.Equal(t, "le1", out[0].ID)
}
