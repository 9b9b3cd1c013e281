package syncer

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
)

// materializeLocal converts local family calendars and their events into
// snapshot form, expanding recurring events into concrete occurrences inside
// the sync window.
func materializeLocal(cals []store.LocalCalendar, events []store.LocalEvent, start, end time.Time) ([]calendar.Calendar, []calendar.Event) {
	outCals := make([]calendar.Calendar, 0, len(cals))
	for _, lc := range cals {
		outCals = append(outCals, calendar.Calendar{
			ID:         lc.ID,
			Name:       lc.Name,
			Color:      lc.Color,
			AccessRole: "owner",
		})
	}

	var outEvents []calendar.Event
	for _, le := range events {
		outEvents = append(outEvents, expandLocalEvent(le, start, end)...)
	}

	return outCals, outEvents
}

// expandLocalEvent materializes a local event within [start, end). A plain
// event yields at most one entry; a recurring event yields one entry per
// occurrence, each stamped with an occurrence-specific id.
func expandLocalEvent(le store.LocalEvent, start, end time.Time) []calendar.Event {
	base := calendar.Event{
		ID:          le.ID,
		CalendarID:  le.CalendarID,
		Title:       le.Title,
		Description: le.Description,
		Location:    le.Location,
		Start:       le.Start,
		End:         le.End,
		AllDay:      le.AllDay,
		Category:    le.Category,
		Recurrence:  le.Recurrence,
		AssignedTo:  le.AssignedTo,
		Status:      "confirmed",
	}

	rule := recurrenceRule(le)
	if rule == nil {
		if le.End.After(start) && le.Start.Before(end) {
			return []calendar.Event{base}
		}
		return nil
	}

	duration := le.End.Sub(le.Start)
	occurrences := rule.Between(start, end, true)

	out := make([]calendar.Event, 0, len(occurrences))
	for _, occ := range occurrences {
		ev := base
		ev.ID = occurrenceID(le.ID, occ)
		ev.Start = occ
		ev.End = occ.Add(duration)
		out = append(out, ev)
	}
	return out
}

// recurrenceRule parses the event's RRULE line, anchored at the event start.
// Non-RRULE recurrence lines (EXDATE, RDATE) are not interpreted. Returns
// nil for non-recurring or unparseable events; a bad rule degrades to a
// single occurrence rather than poisoning the sync.
func recurrenceRule(le store.LocalEvent) *rrule.RRule {
	for _, line := range le.Recurrence {
		raw, ok := strings.CutPrefix(line, "RRULE:")
		if !ok {
			continue
		}
		opt, err := rrule.StrToROption(raw)
		if err != nil {
			return nil
		}
		opt.Dtstart = le.Start.UTC()
		rule, err := rrule.NewRRule(*opt)
		if err != nil {
			return nil
		}
		return rule
	}
	return nil
}

// occurrenceID derives a stable per-occurrence id from the parent event id
// and the occurrence start, mirroring the iCalendar RECURRENCE-ID format.
func occurrenceID(eventID string, occ time.Time) string {
	return fmt.Sprintf("%s_%s", eventID, occ.UTC().Format("20060102T150405Z"))
}
