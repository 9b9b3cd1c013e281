package server

import (
	"context"
	"net/http"
	"time"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/syncer"
)

// writeProviderDisabled reports that direct provider access is not wired,
// which happens when the server runs without Google credentials.
func writeProviderDisabled(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{
		Error: errorBody{Code: "provider_disabled", Message: "direct provider access is not configured"},
	})
}

// providerClientFor builds a provider client for one of the caller's
// accounts, going through the token manager for a valid access token.
func (s *Server) providerClientFor(ctx context.Context, userID, accountID string) (ProviderClient, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, errPermissionDenied
	}
	token, err := s.tokens.GetValidToken(ctx, account)
	if err != nil {
		return nil, err
	}
	return s.factory(ctx, account.ID, token)
}

// providerEventsFor serves an ad-hoc provider read: events for one calendar
// of one account in an arbitrary window, bypassing the snapshot cache.
func (s *Server) providerEventsFor(w http.ResponseWriter, r *http.Request, userID string) {
	if s.factory == nil {
		writeProviderDisabled(w)
		return
	}

	q := r.URL.Query()
	accountID := q.Get("accountId")
	if accountID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: errorBody{Code: "bad_request", Message: "accountId is required for direct provider reads"},
		})
		return
	}
	calendarID := q.Get("calendarId")
	if calendarID == "" {
		calendarID = "primary"
	}

	timeMin, timeMax := syncer.SyncWindow(time.Now(), syncer.DefaultMonthsAhead)
	if v := q.Get("timeMin"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: errorBody{Code: "bad_request", Message: "timeMin must be RFC 3339"},
			})
			return
		}
		timeMin = t
	}
	if v := q.Get("timeMax"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: errorBody{Code: "bad_request", Message: "timeMax must be RFC 3339"},
			})
			return
		}
		timeMax = t
	}

	client, err := s.providerClientFor(r.Context(), userID, accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := client.ListEvents(r.Context(), calendarID, timeMin, timeMax)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []calendar.Event{}
	}
	writeJSON(w, http.StatusOK, map[string][]calendar.Event{"events": events})
}

// providerCreateFor writes an event straight to one account's calendar,
// without going through the household-aware mutation path.
func (s *Server) providerCreateFor(w http.ResponseWriter, r *http.Request, userID string, req createEventRequest) {
	if s.factory == nil {
		writeProviderDisabled(w)
		return
	}
	calendarID := req.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	client, err := s.providerClientFor(r.Context(), userID, req.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	ev, err := client.InsertEvent(r.Context(), calendarID, req.Event)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) providerUpdateFor(w http.ResponseWriter, r *http.Request, userID, eventID string, req updateEventRequest) {
	if s.factory == nil {
		writeProviderDisabled(w)
		return
	}
	calendarID := req.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	client, err := s.providerClientFor(r.Context(), userID, req.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	ev, err := client.PatchEvent(r.Context(), calendarID, eventID, req.Event)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) providerDeleteFor(w http.ResponseWriter, r *http.Request, userID, accountID, eventID string) {
	if s.factory == nil {
		writeProviderDisabled(w)
		return
	}
	calendarID := r.URL.Query().Get("calendarId")
	if calendarID == "" {
		calendarID = "primary"
	}
	client, err := s.providerClientFor(r.Context(), userID, accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	err = client.DeleteEvent(r.Context(), calendarID, eventID)
	if err != nil && !calendar.IsNotFound(err) {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
