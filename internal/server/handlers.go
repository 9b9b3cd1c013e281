package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/logging"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
)

// displayDataResponse is what a wall display renders from: who is in the
// household plus the aggregated calendar snapshot.
type displayDataResponse struct {
	Display   displayInfo         `json:"display"`
	Members   []store.Member      `json:"members"`
	Accounts  []store.Account     `json:"accounts"`
	Calendars []calendar.Calendar `json:"calendars"`
	Events    []calendar.Event    `json:"events"`
	SyncedAt  time.Time           `json:"lastSyncedAt"`
}

type displayInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type eventsResponse struct {
	Calendars []calendar.Calendar `json:"calendars"`
	Events    []calendar.Event    `json:"events"`
	SyncedAt  time.Time           `json:"lastSyncedAt"`
}

// createEventRequest creates an event. With AccountID set the write goes
// straight to that provider account; without it the household-aware
// mutation path picks the account.
type createEventRequest struct {
	AccountID  string              `json:"accountId,omitempty"`
	CalendarID string              `json:"calendarId,omitempty"`
	Event      calendar.EventInput `json:"event"`
}

type updateEventRequest struct {
	AccountID  string              `json:"accountId,omitempty"`
	CalendarID string              `json:"calendarId,omitempty"`
	Event      calendar.EventInput `json:"event"`
}

type authCallbackRequest struct {
	Code     string `json:"code"`
	MemberID string `json:"memberId,omitempty"`
}

// handleAuthURL returns the Google consent URL. No auth required; the URL
// is useless without completing the flow as an authenticated user.
func (s *Server) handleAuthURL(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: errorBody{Code: "oauth_disabled", Message: "account connection is not configured"},
		})
		return
	}
	state := uuid.NewString()
	writeJSON(w, http.StatusOK, map[string]string{
		"url":   s.oauth.AuthURL(state),
		"state": state,
	})
}

// handleAuthCallback finishes the consent flow: exchanges the code, labels
// the account with its email, and stores it for the calling user.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if p.isDisplay() {
		writeError(w, errPermissionDenied)
		return
	}
	if s.oauth == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: errorBody{Code: "oauth_disabled", Message: "account connection is not configured"},
		})
		return
	}

	var req authCallbackRequest
	if err := decodeJSON(r, &req); err != nil || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: errorBody{Code: "bad_request", Message: "authorization code is required"},
		})
		return
	}

	ctx := r.Context()

	// Resolve the optional member link up front so a bad member id fails
	// the request before any tokens are stored.
	var member *store.Member
	if req.MemberID != "" {
		m, err := s.store.GetMember(ctx, req.MemberID)
		if err != nil {
			writeError(w, err)
			return
		}
		if m.UserID != p.userID {
			writeError(w, errPermissionDenied)
			return
		}
		member = m
	}

	tok, err := s.oauth.Exchange(ctx, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	email, err := s.oauth.FetchEmail(ctx, tok)
	if err != nil {
		writeError(w, err)
		return
	}

	account := &store.Account{
		ID:           uuid.NewString(),
		UserID:       p.userID,
		Provider:     calendar.ProviderGoogle,
		Email:        email,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenExpiry:  tok.Expiry,
		Scopes:       s.oauth.Scopes(),
	}
	if err := s.store.SaveAccount(ctx, account); err != nil {
		writeError(w, err)
		return
	}

	if member != nil {
		member.ConnectedAccounts = append(member.ConnectedAccounts, store.ConnectedAccount{
			AccountID: account.ID,
			Email:     email,
		})
		if err := s.store.SaveMember(ctx, member); err != nil {
			writeError(w, err)
			return
		}
	}

	s.logger.Info("account connected",
		logging.Account(account.ID),
		slog.String("user_hash", logging.AnonymizeEmail(email)))
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	accounts, err := s.store.ListAccounts(r.Context(), p.userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if accounts == nil {
		accounts = []store.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleDisconnectAccount(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if p.isDisplay() {
		writeError(w, errPermissionDenied)
		return
	}

	accountID := r.PathValue("accountID")
	account, err := s.store.GetAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	if account.UserID != p.userID {
		writeError(w, errPermissionDenied)
		return
	}
	if err := s.store.DeleteAccount(r.Context(), accountID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSync triggers a full sync cycle and reports what it aggregated.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	s.syncFor(w, r, p.userID)
}

func (s *Server) handleDisplaySync(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	ownerID, err := s.resolveDisplayScope(r.Context(), p, r.PathValue("displayID"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.syncFor(w, r, ownerID)
}

func (s *Server) syncFor(w http.ResponseWriter, r *http.Request, userID string) {
	snap, err := s.syncer.SyncUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calendar.SyncResult{
		Calendars: len(snap.Calendars),
		Events:    len(snap.Events),
	})
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	q := r.URL.Query()
	if q.Get("accountId") != "" || q.Get("calendarId") != "" || q.Get("timeMin") != "" || q.Get("timeMax") != "" {
		s.providerEventsFor(w, r, p.userID)
		return
	}
	s.eventsFor(w, r, p.userID)
}

func (s *Server) handleDisplayEvents(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	ownerID, err := s.resolveDisplayScope(r.Context(), p, r.PathValue("displayID"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.eventsFor(w, r, ownerID)
}

func (s *Server) eventsFor(w http.ResponseWriter, r *http.Request, userID string) {
	snap := s.gateway.GetFreshSnapshot(r.Context(), userID)
	writeJSON(w, http.StatusOK, eventsResponse{
		Calendars: snap.Calendars,
		Events:    snap.Events,
		SyncedAt:  snap.LastSyncedAt,
	})
}

// handleDisplayData serves everything a display renders in one response.
func (s *Server) handleDisplayData(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	displayID := r.PathValue("displayID")
	ownerID, err := s.resolveDisplayScope(r.Context(), p, displayID)
	if err != nil {
		writeError(w, err)
		return
	}

	display, err := s.store.GetDisplay(r.Context(), displayID)
	if err != nil {
		writeError(w, err)
		return
	}
	members, err := s.store.ListMembers(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if members == nil {
		members = []store.Member{}
	}
	accounts, err := s.store.ListAccounts(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if accounts == nil {
		accounts = []store.Account{}
	}

	snap := s.gateway.GetFreshSnapshot(r.Context(), ownerID)
	writeJSON(w, http.StatusOK, displayDataResponse{
		Display:   displayInfo{ID: display.ID, Name: display.Name},
		Members:   members,
		Accounts:  accounts,
		Calendars: snap.Calendars,
		Events:    snap.Events,
		SyncedAt:  snap.LastSyncedAt,
	})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	s.createEventFor(w, r, p.userID)
}

func (s *Server) handleDisplayCreateEvent(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	ownerID, err := s.resolveDisplayScope(r.Context(), p, r.PathValue("displayID"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.createEventFor(w, r, ownerID)
}

func (s *Server) createEventFor(w http.ResponseWriter, r *http.Request, userID string) {
	var req createEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: errorBody{Code: "bad_request", Message: err.Error()},
		})
		return
	}
	if req.AccountID != "" {
		s.providerCreateFor(w, r, userID, req)
		return
	}
	ev, err := s.mutator.CreateEvent(r.Context(), userID, req.CalendarID, req.Event)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	s.updateEventFor(w, r, p.userID, r.PathValue("eventID"))
}

func (s *Server) handleDisplayUpdateEvent(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	ownerID, err := s.resolveDisplayScope(r.Context(), p, r.PathValue("displayID"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.updateEventFor(w, r, ownerID, r.PathValue("eventID"))
}

func (s *Server) updateEventFor(w http.ResponseWriter, r *http.Request, userID, eventID string) {
	var req updateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: errorBody{Code: "bad_request", Message: err.Error()},
		})
		return
	}
	if req.AccountID != "" {
		s.providerUpdateFor(w, r, userID, eventID, req)
		return
	}
	ev, err := s.mutator.UpdateEvent(r.Context(), userID, eventID, req.Event)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	s.deleteEventFor(w, r, p.userID, r.PathValue("eventID"))
}

func (s *Server) handleDisplayDeleteEvent(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	ownerID, err := s.resolveDisplayScope(r.Context(), p, r.PathValue("displayID"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.deleteEventFor(w, r, ownerID, r.PathValue("eventID"))
}

func (s *Server) deleteEventFor(w http.ResponseWriter, r *http.Request, userID, eventID string) {
	if accountID := r.URL.Query().Get("accountId"); accountID != "" {
		s.providerDeleteFor(w, r, userID, accountID, eventID)
		return
	}
	if err := s.mutator.DeleteEvent(r.Context(), userID, eventID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
