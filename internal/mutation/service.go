package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/instrumentation"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/logging"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
)

// Store is the persistence surface mutations need.
type Store interface {
	GetSnapshot(ctx context.Context, userID string) (*calendar.Snapshot, error)
	SaveSnapshot(ctx context.Context, userID string, snap *calendar.Snapshot) error
	ListAccounts(ctx context.Context, userID string) ([]store.Account, error)
	ListMembers(ctx context.Context, userID string) ([]store.Member, error)
	GetLocalCalendar(ctx context.Context, id string) (*store.LocalCalendar, error)
	GetLocalEvent(ctx context.Context, id string) (*store.LocalEvent, error)
	SaveLocalEvent(ctx context.Context, e *store.LocalEvent) error
	DeleteLocalEvent(ctx context.Context, id string) error
}

// WriteClient is the write side of a provider calendar API, bound to one
// account.
type WriteClient interface {
	InsertEvent(ctx context.Context, calendarID string, input calendar.EventInput) (*calendar.Event, error)
	PatchEvent(ctx context.Context, calendarID, eventID string, input calendar.EventInput) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// ClientFactory builds a provider write client for an account.
type ClientFactory func(ctx context.Context, accountID, accessToken string) (WriteClient, error)

// TokenProvider hands out valid access tokens for provider accounts.
type TokenProvider interface {
	GetValidToken(ctx context.Context, account *store.Account) (string, error)
}

// Syncer reconciles the snapshot after a successful write.
type Syncer interface {
	SyncUser(ctx context.Context, userID string) (*calendar.Snapshot, error)
}

// Service performs household-aware event writes.
type Service struct {
	store     Store
	tokens    TokenProvider
	newClient ClientFactory
	syncer    Syncer
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches a metrics recorder for mutation outcomes.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a mutation service.
func NewService(st Store, tp TokenProvider, factory ClientFactory, sy Syncer, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:     st,
		tokens:    tp,
		newClient: factory,
		syncer:    sy,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEvent creates an event on the given calendar, or on a calendar
// resolved from the input's assignment when calendarID is empty. The created
// event is returned with its durable id.
func (s *Service) CreateEvent(ctx context.Context, userID, calendarID string, input calendar.EventInput) (*calendar.Event, error) {
	log := s.logger.With(logging.Operation("create_event"), slog.String("user_id", userID))

	if calendar.IsLocalCalendarID(calendarID) {
		return s.createLocalEvent(ctx, log, userID, calendarID, input)
	}

	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	snap, rollback, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	account, err := s.resolveAccount(ctx, userID, calendarID, input.AssignedTo, accounts, snap)
	if err != nil {
		s.recordMutation(ctx, instrumentation.MutationCreate, instrumentation.StatusError)
		return nil, err
	}
	log = log.With(logging.Account(account.ID))

	// Optimistic apply: the event appears locally before the provider
	// confirms it, under a placeholder id the reconciling sync replaces.
	optimistic := eventFromInput(input)
	optimistic.ID = "pending-" + uuid.NewString()
	optimistic.CalendarID = displayCalendarID(calendarID, account)
	optimistic.AccountID = account.ID
	snap.Events = append(snap.Events, optimistic)
	if err := s.store.SaveSnapshot(ctx, userID, snap); err != nil {
		return nil, fmt.Errorf("applying optimistic create: %w", err)
	}

	created, err := s.withClient(ctx, account, func(c WriteClient) (*calendar.Event, error) {
		return c.InsertEvent(ctx, providerCalendarID(calendarID), input)
	})
	if err != nil {
		s.rollback(ctx, log, userID, rollback)
		s.recordMutation(ctx, instrumentation.MutationCreate, instrumentation.StatusError)
		return nil, fmt.Errorf("provider create failed: %w", err)
	}

	created.ID = calendar.CompositeEventID(account.Provider, account.ID, created.ID)
	created.CalendarID = optimistic.CalendarID
	created.AssignedTo = input.AssignedTo

	s.recordMutation(ctx, instrumentation.MutationCreate, instrumentation.StatusSuccess)
	s.reconcile(ctx, log, userID)
	return created, nil
}

// UpdateEvent applies a partial update to an event, local or provider-side.
func (s *Service) UpdateEvent(ctx context.Context, userID, eventID string, input calendar.EventInput) (*calendar.Event, error) {
	log := s.logger.With(logging.Operation("update_event"), slog.String("user_id", userID))

	if local, err := s.store.GetLocalEvent(ctx, eventID); err == nil {
		return s.updateLocalEvent(ctx, log, userID, local, input)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up local event: %w", err)
	}

	target, err := s.resolveTarget(ctx, userID, eventID)
	if err != nil {
		s.recordMutation(ctx, instrumentation.MutationUpdate, instrumentation.StatusError)
		return nil, err
	}
	log = log.With(logging.Account(target.account.ID))

	snap, rollback, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Optimistic apply: replace the event in the snapshot.
	for i := range snap.Events {
		if snap.Events[i].ID == eventID {
			applyInput(&snap.Events[i], input)
			break
		}
	}
	if err := s.store.SaveSnapshot(ctx, userID, snap); err != nil {
		return nil, fmt.Errorf("applying optimistic update: %w", err)
	}

	updated, err := s.withClient(ctx, target.account, func(c WriteClient) (*calendar.Event, error) {
		return c.PatchEvent(ctx, target.calendarID, target.providerEventID, input)
	})
	if err != nil {
		s.rollback(ctx, log, userID, rollback)
		s.recordMutation(ctx, instrumentation.MutationUpdate, instrumentation.StatusError)
		return nil, fmt.Errorf("provider update failed: %w", err)
	}

	updated.ID = eventID
	s.recordMutation(ctx, instrumentation.MutationUpdate, instrumentation.StatusSuccess)
	s.reconcile(ctx, log, userID)
	return updated, nil
}

// DeleteEvent removes an event, local or provider-side. Deleting an event
// the provider no longer has is success, not an error; the remote state
// already matches the intent.
func (s *Service) DeleteEvent(ctx context.Context, userID, eventID string) error {
	log := s.logger.With(logging.Operation("delete_event"), slog.String("user_id", userID))

	if _, err := s.store.GetLocalEvent(ctx, eventID); err == nil {
		return s.deleteLocalEvent(ctx, log, userID, eventID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("looking up local event: %w", err)
	}

	target, err := s.resolveTarget(ctx, userID, eventID)
	if err != nil {
		s.recordMutation(ctx, instrumentation.MutationDelete, instrumentation.StatusError)
		return err
	}
	log = log.With(logging.Account(target.account.ID))

	snap, rollback, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return err
	}

	// Optimistic apply: remove the event from the snapshot.
	filtered := snap.Events[:0]
	for _, ev := range snap.Events {
		if ev.ID != eventID {
			filtered = append(filtered, ev)
		}
	}
	snap.Events = filtered
	if err := s.store.SaveSnapshot(ctx, userID, snap); err != nil {
		return fmt.Errorf("applying optimistic delete: %w", err)
	}

	_, err = s.withClient(ctx, target.account, func(c WriteClient) (*calendar.Event, error) {
		return nil, c.DeleteEvent(ctx, target.calendarID, target.providerEventID)
	})
	if err != nil {
		if calendar.IsNotFound(err) {
			log.Debug("event already gone remotely, treating delete as success")
			s.recordMutation(ctx, instrumentation.MutationDelete, instrumentation.StatusSuccess)
			s.reconcile(ctx, log, userID)
			return nil
		}
		s.rollback(ctx, log, userID, rollback)
		s.recordMutation(ctx, instrumentation.MutationDelete, instrumentation.StatusError)
		return fmt.Errorf("provider delete failed: %w", err)
	}

	s.recordMutation(ctx, instrumentation.MutationDelete, instrumentation.StatusSuccess)
	s.reconcile(ctx, log, userID)
	return nil
}

// target identifies the provider-side location of an existing event.
type target struct {
	account         *store.Account
	calendarID      string
	providerEventID string
}

// resolveTarget recovers the owning account and the provider-native event id
// for an event referenced by its local id. Composite ids carry both pieces;
// anything else is looked up in the snapshot.
func (s *Service) resolveTarget(ctx context.Context, userID, eventID string) (*target, error) {
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	// Composite id: "{provider}-{accountId}-{providerEventId}". Account ids
	// contain dashes, so match against known accounts instead of splitting.
	for i := range accounts {
		if providerEventID, ok := calendar.MatchCompositeEventID(eventID, accounts[i].Provider, accounts[i].ID); ok {
			calendarID := "primary"
			if snap, err := s.store.GetSnapshot(ctx, userID); err == nil {
				for _, ev := range snap.Events {
					if ev.ID == eventID && ev.CalendarID != "" {
						calendarID = providerCalendarID(ev.CalendarID)
					}
				}
			}
			return &target{account: &accounts[i], calendarID: calendarID, providerEventID: providerEventID}, nil
		}
	}

	// Provider-native id: find the event in the snapshot and its account.
	snap, err := s.store.GetSnapshot(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, eventID)
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	for _, ev := range snap.Events {
		if ev.ID != eventID {
			continue
		}
		for i := range accounts {
			if accounts[i].ID == ev.AccountID {
				return &target{
					account:         &accounts[i],
					calendarID:      providerCalendarID(ev.CalendarID),
					providerEventID: ev.ID,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, eventID)
}

// resolveAccount picks the account a create lands on: the calendar's owner
// when the calendar id names one, else the first account linked to the first
// assigned member, else any connected account of the target provider.
func (s *Service) resolveAccount(ctx context.Context, userID, calendarID string, assignedTo []string, accounts []store.Account, snap *calendar.Snapshot) (*store.Account, error) {
	if accountID, ok := calendar.AccountFromCalendarID(calendarID); ok {
		if a := accountByID(accounts, accountID); a != nil {
			return a, nil
		}
		return nil, fmt.Errorf("%w: calendar %s names an unknown account", ErrNoAccountAvailable, calendarID)
	}

	if calendarID != "" {
		for _, cal := range snap.Calendars {
			if cal.ID == calendarID && cal.AccountID != "" {
				if a := accountByID(accounts, cal.AccountID); a != nil {
					return a, nil
				}
			}
		}
	}

	if len(assignedTo) > 0 {
		members, err := s.store.ListMembers(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("listing members: %w", err)
		}
		if a := accountForMember(assignedTo[0], members, accounts); a != nil {
			return a, nil
		}
	}

	for i := range accounts {
		if accounts[i].Provider == calendar.ProviderGoogle {
			return &accounts[i], nil
		}
	}
	return nil, ErrNoAccountAvailable
}

// accountForMember finds the first connected account of a member, by id or
// by email.
func accountForMember(memberID string, members []store.Member, accounts []store.Account) *store.Account {
	for _, m := range members {
		if m.ID != memberID {
			continue
		}
		for _, link := range m.ConnectedAccounts {
			if link.AccountID != "" {
				if a := accountByID(accounts, link.AccountID); a != nil {
					return a
				}
			}
			if link.Email != "" {
				for i := range accounts {
					if strings.EqualFold(accounts[i].Email, link.Email) {
						return &accounts[i]
					}
				}
			}
		}
	}
	return nil
}

func accountByID(accounts []store.Account, id string) *store.Account {
	for i := range accounts {
		if accounts[i].ID == id {
			return &accounts[i]
		}
	}
	return nil
}

// createLocalEvent stores an event on a local family calendar. No provider
// round trip, so no rollback machinery either.
func (s *Service) createLocalEvent(ctx context.Context, log *slog.Logger, userID, calendarID string, input calendar.EventInput) (*calendar.Event, error) {
	if _, err := s.store.GetLocalCalendar(ctx, calendarID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.recordMutation(ctx, instrumentation.MutationCreate, instrumentation.StatusError)
			return nil, fmt.Errorf("%w: calendar %s", ErrNotFound, calendarID)
		}
		return nil, fmt.Errorf("looking up local calendar: %w", err)
	}

	le := &store.LocalEvent{
		ID:          uuid.NewString(),
		CalendarID:  calendarID,
		UserID:      userID,
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Start:       input.Start,
		End:         input.End,
		AllDay:      input.AllDay,
		Category:    input.Category,
		Recurrence:  input.Recurrence,
		AssignedTo:  input.AssignedTo,
	}
	if err := s.store.SaveLocalEvent(ctx, le); err != nil {
		s.recordMutation(ctx, instrumentation.MutationCreate, instrumentation.StatusError)
		return nil, fmt.Errorf("saving local event: %w", err)
	}

	s.recordMutation(ctx, instrumentation.MutationCreate, instrumentation.StatusSuccess)
	s.reconcile(ctx, log, userID)

	ev := eventFromInput(input)
	ev.ID = le.ID
	ev.CalendarID = calendarID
	ev.Status = "confirmed"
	return &ev, nil
}

func (s *Service) updateLocalEvent(ctx context.Context, log *slog.Logger, userID string, le *store.LocalEvent, input calendar.EventInput) (*calendar.Event, error) {
	le.Title = input.Title
	le.Description = input.Description
	le.Location = input.Location
	le.Start = input.Start
	le.End = input.End
	le.AllDay = input.AllDay
	le.Category = input.Category
	le.Recurrence = input.Recurrence
	le.AssignedTo = input.AssignedTo

	if err := s.store.SaveLocalEvent(ctx, le); err != nil {
		s.recordMutation(ctx, instrumentation.MutationUpdate, instrumentation.StatusError)
		return nil, fmt.Errorf("saving local event: %w", err)
	}

	s.recordMutation(ctx, instrumentation.MutationUpdate, instrumentation.StatusSuccess)
	s.reconcile(ctx, log, userID)

	ev := eventFromInput(input)
	ev.ID = le.ID
	ev.CalendarID = le.CalendarID
	ev.Status = "confirmed"
	return &ev, nil
}

func (s *Service) deleteLocalEvent(ctx context.Context, log *slog.Logger, userID, eventID string) error {
	if err := s.store.DeleteLocalEvent(ctx, eventID); err != nil {
		s.recordMutation(ctx, instrumentation.MutationDelete, instrumentation.StatusError)
		return fmt.Errorf("deleting local event: %w", err)
	}
	s.recordMutation(ctx, instrumentation.MutationDelete, instrumentation.StatusSuccess)
	s.reconcile(ctx, log, userID)
	return nil
}

// withClient resolves a token and client for the account, then runs fn.
func (s *Service) withClient(ctx context.Context, account *store.Account, fn func(WriteClient) (*calendar.Event, error)) (*calendar.Event, error) {
	token, err := s.tokens.GetValidToken(ctx, account)
	if err != nil {
		return nil, err
	}
	client, err := s.newClient(ctx, account.ID, token)
	if err != nil {
		return nil, err
	}
	return fn(client)
}

// loadSnapshot reads the snapshot plus a deep copy to restore on failure.
// A user with no snapshot yet mutates against an empty one.
func (s *Service) loadSnapshot(ctx context.Context, userID string) (snap, rollback *calendar.Snapshot, err error) {
	snap, err = s.store.GetSnapshot(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("reading snapshot: %w", err)
		}
		snap = calendar.NewSnapshot()
	}
	return snap, snap.Clone(), nil
}

func (s *Service) rollback(ctx context.Context, log *slog.Logger, userID string, rollback *calendar.Snapshot) {
	if err := s.store.SaveSnapshot(ctx, userID, rollback); err != nil {
		log.Error("failed to roll back optimistic change", logging.Err(err))
	}
}

// reconcile triggers a full sync after a successful write. Reconciliation is
// best effort; the write already succeeded and the snapshot self-heals on
// the next cycle if this one fails.
func (s *Service) reconcile(ctx context.Context, log *slog.Logger, userID string) {
	if s.syncer == nil {
		return
	}
	if _, err := s.syncer.SyncUser(ctx, userID); err != nil {
		log.Warn("post-mutation sync failed", logging.Err(err))
	}
}

func (s *Service) recordMutation(ctx context.Context, op, status string) {
	if s.metrics != nil {
		s.metrics.RecordEventMutation(ctx, op, status)
	}
}

// providerCalendarID maps a local calendar reference to what the provider
// expects. Synthetic primary ids and the empty id both mean the account's
// primary calendar.
func providerCalendarID(id string) string {
	if id == "" {
		return "primary"
	}
	if _, ok := calendar.AccountFromCalendarID(id); ok {
		return "primary"
	}
	return id
}

// displayCalendarID is the calendar id stored in the snapshot for a newly
// created event.
func displayCalendarID(calendarID string, account *store.Account) string {
	if calendarID == "" {
		return calendar.PrimaryCalendarID(account.Provider, account.ID)
	}
	return calendarID
}

func eventFromInput(input calendar.EventInput) calendar.Event {
	return calendar.Event{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Start:       input.Start,
		End:         input.End,
		AllDay:      input.AllDay,
		Category:    input.Category,
		Recurrence:  input.Recurrence,
		AssignedTo:  input.AssignedTo,
	}
}

func applyInput(ev *calendar.Event, input calendar.EventInput) {
	ev.Title = input.Title
	ev.Description = input.Description
	ev.Location = input.Location
	if !input.Start.IsZero() {
		ev.Start = input.Start
	}
	if !input.End.IsZero() {
		ev.End = input.End
	}
	ev.AllDay = input.AllDay
	if input.Category != "" {
		ev.Category = input.Category
	}
	if len(input.Recurrence) > 0 {
		ev.Recurrence = input.Recurrence
	}
	if len(input.AssignedTo) > 0 {
		ev.AssignedTo = input.AssignedTo
	}
}
