package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/attribution"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/instrumentation"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/logging"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/tokens"
)

// TokenProvider hands out valid access tokens for provider accounts.
type TokenProvider interface {
	GetValidToken(ctx context.Context, account *store.Account) (string, error)
}

// ProviderClient is the read side of a provider calendar API, bound to one
// account.
type ProviderClient interface {
	ListCalendars(ctx context.Context) ([]calendar.Calendar, error)
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]calendar.Event, error)
}

// ClientFactory builds a provider client for an account from a ready access
// token.
type ClientFactory func(ctx context.Context, accountID, accessToken string) (ProviderClient, error)

// Store is the persistence surface a sync cycle needs.
type Store interface {
	ListAccounts(ctx context.Context, userID string) ([]store.Account, error)
	ListMembers(ctx context.Context, userID string) ([]store.Member, error)
	ListLocalCalendars(ctx context.Context, userID string) ([]store.LocalCalendar, error)
	ListLocalEvents(ctx context.Context, userID string) ([]store.LocalEvent, error)
	SaveSnapshot(ctx context.Context, userID string, snap *calendar.Snapshot) error
}

// Orchestrator coordinates full sync cycles for users.
type Orchestrator struct {
	store       Store
	tokens      TokenProvider
	newClient   ClientFactory
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	monthsAhead int
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics attaches a metrics recorder for sync outcomes.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithMonthsAhead overrides how far beyond the current month syncs fetch.
func WithMonthsAhead(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.monthsAhead = n
		}
	}
}

// withClock overrides the clock. Test hook.
func withClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates a sync orchestrator.
func NewOrchestrator(st Store, tp TokenProvider, factory ClientFactory, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		store:       st,
		tokens:      tp,
		newClient:   factory,
		logger:      logger,
		monthsAhead: DefaultMonthsAhead,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// accountResult holds the fetch outcome for one provider account.
type accountResult struct {
	calendars []calendar.Calendar
	events    []calendar.Event
	skipped   bool
}

// SyncUser runs one full sync cycle for a user and returns the snapshot it
// stored. Provider accounts are fetched concurrently; an account that cannot
// produce data is skipped and the rest of the cycle proceeds. The merge
// order is fixed by account creation order, so identical inputs always
// produce an identically ordered snapshot.
func (o *Orchestrator) SyncUser(ctx context.Context, userID string) (*calendar.Snapshot, error) {
	started := o.now()
	log := o.logger.With(logging.Operation("sync"), slog.String("user_id", userID))

	snap, err := o.syncUser(ctx, log, userID)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	if o.metrics != nil {
		o.metrics.RecordSyncCycle(ctx, status, o.now().Sub(started))
	}
	if err != nil {
		log.Error("sync cycle failed", logging.Err(err))
		return nil, err
	}

	log.Info("sync cycle complete",
		slog.Int("calendars", len(snap.Calendars)),
		slog.Int("events", len(snap.Events)),
		slog.Duration(logging.KeyDuration, o.now().Sub(started)))
	return snap, nil
}

func (o *Orchestrator) syncUser(ctx context.Context, log *slog.Logger, userID string) (*calendar.Snapshot, error) {
	accounts, err := o.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	members, err := o.store.ListMembers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	localCals, err := o.store.ListLocalCalendars(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing local calendars: %w", err)
	}
	localEvents, err := o.store.ListLocalEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing local events: %w", err)
	}

	timeMin, timeMax := SyncWindow(o.now(), o.monthsAhead)

	// One fetch per account, merged back in account order.
	results := make([]accountResult, len(accounts))
	var wg sync.WaitGroup
	for i := range accounts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = o.syncAccount(ctx, log, &accounts[i], timeMin, timeMax)
		}(i)
	}
	wg.Wait()

	snap := calendar.NewSnapshot()
	for _, res := range results {
		if res.skipped {
			continue
		}
		snap.Calendars = append(snap.Calendars, res.calendars...)
		snap.Events = append(snap.Events, res.events...)
	}

	cals, events := materializeLocal(localCals, localEvents, timeMin, timeMax)
	snap.Calendars = append(snap.Calendars, cals...)
	snap.Events = append(snap.Events, events...)

	resolver := attribution.NewResolver(members, accounts)
	snap.Events = resolver.Attribute(snap.Events)
	snap.LastSyncedAt = o.now().UTC()

	if err := o.store.SaveSnapshot(ctx, userID, snap); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	return snap, nil
}

// syncAccount fetches one account's calendars and events. Any auth or
// provider failure turns into a skip; a calendar whose events cannot be
// fetched stays listed with its events omitted.
func (o *Orchestrator) syncAccount(ctx context.Context, log *slog.Logger, account *store.Account, timeMin, timeMax time.Time) accountResult {
	alog := log.With(logging.Account(account.ID), logging.Provider(account.Provider))

	token, err := o.tokens.GetValidToken(ctx, account)
	if err != nil {
		reason := instrumentation.SkipReasonAuth
		switch err.(type) {
		case *tokens.ReauthRequiredError:
			alog.Warn("skipping account, re-authorization required", logging.Err(err))
		case *tokens.TransientAuthError:
			alog.Warn("skipping account, transient auth failure", logging.Err(err))
		default:
			alog.Warn("skipping account, token unavailable", logging.Err(err))
		}
		o.recordSkip(ctx, reason)
		return accountResult{skipped: true}
	}

	client, err := o.newClient(ctx, account.ID, token)
	if err != nil {
		alog.Warn("skipping account, client setup failed", logging.Err(err))
		o.recordSkip(ctx, instrumentation.SkipReasonProvider)
		return accountResult{skipped: true}
	}

	calendars, err := client.ListCalendars(ctx)
	if err != nil {
		alog.Warn("skipping account, calendar list failed", logging.Err(err))
		o.recordSkip(ctx, instrumentation.SkipReasonProvider)
		return accountResult{skipped: true}
	}

	res := accountResult{calendars: calendars}
	for _, cal := range calendars {
		events, err := client.ListEvents(ctx, cal.ID, timeMin, timeMax)
		if err != nil {
			alog.Warn("skipping calendar, event list failed",
				logging.Calendar(cal.ID), logging.Err(err))
			continue
		}
		res.events = append(res.events, events...)
	}
	return res
}

func (o *Orchestrator) recordSkip(ctx context.Context, reason string) {
	if o.metrics != nil {
		o.metrics.RecordAccountSkipped(ctx, reason)
	}
}
