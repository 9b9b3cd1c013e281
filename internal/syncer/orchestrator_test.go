package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/tokens"
)

type fakeSyncStore struct {
	mu          sync.Mutex
	accounts    []store.Account
	members     []store.Member
	localCals   []store.LocalCalendar
	localEvents []store.LocalEvent
	saved       *calendar.Snapshot
	saveCount   int
}

func (f *fakeSyncStore) ListAccounts(ctx context.Context, userID string) ([]store.Account, error) {
	return f.accounts, nil
}

func (f *fakeSyncStore) ListMembers(ctx context.Context, userID string) ([]store.Member, error) {
	return f.members, nil
}

func (f *fakeSyncStore) ListLocalCalendars(ctx context.Context, userID string) ([]store.LocalCalendar, error) {
	return f.localCals, nil
}

func (f *fakeSyncStore) ListLocalEvents(ctx context.Context, userID string) ([]store.LocalEvent, error) {
	return f.localEvents, nil
}

func (f *fakeSyncStore) SaveSnapshot(ctx context.Context, userID string, snap *calendar.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = snap
	f.saveCount++
	return nil
}

type fakeTokens struct {
	failFor map[string]error
}

func (f *fakeTokens) GetValidToken(ctx context.Context, account *store.Account) (string, error) {
	if err, ok := f.failFor[account.ID]; ok {
		return "", err
	}
	return "token-" + account.ID, nil
}

type fakeProviderClient struct {
	calendars   []calendar.Calendar
	events      map[string][]calendar.Event
	eventErrors map[string]error
	listErr     error
}

func (f *fakeProviderClient) ListCalendars(ctx context.Context) ([]calendar.Calendar, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.calendars, nil
}

func (f *fakeProviderClient) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]calendar.Event, error) {
	if err, ok := f.eventErrors[calendarID]; ok {
		return nil, err
	}
	return f.events[calendarID], nil
}

func factoryFor(clients map[string]*fakeProviderClient) ClientFactory {
	return func(ctx context.Context, accountID, accessToken string) (ProviderClient, error) {
		c, ok := clients[accountID]
		if !ok {
			return nil, errors.New("unknown account")
		}
		return c, nil
	}
}

func testAccount(id string) store.Account {
	return store.Account{ID: id, UserID: "u1", Provider: "google", Email: id + "@gmail.com"}
}

func TestSyncMergesAccountsInOrder(t *testing.T) {
	st := &fakeSyncStore{accounts: []store.Account{testAccount("a1"), testAccount("a2")}}
	clients := map[string]*fakeProviderClient{
		"a1": {
			calendars: []calendar.Calendar{{ID: "c1", AccountID: "a1"}},
			events:    map[string][]calendar.Event{"c1": {{ID: "e1", CalendarID: "c1", AccountID: "a1"}}},
		},
		"a2": {
			calendars: []calendar.Calendar{{ID: "c2", AccountID: "a2"}},
			events:    map[string][]calendar.Event{"c2": {{ID: "e2", CalendarID: "c2", AccountID: "a2"}}},
		},
	}

	o := NewOrchestrator(st, &fakeTokens{}, factoryFor(clients), nil)

	snap, err := o.SyncUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, snap.Calendars, 2)
	assert.Equal(t, "c1", snap.Calendars[0].ID, "account creation order fixes merge order")
	assert.Equal(t, "c2", snap.Calendars[1].ID)
	require.Len(t, snap.Events, 2)
	assert.Equal(t, "e1", snap.Events[0].ID)
	assert.Equal(t, st.saved, snap, "snapshot persisted")
}

func TestSyncSkipsFailingAccount(t *testing.T) {
	st := &fakeSyncStore{accounts: []store.Account{testAccount("a1"), testAccount("a2")}}
	clients := map[string]*fakeProviderClient{
		"a2": {
			calendars: []calendar.Calendar{{ID: "c2", AccountID: "a2"}},
			events:    map[string][]calendar.Event{"c2": {{ID: "e2", CalendarID: "c2", AccountID: "a2"}}},
		},
	}
	tp := &fakeTokens{failFor: map[string]error{
		"a1": &tokens.ReauthRequiredError{AccountID: "a1", Reason: store.AuthErrorInvalidGrant},
	}}

	o := NewOrchestrator(st, tp, factoryFor(clients), nil)

	snap, err := o.SyncUser(context.Background(), "u1")
	require.NoError(t, err, "one bad account never fails the cycle")
	require.Len(t, snap.Calendars, 1)
	assert.Equal(t, "c2", snap.Calendars[0].ID)
}

func TestSyncSkipsCalendarButKeepsAccount(t *testing.T) {
	st := &fakeSyncStore{accounts: []store.Account{testAccount("a1")}}
	clients := map[string]*fakeProviderClient{
		"a1": {
			calendars: []calendar.Calendar{
				{ID: "good", AccountID: "a1"},
				{ID: "bad", AccountID: "a1"},
			},
			events:      map[string][]calendar.Event{"good": {{ID: "e1", CalendarID: "good"}}},
			eventErrors: map[string]error{"bad": errors.New("permission denied")},
		},
	}

	o := NewOrchestrator(st, &fakeTokens{}, factoryFor(clients), nil)

	snap, err := o.SyncUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, snap.Calendars, 2, "failed calendar stays listed")
	assert.Len(t, snap.Events, 1, "its events are omitted")
}

func TestSyncZeroAccountsProducesEmptySnapshot(t *testing.T) {
	st := &fakeSyncStore{}
	o := NewOrchestrator(st, &fakeTokens{}, factoryFor(nil), nil)

	snap, err := o.SyncUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, snap.Calendars)
	assert.Empty(t, snap.Events)
	assert.False(t, snap.LastSyncedAt.IsZero())
	assert.Equal(t, 1, st.saveCount, "empty snapshot still persisted")
}

func TestSyncAttributesEventsToMembers(t *testing.T) {
	st := &fakeSyncStore{
		accounts: []store.Account{testAccount("a1")},
		members: []store.Member{
			{ID: "m1", ConnectedAccounts: []store.ConnectedAccount{{AccountID: "a1"}}},
		},
	}
	clients := map[string]*fakeProviderClient{
		"a1": {
			calendars: []calendar.Calendar{{ID: "c1", AccountID: "a1"}},
			events:    map[string][]calendar.Event{"c1": {{ID: "e1", CalendarID: "c1", AccountID: "a1"}}},
		},
	}

	o := NewOrchestrator(st, &fakeTokens{}, factoryFor(clients), nil)

	snap, err := o.SyncUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, []string{"m1"}, snap.Events[0].AssignedTo)
}

func TestSyncIncludesLocalCalendars(t *testing.T) {
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	st := &fakeSyncStore{
		localCals: []store.LocalCalendar{{ID: "family-1", UserID: "u1", Name: "Family"}},
		localEvents: []store.LocalEvent{{
			ID:         "le1",
			CalendarID: "family-1",
			UserID:     "u1",
			Title:      "Picnic",
			Start:      time.Date(2026, 9, 5, 11, 0, 0, 0, time.UTC),
			End:        time.Date(2026, 9, 5, 14, 0, 0, 0, time.UTC),
		}},
	}

	o := NewOrchestrator(st, &fakeTokens{}, factoryFor(nil), nil, withClock(func() time.Time { return now }))

	snap, err := o.SyncUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, snap.Calendars, 1)
	assert.Equal(t, "family-1", snap.Calendars[0].ID)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "Picnic", snap.Events[0].Title)
}
