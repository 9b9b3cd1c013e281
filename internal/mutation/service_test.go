package mutation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
)

type fakeMutationStore struct {
	snap        *calendar.Snapshot
	accounts    []store.Account
	members     []store.Member
	localCals   map[string]*store.LocalCalendar
	localEvents map[string]*store.LocalEvent
}

func newFakeMutationStore() *fakeMutationStore {
	return &fakeMutationStore{
		snap:        calendar.NewSnapshot(),
		localCals:   make(map[string]*store.LocalCalendar),
		localEvents: make(map[string]*store.LocalEvent),
	}
}

func (f *fakeMutationStore) GetSnapshot(ctx context.Context, userID string) (*calendar.Snapshot, error) {
	if f.snap == nil {
		return nil, store.ErrNotFound
	}
	return f.snap.Clone(), nil
}

func (f *fakeMutationStore) SaveSnapshot(ctx context.Context, userID string, snap *calendar.Snapshot) error {
	f.snap = snap.Clone()
	return nil
}

func (f *fakeMutationStore) ListAccounts(ctx context.Context, userID string) ([]store.Account, error) {
	return f.accounts, nil
}

func (f *fakeMutationStore) ListMembers(ctx context.Context, userID string) ([]store.Member, error) {
	return f.members, nil
}

func (f *fakeMutationStore) GetLocalCalendar(ctx context.Context, id string) (*store.LocalCalendar, error) {
	if c, ok := f.localCals[id]; ok {
		return c, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeMutationStore) GetLocalEvent(ctx context.Context, id string) (*store.LocalEvent, error) {
	if e, ok := f.localEvents[id]; ok {
		return e, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeMutationStore) SaveLocalEvent(ctx context.Context, e *store.LocalEvent) error {
	f.localEvents[e.ID] = e
	return nil
}

func (f *fakeMutationStore) DeleteLocalEvent(ctx context.Context, id string) error {
	delete(f.localEvents, id)
	return nil
}

type fakeMutationTokens struct{}

func (fakeMutationTokens) GetValidToken(ctx context.Context, account *store.Account) (string, error) {
	return "token", nil
}

type fakeWriteClient struct {
	insertErr error
	patchErr  error
	deleteErr error

	insertedCalendar string
	deletedEventID   string
}

func (f *fakeWriteClient) InsertEvent(ctx context.Context, calendarID string, input calendar.EventInput) (*calendar.Event, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.insertedCalendar = calendarID
	return &calendar.Event{ID: "prov-ev-1", Title: input.Title, Start: input.Start, End: input.End}, nil
}

func (f *fakeWriteClient) PatchEvent(ctx context.Context, calendarID, eventID string, input calendar.EventInput) (*calendar.Event, error) {
	if f.patchErr != nil {
		return nil, f.patchErr
	}
	return &calendar.Event{ID: eventID, Title: input.Title}, nil
}

func (f *fakeWriteClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	f.deletedEventID = eventID
	return f.deleteErr
}

type countingSyncer struct {
	calls int
}

func (c *countingSyncer) SyncUser(ctx context.Context, userID string) (*calendar.Snapshot, error) {
	c.calls++
	return calendar.NewSnapshot(), nil
}

func newService(st *fakeMutationStore, client *fakeWriteClient, sy Syncer) *Service {
	factory := func(ctx context.Context, accountID, accessToken string) (WriteClient, error) {
		return client, nil
	}
	return NewService(st, fakeMutationTokens{}, factory, sy, nil)
}

func testInput() calendar.EventInput {
	return calendar.EventInput{
		Title: "Dentist",
		Start: time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC),
	}
}

func TestCreateEventAssignsCompositeID(t *testing.T) {
	st := newFakeMutationStore()
	st.accounts = []store.Account{{ID: "acct-1", UserID: "u1", Provider: "google"}}
	client := &fakeWriteClient{}
	sy := &countingSyncer{}
	svc := newService(st, client, sy)

	ev, err := svc.CreateEvent(context.Background(), "u1", "", testInput())
	require.NoError(t, err)
	assert.Equal(t, "google-acct-1-prov-ev-1", ev.ID)
	assert.Equal(t, "primary", client.insertedCalendar)
	assert.Equal(t, 1, sy.calls, "successful create reconciles via full sync")
}

func TestCreateEventRoutesToCalendarOwner(t *testing.T) {
	st := newFakeMutationStore()
	st.accounts = []store.Account{
		{ID: "acct-1", Provider: "google"},
		{ID: "acct-2", Provider: "google"},
	}
	client := &fakeWriteClient{}
	svc := newService(st, client, &countingSyncer{})

	calID := calendar.PrimaryCalendarID("google", "acct-2")
	ev, err := svc.CreateEvent(context.Background(), "u1", calID, testInput())
	require.NoError(t, err)
	assert.Equal(t, "google-acct-2-prov-ev-1", ev.ID)
}

func TestCreateEventPrefersAssignedMemberAccount(t *testing.T) {
	st := newFakeMutationStore()
	st.accounts = []store.Account{
		{ID: "acct-1", Provider: "google", Email: "parent@gmail.com"},
		{ID: "acct-2", Provider: "google", Email: "kid@gmail.com"},
	}
	st.members = []store.Member{
		{ID: "m-kid", ConnectedAccounts: []store.ConnectedAccount{{AccountID: "acct-2"}}},
	}
	client := &fakeWriteClient{}
	svc := newService(st, client, &countingSyncer{})

	input := testInput()
	input.AssignedTo = []string{"m-kid"}
	ev, err := svc.CreateEvent(context.Background(), "u1", "", input)
	require.NoError(t, err)
	assert.Equal(t, "google-acct-2-prov-ev-1", ev.ID)
}

func TestCreateEventNoAccounts(t *testing.T) {
	st := newFakeMutationStore()
	svc := newService(st, &fakeWriteClient{}, &countingSyncer{})

	_, err := svc.CreateEvent(context.Background(), "u1", "", testInput())
	assert.ErrorIs(t, err, ErrNoAccountAvailable)
}

func TestCreateEventFallbackSkipsForeignProviderAccounts(t *testing.T) {
	st := newFakeMutationStore()
	st.accounts = []store.Account{
		{ID: "acct-ical", Provider: "icloud"},
		{ID: "acct-1", Provider: "google"},
	}
	client := &fakeWriteClient{}
	svc := newService(st, client, &countingSyncer{})

	ev, err := svc.CreateEvent(context.Background(), "u1", "", testInput())
	require.NoError(t, err)
	assert.Equal(t, "google-acct-1-prov-ev-1", ev.ID,
		"fallback picks the first account of the provider being written to")
}

func TestCreateEventNoAccountOfTargetProvider(t *testing.T) {
	st := newFakeMutationStore()
	st.accounts = []store.Account{{ID: "acct-ical", Provider: "icloud"}}
	svc := newService(st, &fakeWriteClient{}, &countingSyncer{})

	_, err := svc.CreateEvent(context.Background(), "u1", "", testInput())
	assert.ErrorIs(t, err, ErrNoAccountAvailable)
}

func TestCreateFailureRestoresSnapshotExactly(t *testing.T) {
	st := newFakeMutationStore()
	st.accounts = []store.Account{{ID: "acct-1", Provider: "google"}}
	st.snap = &calendar.Snapshot{
		Calendars: []calendar.Calendar{{ID: "c1", Name: "Work"}},
		Events: []calendar.Event{
			{ID: "e1", Title: "Existing", AssignedTo: []string{"m1"}},
		},
		LastSyncedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	before := st.snap.Clone()

	client := &fakeWriteClient{insertErr: errors.New("quota exceeded")}
	sy := &countingSyncer{}
	svc := newService(st, client, sy)

	_, err := svc.CreateEvent(context.Background(), "u1", "", testInput())
	require.Error(t, err)
	assert.Equal(t, before, st.snap, "snapshot restored to exact pre-mutation value")
	assert.Zero(t, sy.calls, "no reconcile after a failed write")
}

func TestUpdateFailureRestoresSnapshotExactly(t *testing.T) {
	st := newFakeMutationStore()
	st.accounts = []store.Account{{ID: "acct-1", Provider: "google"}}
	st.snap = &calendar.Snapshot{
		Events: []calendar.Event{
			{ID: "google-acct-1-ev9", CalendarID: "primary", AccountID: "acct-1", Title: "Before"},
		},
	}
	before := st.snap.Clone()

	client := &fakeWriteClient{patchErr: errors.New("backend error")}
	svc := newService(st, client, &countingSyncer{})

	_, err := svc.UpdateEvent(context.Background(), "u1", "google-acct-1-ev9", testInput())
	require.Error(t, err)
	assert.Equal(t, before, st.snap)
}

func TestUpdateEventByCompositeID(t *testing.T) {
	st := newFakeMutationStore()
	st.accounts = []store.Account{{ID: "acct-1", Provider: "google"}}
	client := &fakeWriteClient{}
	sy := &countingSyncer{}
	svc := newService(st, client, sy)

	ev, err := svc.UpdateEvent(context.Background(), "u1", "google-acct-1-ev9", testInput())
	require.NoError(t, err)
	assert.Equal(t, "google-acct-1-ev9", ev.ID, "local id preserved on the returned event")
	assert.Equal(t, 1, sy.calls)
}

func TestUpdateUnknownEvent(t *testing.T) {
	st := newFakeMutationStore()
	st.accounts = []store.Account{{ID: "acct-1", Provider: "google"}}
	svc := newService(st, &fakeWriteClient{}, &countingSyncer{})

	_, err := svc.UpdateEvent(context.Background(), "u1", "nonsense-id", testInput())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAlreadyGoneRemotelyIsSuccess(t *testing.T) {
	st := newFakeMutationStore()
	st.accounts = []store.Account{{ID: "acct-1", Provider: "google"}}
	st.snap = &calendar.Snapshot{
		Events: []calendar.Event{{ID: "google-acct-1-ev9", AccountID: "acct-1"}},
	}

	client := &fakeWriteClient{deleteErr: &googleapi.Error{Code: 404}}
	sy := &countingSyncer{}
	svc := newService(st, client, sy)

	err := svc.DeleteEvent(context.Background(), "u1", "google-acct-1-ev9")
	require.NoError(t, err, "deleting an already-deleted event is success")
	assert.Empty(t, st.snap.Events, "optimistic removal kept, no rollback")
	assert.Equal(t, 1, sy.calls)
}

func TestDeleteFailureRollsBack(t *testing.T) {
	st := newFakeMutationStore()
	st.accounts = []store.Account{{ID: "acct-1", Provider: "google"}}
	st.snap = &calendar.Snapshot{
		Events: []calendar.Event{{ID: "google-acct-1-ev9", AccountID: "acct-1"}},
	}
	before := st.snap.Clone()

	client := &fakeWriteClient{deleteErr: errors.New("backend error")}
	svc := newService(st, client, &countingSyncer{})

	err := svc.DeleteEvent(context.Background(), "u1", "google-acct-1-ev9")
	require.Error(t, err)
	assert.Equal(t, before, st.snap)
}

func TestCreateLocalEvent(t *testing.T) {
	st := newFakeMutationStore()
	st.localCals["family-1"] = &store.LocalCalendar{ID: "family-1", UserID: "u1", Name: "Family"}
	sy := &countingSyncer{}
	svc := newService(st, &fakeWriteClient{}, sy)

	ev, err := svc.CreateEvent(context.Background(), "u1", "family-1", testInput())
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "family-1", ev.CalendarID)
	require.Len(t, st.localEvents, 1)
	assert.Equal(t, 1, sy.calls)
}

func TestCreateLocalEventUnknownCalendar(t *testing.T) {
	st := newFakeMutationStore()
	svc := newService(st, &fakeWriteClient{}, &countingSyncer{})

	_, err := svc.CreateEvent(context.Background(), "u1", "family-missing", testInput())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAndDeleteLocalEvent(t *testing.T) {
	st := newFakeMutationStore()
	st.localEvents["le1"] = &store.LocalEvent{ID: "le1", CalendarID: "family-1", UserID: "u1", Title: "Old"}
	sy := &countingSyncer{}
	svc := newService(st, &fakeWriteClient{}, sy)

	ev, err := svc.UpdateEvent(context.Background(), "u1", "le1", testInput())
	require.NoError(t, err)
	assert.Equal(t, "Dentist", ev.Title)
	assert.Equal(t, "Dentist", st.localEvents["le1"].Title)

	require.NoError(t, svc.DeleteEvent(context.Background(), "u1", "le1"))
	assert.Empty(t, st.localEvents)
	assert.Equal(t, 2, sy.calls)
}
