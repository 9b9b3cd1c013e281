package tokens

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	token *oauth2.Token
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTokenStore struct {
	mu         sync.Mutex
	tokens     map[string]string // accountID -> access token
	refresh    map[string]string // accountID -> rotated refresh token
	authErrors map[string]string
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		tokens:     make(map[string]string),
		refresh:    make(map[string]string),
		authErrors: make(map[string]string),
	}
}

func (f *fakeTokenStore) UpdateAccountTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[id] = accessToken
	if refreshToken != "" {
		f.refresh[id] = refreshToken
	}
	f.authErrors[id] = store.AuthErrorNone
	return nil
}

func (f *fakeTokenStore) SetAccountAuthError(ctx context.Context, id, authError, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authErrors[id] = authError
	return nil
}

func (f *fakeTokenStore) authError(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authErrors[id]
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestValidTokenReturnedWithoutRefresh(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	refresher := &fakeRefresher{}
	st := newFakeTokenStore()
	m := NewManager(refresher, st, nil, withClock(fixedClock(now)))

	account := &store.Account{
		ID:           "a1",
		RefreshToken: "rt",
		AccessToken:  "valid",
		TokenExpiry:  now.Add(time.Hour),
	}

	tok, err := m.GetValidToken(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, "valid", tok)
	assert.Zero(t, refresher.callCount(), "no refresh for a valid token")
}

func TestTokenInsideLeewayIsRefreshed(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	refresher := &fakeRefresher{token: &oauth2.Token{
		AccessToken: "fresh",
		Expiry:      now.Add(time.Hour),
	}}
	st := newFakeTokenStore()
	m := NewManager(refresher, st, nil, withClock(fixedClock(now)))

	account := &store.Account{
		ID:           "a1",
		RefreshToken: "rt",
		AccessToken:  "stale",
		TokenExpiry:  now.Add(30 * time.Second), // inside the 60s leeway
	}

	tok, err := m.GetValidToken(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
	assert.Equal(t, 1, refresher.callCount())
	assert.Equal(t, "fresh", st.tokens["a1"], "refreshed token persisted")
	assert.Equal(t, "fresh", account.AccessToken, "account updated in place")
}

func TestMissingRefreshTokenMarksReauth(t *testing.T) {
	refresher := &fakeRefresher{}
	st := newFakeTokenStore()
	m := NewManager(refresher, st, nil)

	account := &store.Account{ID: "a1", Email: "e@gmail.com"}

	_, err := m.GetValidToken(context.Background(), account)
	var reauthErr *ReauthRequiredError
	require.ErrorAs(t, err, &reauthErr)
	assert.Equal(t, store.AuthErrorMissingRefreshToken, reauthErr.Reason)
	assert.Equal(t, store.AuthErrorMissingRefreshToken, st.authError("a1"))
	assert.Zero(t, refresher.callCount())
}

func TestInvalidGrantMarksReauth(t *testing.T) {
	refresher := &fakeRefresher{err: &oauth2.RetrieveError{ErrorCode: "invalid_grant"}}
	st := newFakeTokenStore()
	m := NewManager(refresher, st, nil)

	account := &store.Account{ID: "a1", Email: "e@gmail.com", RefreshToken: "revoked"}

	_, err := m.GetValidToken(context.Background(), account)
	var reauthErr *ReauthRequiredError
	require.ErrorAs(t, err, &reauthErr)
	assert.Equal(t, store.AuthErrorInvalidGrant, reauthErr.Reason)
	assert.Equal(t, store.AuthErrorInvalidGrant, st.authError("a1"))
	assert.True(t, account.NeedsReauth())
}

func TestTransientFailureKeepsRefreshToken(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("connection reset")}
	st := newFakeTokenStore()
	m := NewManager(refresher, st, nil)

	account := &store.Account{ID: "a1", RefreshToken: "rt"}

	_, err := m.GetValidToken(context.Background(), account)
	var transientErr *TransientAuthError
	require.ErrorAs(t, err, &transientErr)
	assert.Equal(t, store.AuthErrorRefreshFailed, st.authError("a1"))
	assert.Equal(t, "rt", account.RefreshToken, "refresh token kept for retry")
	assert.False(t, account.NeedsReauth(), "transient failure is retried next cycle")
}

func TestTransientStateRetriesNextCall(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	refresher := &fakeRefresher{err: errors.New("boom")}
	st := newFakeTokenStore()
	m := NewManager(refresher, st, nil, withClock(fixedClock(now)))

	account := &store.Account{ID: "a1", RefreshToken: "rt"}
	_, err := m.GetValidToken(context.Background(), account)
	require.Error(t, err)

	// Provider recovers; the same account refreshes cleanly.
	refresher.err = nil
	refresher.token = &oauth2.Token{AccessToken: "fresh", Expiry: now.Add(time.Hour)}

	tok, err := m.GetValidToken(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
	assert.Equal(t, store.AuthErrorNone, account.AuthError)
}

func TestReauthStateIsSticky(t *testing.T) {
	refresher := &fakeRefresher{err: &oauth2.RetrieveError{ErrorCode: "invalid_grant"}}
	st := newFakeTokenStore()
	m := NewManager(refresher, st, nil)

	account := &store.Account{ID: "a1", RefreshToken: "revoked"}
	_, err := m.GetValidToken(context.Background(), account)
	require.Error(t, err)
	require.Equal(t, 1, refresher.callCount())

	// Further calls short-circuit without touching the provider.
	_, err = m.GetValidToken(context.Background(), account)
	var reauthErr *ReauthRequiredError
	require.ErrorAs(t, err, &reauthErr)
	assert.Equal(t, 1, refresher.callCount(), "no refresh attempted for a flagged account")
}

func TestRotatedRefreshTokenPersisted(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	refresher := &fakeRefresher{token: &oauth2.Token{
		AccessToken:  "fresh",
		RefreshToken: "rotated-rt",
		Expiry:       now.Add(time.Hour),
	}}
	st := newFakeTokenStore()
	m := NewManager(refresher, st, nil, withClock(fixedClock(now)))

	account := &store.Account{ID: "a1", RefreshToken: "old-rt"}

	_, err := m.GetValidToken(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, "rotated-rt", st.refresh["a1"])
	assert.Equal(t, "rotated-rt", account.RefreshToken)
}

func TestConcurrentRefreshesSerializedPerAccount(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	refresher := &fakeRefresher{token: &oauth2.Token{
		AccessToken: "fresh",
		Expiry:      now.Add(time.Hour),
	}}
	st := newFakeTokenStore()
	m := NewManager(refresher, st, nil, withClock(fixedClock(now)))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each goroutine holds its own copy so in-place updates from
			// one call do not short-circuit another; serialization is what
			// keeps the store writes coherent.
			account := &store.Account{ID: "a1", RefreshToken: "rt"}
			tok, err := m.GetValidToken(context.Background(), account)
			assert.NoError(t, err)
			assert.Equal(t, "fresh", tok)
		}()
	}
	wg.Wait()

	assert.Equal(t, "fresh", st.tokens["a1"])
}
