package tokens

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/instrumentation"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/logging"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
)

// ExpiryLeeway is how close to expiry an access token may be before it is
// refreshed proactively. Tokens inside the leeway window are treated as
// expired so a provider call never starts with a token about to die.
const ExpiryLeeway = 60 * time.Second

// Refresher exchanges a refresh token for a fresh token set.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// TokenStore is the slice of account storage the manager needs.
type TokenStore interface {
	UpdateAccountTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error
	SetAccountAuthError(ctx context.Context, id, authError, message string) error
}

// Manager owns the access-token lifecycle for provider accounts. It hands
// out valid access tokens, refreshing them when needed, and persists the
// sticky auth state of accounts whose refresh tokens have gone bad.
type Manager struct {
	refresher Refresher
	store     TokenStore
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMetrics attaches a metrics recorder for refresh outcomes.
func WithMetrics(m *instrumentation.Metrics) ManagerOption {
	return func(mgr *Manager) {
		mgr.metrics = m
	}
}

// withClock overrides the clock. Test hook.
func withClock(now func() time.Time) ManagerOption {
	return func(mgr *Manager) {
		mgr.now = now
	}
}

// NewManager creates a token manager.
func NewManager(refresher Refresher, st TokenStore, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		refresher: refresher,
		store:     st,
		logger:    logger,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// accountLock returns the mutex serializing refreshes for one account, so
// concurrent callers never race a refresh against the same refresh token.
func (m *Manager) accountLock(accountID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[accountID] = l
	}
	return l
}

// GetValidToken returns an access token guaranteed to be valid for at least
// the leeway window. A still-valid stored token is returned as-is with no
// writes. An expired token triggers exactly one refresh attempt; there is no
// retry loop here, the next sync cycle is the retry.
//
// The account argument is updated in place when tokens or auth state change,
// so callers holding it see the post-refresh view.
func (m *Manager) GetValidToken(ctx context.Context, account *store.Account) (string, error) {
	lock := m.accountLock(account.ID)
	lock.Lock()
	defer lock.Unlock()

	log := m.logger.With(logging.Account(account.ID), logging.Provider(account.Provider))

	// Accounts already flagged for re-auth stay failed until the user
	// reconnects; repeated refresh attempts would burn quota for nothing.
	if account.NeedsReauth() {
		return "", &ReauthRequiredError{
			AccountID: account.ID,
			Email:     account.Email,
			Reason:    account.AuthError,
		}
	}

	if account.RefreshToken == "" {
		log.Warn("account has no refresh token, marking for re-auth")
		msg := "account has no refresh token"
		if err := m.store.SetAccountAuthError(ctx, account.ID, store.AuthErrorMissingRefreshToken, msg); err != nil {
			log.Error("failed to persist auth state", logging.Err(err))
		}
		account.AuthError = store.AuthErrorMissingRefreshToken
		account.AuthErrorMessage = msg
		account.AuthErrorAt = m.now()
		return "", &ReauthRequiredError{
			AccountID: account.ID,
			Email:     account.Email,
			Reason:    store.AuthErrorMissingRefreshToken,
		}
	}

	// Still fresh: no refresh, no writes.
	if account.AccessToken != "" && !account.TokenExpiry.IsZero() &&
		m.now().Add(ExpiryLeeway).Before(account.TokenExpiry) {
		return account.AccessToken, nil
	}

	return m.refresh(ctx, log, account)
}

// refresh performs one refresh attempt and persists the outcome.
func (m *Manager) refresh(ctx context.Context, log *slog.Logger, account *store.Account) (string, error) {
	tok, err := m.refresher.Refresh(ctx, account.RefreshToken)
	if err != nil {
		if isInvalidGrant(err) {
			log.Warn("refresh token revoked, marking for re-auth", logging.Err(err))
			m.recordRefresh(ctx, instrumentation.RefreshResultInvalidGrant)
			if serr := m.store.SetAccountAuthError(ctx, account.ID, store.AuthErrorInvalidGrant, err.Error()); serr != nil {
				log.Error("failed to persist auth state", logging.Err(serr))
			}
			account.AuthError = store.AuthErrorInvalidGrant
			account.AuthErrorMessage = err.Error()
			account.AuthErrorAt = m.now()
			return "", &ReauthRequiredError{
				AccountID: account.ID,
				Email:     account.Email,
				Reason:    store.AuthErrorInvalidGrant,
			}
		}

		log.Warn("token refresh failed", logging.Err(err))
		m.recordRefresh(ctx, instrumentation.RefreshResultFailure)
		if serr := m.store.SetAccountAuthError(ctx, account.ID, store.AuthErrorRefreshFailed, err.Error()); serr != nil {
			log.Error("failed to persist auth state", logging.Err(serr))
		}
		account.AuthError = store.AuthErrorRefreshFailed
		account.AuthErrorMessage = err.Error()
		account.AuthErrorAt = m.now()
		return "", &TransientAuthError{AccountID: account.ID, Err: err}
	}

	// Google occasionally rotates the refresh token; losing the rotated
	// value would strand the account at the next refresh.
	rotated := ""
	if tok.RefreshToken != "" && tok.RefreshToken != account.RefreshToken {
		rotated = tok.RefreshToken
	}

	if err := m.store.UpdateAccountTokens(ctx, account.ID, tok.AccessToken, rotated, tok.Expiry); err != nil {
		log.Error("failed to persist refreshed tokens", logging.Err(err))
		m.recordRefresh(ctx, instrumentation.RefreshResultFailure)
		return "", &TransientAuthError{AccountID: account.ID, Err: err}
	}

	account.AccessToken = tok.AccessToken
	account.TokenExpiry = tok.Expiry
	if rotated != "" {
		account.RefreshToken = rotated
	}
	account.AuthError = store.AuthErrorNone
	account.AuthErrorMessage = ""
	account.AuthErrorAt = time.Time{}

	m.recordRefresh(ctx, instrumentation.RefreshResultSuccess)
	log.Debug("access token refreshed",
		slog.Time("expiry", tok.Expiry),
		slog.Bool("refresh_token_rotated", rotated != ""))

	return tok.AccessToken, nil
}

func (m *Manager) recordRefresh(ctx context.Context, result string) {
	if m.metrics != nil {
		m.metrics.RecordTokenRefresh(ctx, result)
	}
}

// isInvalidGrant reports whether a refresh failure means the refresh token
// itself is dead (revoked, expired, or the consent was withdrawn).
func isInvalidGrant(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return retrieveErr.ErrorCode == "invalid_grant"
	}
	return false
}
