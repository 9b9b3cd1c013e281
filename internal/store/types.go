package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Auth error states for a provider account. An empty value means the account
// is healthy; any other value marks the account as needing re-authorization
// or having hit a refresh failure.
const (
	AuthErrorNone                = ""
	AuthErrorMissingRefreshToken = "missing_refresh_token"
	AuthErrorInvalidGrant        = "invalid_grant"
	AuthErrorRefreshFailed       = "refresh_failed"
)

// User is a household owner. Each user has an API token for the HTTP API and
// a license flag that gates display access.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name,omitempty"`
	APIToken      string    `json:"-"`
	LicenseActive bool      `json:"licenseActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Display is a wall-mounted dashboard device bound to a user. Displays
// authenticate with their own token and only see their owner's data.
type Display struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name,omitempty"`
	Token     string    `json:"-"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Account is a connected provider account (e.g. a Google account) belonging
// to a user. Tokens are stored alongside the account; AuthError carries the
// sticky auth state set by the token manager.
type Account struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	Provider         string    `json:"provider"`
	Email            string    `json:"email"`
	AccessToken      string    `json:"-"`
	RefreshToken     string    `json:"-"`
	TokenExpiry      time.Time `json:"-"`
	Scopes           []string  `json:"scopes,omitempty"`
	AuthError        string    `json:"authError,omitempty"`
	AuthErrorMessage string    `json:"authErrorMessage,omitempty"`
	AuthErrorAt      time.Time `json:"authErrorAt,omitzero"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// NeedsReauth reports whether the account is in a state only the user can
// repair by going through the consent flow again.
func (a *Account) NeedsReauth() bool {
	return a.AuthError == AuthErrorMissingRefreshToken || a.AuthError == AuthErrorInvalidGrant
}

// ConnectedAccount links a household member to a provider account, by id,
// by email, or both.
type ConnectedAccount struct {
	AccountID string `json:"accountId,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Member is a household member shown on displays. Members are not login
// identities; they exist for attribution and display grouping.
type Member struct {
	ID                string             `json:"id"`
	UserID            string             `json:"userId"`
	Name              string             `json:"name"`
	Color             string             `json:"color,omitempty"`
	ConnectedAccounts []ConnectedAccount `json:"connectedAccounts,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// LocalCalendar is a family calendar that lives in local storage rather than
// at a provider. Its id carries the "family-" prefix.
type LocalCalendar struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LocalEvent is an event on a local family calendar. Recurring events store
// their RRULE lines and are expanded into occurrences at sync time.
type LocalEvent struct {
	ID          string    `json:"id"`
	CalendarID  string    `json:"calendarId"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"isAllDay"`
	Category    string    `json:"category,omitempty"`
	Recurrence  []string  `json:"recurrence,omitempty"`
	AssignedTo  []string  `json:"assignedTo,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
