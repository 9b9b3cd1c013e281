package calendar

import (
	"strings"

	"github.com/google/uuid"
)

// ProviderGoogle is the only external provider currently supported.
const ProviderGoogle = "google"

// LocalCalendarPrefix marks family calendars that live in local storage rather
// than at a provider.
const LocalCalendarPrefix = "family-"

const primaryMarker = "-primary-"

// NewLocalCalendarID mints an id for a local family calendar.
func NewLocalCalendarID() string {
	return LocalCalendarPrefix + uuid.NewString()
}

// IsLocalCalendarID reports whether the calendar id names a local family
// calendar.
func IsLocalCalendarID(id string) bool {
	return strings.HasPrefix(id, LocalCalendarPrefix)
}

// PrimaryCalendarID returns the synthetic id used for an account's primary
// provider calendar, e.g. "google-primary-acct1". The account id is
// recoverable from the suffix, which is what attribution relies on.
func PrimaryCalendarID(provider, accountID string) string {
	return provider + primaryMarker + accountID
}

// AccountFromCalendarID extracts the account id from a
// "{provider}-primary-{accountId}" style calendar id. Returns false for ids
// that do not follow that shape.
func AccountFromCalendarID(calendarID string) (string, bool) {
	_, after, found := strings.Cut(calendarID, primaryMarker)
	if !found || after == "" {
		return "", false
	}
	return after, true
}

// IsProviderCalendarID reports whether the calendar id identifies an
// external-provider calendar. Provider calendar ids contain "@" or "#"
// (Google's native forms) or follow the "{provider}-primary-" convention.
func IsProviderCalendarID(id string) bool {
	if strings.ContainsAny(id, "@#") {
		return true
	}
	return strings.Contains(id, primaryMarker)
}

// CompositeEventID builds the local id for an event created through the
// mutation path: "{provider}-{accountId}-{providerEventId}". Later mutations
// recover both halves with MatchCompositeEventID.
func CompositeEventID(provider, accountID, providerEventID string) string {
	return provider + "-" + accountID + "-" + providerEventID
}

// MatchCompositeEventID checks whether id is a composite event id for the
// given provider account and, if so, returns the provider-native event id.
// Account ids may themselves contain dashes, so parsing requires the candidate
// account rather than splitting blindly.
func MatchCompositeEventID(id, provider, accountID string) (string, bool) {
	prefix := provider + "-" + accountID + "-"
	rest, found := strings.CutPrefix(id, prefix)
	if !found || rest == "" {
		return "", false
	}
	return rest, true
}
