// Package calendar defines the provider-neutral calendar data model and the
// Google Calendar provider client.
//
// The data model (Event, Calendar, Snapshot) is what the rest of the system
// and the HTTP API speak; provider payloads never leak past this package.
// Calendar and event ids follow a small set of conventions:
//
//   - "family-{uuid}" ids name local family calendars stored in SQLite
//   - "{provider}-primary-{accountId}" ids name an account's primary provider
//     calendar and let attribution recover the account id
//   - "{provider}-{accountId}-{providerEventId}" composite ids are assigned to
//     events created through the mutation path so later mutations can recover
//     the owning account and the provider-native event id
//
// Client wraps google.golang.org/api/calendar/v3 for a single account with
// rate limiting, per-call timeouts, and metrics recording. Token refresh is
// deliberately out of scope here; clients receive a ready-to-use access token
// from the token manager.
package calendar
