// Package store provides SQLite-backed persistence for users, displays,
// provider accounts, household members, local family calendars, and cached
// calendar snapshots.
//
// The store owns a single database file opened in WAL mode and applies
// embedded SQL migrations on startup. All timestamps are stored in UTC.
package store
