// Package syncer runs full sync cycles: it pulls calendars and events from
// every connected provider account in parallel, merges them with local
// family calendars, attributes events to household members, and replaces
// the user's cached snapshot wholesale.
//
// A failing account degrades to a skip, never to a failed cycle. The only
// hard failures are storage errors.
package syncer
