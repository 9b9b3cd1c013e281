// Package mutation applies single-event writes (create, update, delete)
// against the owning provider account or local family calendar.
//
// Writes follow a two-phase pattern: the change is applied to the cached
// snapshot immediately, then pushed to the provider, then reconciled by a
// full sync. A provider failure rolls the snapshot back to its exact
// pre-mutation state. Deleting an event that is already gone remotely
// counts as success.
package mutation
