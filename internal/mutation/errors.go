package mutation

import "errors"

// ErrNoAccountAvailable means no provider account could be resolved as the
// target of a mutation.
var ErrNoAccountAvailable = errors.New("no provider account available for mutation")

// ErrNotFound means the referenced event does not exist in the snapshot,
// local storage, or any connected account.
var ErrNotFound = errors.New("event not found")
