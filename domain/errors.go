package domain

import "errors"

// ErrInvalidArgument indicates a request rejected by validation before any
// storage transaction begins.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrNotFound indicates that an entity does not exist or that the caller is
// not allowed to see it; the two cases are deliberately not distinguished.
var ErrNotFound = errors.New("not found")

// ErrPositionConflict indicates that a structural write lost a race with a
// concurrent transaction over the same sibling set. The request can be
// retried against fresh state.
var ErrPositionConflict = errors.New("position conflict")

// ErrDuplicateRequest indicates that a mutation carrying an idempotency key
// has already been accepted.
var ErrDuplicateRequest = errors.New("duplicate request")
