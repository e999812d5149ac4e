package db

import "errors"

// ErrLockTimeout is returned when a scoped transaction could not obtain its
// lock within the configured timeout and retry budget.
var ErrLockTimeout = errors.New("lock acquisition timed out")
