package domain

import "errors"

// ErrLockHeld signals that another invocation holds the run lock.
var ErrLockHeld = errors.New("another run is in progress")
