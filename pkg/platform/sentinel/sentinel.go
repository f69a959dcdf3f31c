package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and upstream clients return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: nothing has been stored yet
//   - ErrUnavailable: a dependent service or backing store cannot be reached
//   - ErrAlreadyRunning: a background task was started twice
var (
	ErrNotFound       = errors.New("not found")
	ErrUnavailable    = errors.New("unavailable")
	ErrAlreadyRunning = errors.New("already running")
)
