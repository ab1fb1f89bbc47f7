package ride

import "errors"

// Outcome errors of the dispatch state machine. NotClaimable and InvalidState
// are ordinary results (a lost race, a finished ride), not faults.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("ride not found")
	ErrNotClaimable   = errors.New("ride is not claimable")
	ErrInvalidState   = errors.New("invalid ride state")
)
