// Package installer drives one install run end to end: list releases, consult
// the advisory, select an artifact, request a signature and publish the
// install link. Each run is a Session; Client is the read/trigger surface a UI
// polls.
package installer

import (
	"errors"
	"fmt"
)

// State is a step of the install state machine.
type State string

const (
	StateIdle                State = "idle"
	StateFetchingReleases    State = "fetchingReleases"
	StateSelectingAsset      State = "selectingAsset"
	StateRequestingSignature State = "requestingSignature"
	StateReady               State = "ready"
	StateFailed              State = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// Progress checkpoints, in run order.
const (
	progressFetchingReleases = 10
	progressReleasesFetched  = 25
	progressReleasesFiltered = 30
	progressAdvisory         = 45
	progressSelectingAsset   = 55
	progressAssetChosen      = 70
	progressRequesting       = 80
	progressReady            = 100
)

var (
	// ErrLinkUnavailable is returned by InstallLink before the ready state.
	ErrLinkUnavailable = errors.New("install link unavailable")

	// ErrSuperseded marks a run cancelled because a newer run started.
	ErrSuperseded = errors.New("install run superseded by a newer run")

	// ErrMissingJobID is wrapped, alongside a *signing.ServiceError, when the
	// signing service accepts a request but returns a job without identifier.
	ErrMissingJobID = errors.New("signing job has no identifier")
)

// StepError records the state a run was in when it failed.
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Snapshot is a consistent view of a session.
type Snapshot struct {
	RunID    uint64
	State    State
	Progress int
	Err      error
}
