package installer

import (
	"sync"
	"sync/atomic"

	"github.com/prostore-ios/installer/internal/catalog"
)

// Session is one run of the install pipeline. It is written only by the run
// that owns it; every exported method is safe for concurrent use.
type Session struct {
	id         uint64
	onProgress func(Snapshot)
	onSettle   func(*Session) // called once the session turns terminal
	superseded atomic.Bool
	done       chan struct{}

	mu             sync.RWMutex
	state          State
	progress       int
	release        *catalog.Release
	asset          *catalog.Asset
	recommendation string
	jobID          string
	link           string
	err            error
}

func newSession(id uint64, onProgress func(Snapshot)) *Session {
	return &Session{
		id:         id,
		onProgress: onProgress,
		done:       make(chan struct{}),
		state:      StateIdle,
	}
}

// ID returns the run number, starting at 1.
func (s *Session) ID() uint64 {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Progress returns the current progress, 0 to 100.
func (s *Session) Progress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// Err returns the terminal failure, or nil.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// InstallLink returns the install-trigger URI once the session is ready.
func (s *Session) InstallLink() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateReady || s.link == "" {
		return "", ErrLinkUnavailable
	}
	return s.link, nil
}

// JobID returns the signing job identifier, or "" before it is known.
func (s *Session) JobID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobID
}

// Recommendation returns the advisory recommendation used by this run.
func (s *Session) Recommendation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recommendation
}

// ChosenRelease returns the selected release, if selection has happened.
func (s *Session) ChosenRelease() (catalog.Release, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.release == nil {
		return catalog.Release{}, false
	}
	return *s.release, true
}

// ChosenAsset returns the selected asset, if selection has happened.
func (s *Session) ChosenAsset() (catalog.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.asset == nil {
		return catalog.Asset{}, false
	}
	return *s.asset, true
}

// Snapshot returns state, progress and error read together.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Done is closed when the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session is terminal and returns its error.
func (s *Session) Wait() error {
	<-s.done
	return s.Err()
}

// Superseded reports whether a newer run replaced this one.
func (s *Session) Superseded() bool {
	return s.superseded.Load()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{RunID: s.id, State: s.state, Progress: s.progress, Err: s.err}
}

// update applies fn under the write lock and notifies the observer when the
// snapshot changed. Terminal sessions are never modified.
func (s *Session) update(fn func()) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	before := s.snapshotLocked()
	fn()
	after := s.snapshotLocked()
	terminal := s.state.Terminal()
	s.mu.Unlock()

	if s.onProgress != nil && (before.State != after.State || before.Progress != after.Progress) {
		s.onProgress(after)
	}
	if terminal {
		if s.onSettle != nil {
			s.onSettle(s)
		}
		close(s.done)
	}
}

// enter moves to state and raises progress to at least p.
func (s *Session) enter(state State, p int) {
	s.update(func() {
		s.state = state
		if p > s.progress {
			s.progress = p
		}
	})
}

// advance raises progress to p; lower values are ignored.
func (s *Session) advance(p int) {
	s.update(func() {
		if p > s.progress {
			s.progress = p
		}
	})
}

func (s *Session) setRecommendation(name string) {
	s.update(func() {
		s.recommendation = name
	})
}

func (s *Session) choose(release catalog.Release, asset catalog.Asset) {
	s.update(func() {
		s.release = &release
		s.asset = &asset
	})
}

func (s *Session) succeed(jobID, link string) {
	s.update(func() {
		s.jobID = jobID
		s.link = link
		s.state = StateReady
		s.progress = progressReady
	})
}

func (s *Session) fail(err error) {
	s.update(func() {
		s.err = &StepError{State: s.state, Err: err}
		s.state = StateFailed
		s.progress = 0
	})
}
