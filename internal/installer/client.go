package installer

import (
	"context"

	"github.com/prostore-ios/installer/internal/catalog"
)

// Client is the surface a UI drives: it starts runs and reads the state of
// the most recent one. Read methods never block on a run and never fail;
// before the first run they report idle, 0 and ErrLinkUnavailable.
type Client struct {
	orchestrator *Orchestrator
}

// NewClient wraps an orchestrator.
func NewClient(o *Orchestrator) *Client {
	return &Client{orchestrator: o}
}

// Start begins a run, superseding any active one, and blocks until it
// resolves. The returned error is the run's terminal failure.
func (c *Client) Start(ctx context.Context, opts Options) error {
	return c.orchestrator.Start(ctx, opts).Wait()
}

// Session returns the most recent session, or nil.
func (c *Client) Session() *Session {
	return c.orchestrator.Current()
}

// State returns the state of the most recent run.
func (c *Client) State() State {
	if s := c.Session(); s != nil {
		return s.State()
	}
	return StateIdle
}

// Progress returns the progress of the most recent run, 0 to 100.
func (c *Client) Progress() int {
	if s := c.Session(); s != nil {
		return s.Progress()
	}
	return 0
}

// InstallLink returns the install-trigger URI, or ErrLinkUnavailable until
// the most recent run is ready.
func (c *Client) InstallLink() (string, error) {
	if s := c.Session(); s != nil {
		return s.InstallLink()
	}
	return "", ErrLinkUnavailable
}

// LastError returns the most recent terminal failure, or nil. Once the most
// recent run resolves it reports that run's outcome. While a run is still in
// progress it keeps reporting the outcome of the newest finished run.
func (c *Client) LastError() error {
	if s := c.Session(); s != nil && s.State().Terminal() {
		return s.Err()
	}
	return c.orchestrator.LastError()
}

// ChosenRelease returns the release selected by the most recent run.
func (c *Client) ChosenRelease() (catalog.Release, bool) {
	if s := c.Session(); s != nil {
		return s.ChosenRelease()
	}
	return catalog.Release{}, false
}

// ChosenAsset returns the asset selected by the most recent run.
func (c *Client) ChosenAsset() (catalog.Asset, bool) {
	if s := c.Session(); s != nil {
		return s.ChosenAsset()
	}
	return catalog.Asset{}, false
}
