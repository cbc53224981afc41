// Package github provides a client for listing releases through the GitHub Releases API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/prostore-ios/installer/internal/catalog"
	"github.com/prostore-ios/installer/internal/transport"
)

// ReleasesPageSize is the page size used when listing releases.
const ReleasesPageSize = 100

// Sentinel errors for GitHub operations.
var (
	ErrInvalidRepo = errors.New("repository must be in format 'owner/repo'")
	ErrNilClient   = errors.New("client not initialized: use NewClient to create instances")
)

// Client wraps the GitHub API client for release operations.
type Client struct {
	client *github.Client
	owner  string
	repo   string
}

// Options tunes the underlying go-github client.
type Options struct {
	// Token is an optional personal access token sent as a bearer credential.
	Token string
	// BaseURL overrides the API endpoint (GitHub Enterprise, tests).
	BaseURL string
	// HTTPClient overrides the transport; nil uses http.DefaultClient.
	HTTPClient *http.Client
	// UserAgent overrides go-github's default User-Agent.
	UserAgent string
}

// NewClient creates a GitHub API client for the specified repository.
// Repository must be in the format "owner/repo". The token is optional;
// without it requests are anonymous.
func NewClient(repository string, opts Options) (*Client, error) {
	owner, repo, err := parseRepository(repository)
	if err != nil {
		return nil, err
	}

	client := github.NewClient(opts.HTTPClient)
	if token := strings.TrimSpace(opts.Token); token != "" {
		client = client.WithAuthToken(token)
	}
	if opts.UserAgent != "" {
		client.UserAgent = opts.UserAgent
	}
	if opts.BaseURL != "" {
		base := strings.TrimSuffix(opts.BaseURL, "/") + "/"
		parsedURL, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github api base url %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = parsedURL
		client.UploadURL = parsedURL
	}

	return &Client{
		client: client,
		owner:  owner,
		repo:   repo,
	}, nil
}

// Repository returns the "owner/repo" identifier.
func (c *Client) Repository() string {
	return c.owner + "/" + c.repo
}

// ListReleases fetches one page of releases (ReleasesPageSize entries) in
// API order. Drafts are only visible with a token that has push access.
func (c *Client) ListReleases(ctx context.Context) ([]catalog.Release, error) {
	if c == nil || c.client == nil || c.owner == "" || c.repo == "" {
		return nil, ErrNilClient
	}

	opts := &github.ListOptions{PerPage: ReleasesPageSize}
	releases, resp, err := c.client.Repositories.ListReleases(ctx, c.owner, c.repo, opts)
	if err != nil {
		return nil, c.transportError(resp, err)
	}

	out := make([]catalog.Release, 0, len(releases))
	for _, r := range releases {
		out = append(out, ConvertRelease(r))
	}
	return out, nil
}

// ConvertRelease maps a go-github release onto the catalog model.
func ConvertRelease(r *github.RepositoryRelease) catalog.Release {
	if r == nil {
		return catalog.Release{}
	}
	rel := catalog.Release{
		ID:         r.GetID(),
		Name:       r.GetName(),
		Tag:        r.GetTagName(),
		CreatedAt:  r.GetCreatedAt().Time,
		Draft:      r.GetDraft(),
		Prerelease: r.GetPrerelease(),
		Body:       r.GetBody(),
	}
	for _, a := range r.Assets {
		if a == nil {
			continue
		}
		rel.Assets = append(rel.Assets, catalog.Asset{
			FileName:    a.GetName(),
			DownloadURL: a.GetBrowserDownloadURL(),
		})
	}
	return rel
}

func (c *Client) transportError(resp *github.Response, err error) error {
	tErr := &transport.Error{
		Op:  "list releases",
		URL: c.Repository(),
		Err: err,
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		tErr.StatusCode = http.StatusForbidden
		tErr.Err = fmt.Errorf("rate limit exceeded, resets at %s: %w", rateErr.Rate.Reset.Time.Format(time.RFC3339), err)
		return tErr
	}
	if resp != nil && resp.Response != nil {
		tErr.StatusCode = resp.StatusCode
	}
	return tErr
}

// parseRepository splits a repository string into owner and repo.
// Returns an error if the format is invalid.
func parseRepository(repository string) (owner, repo string, err error) {
	if repository == "" {
		return "", "", ErrInvalidRepo
	}

	parts := strings.Split(repository, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: got %s", ErrInvalidRepo, repository)
	}

	owner = strings.TrimSpace(parts[0])
	repo = strings.TrimSpace(parts[1])

	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("%w: owner or repo is empty", ErrInvalidRepo)
	}

	return owner, repo, nil
}
