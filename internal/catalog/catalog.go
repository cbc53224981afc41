// Package catalog models published releases and filters them down to the
// ordered set eligible for installation.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prostore-ios/installer/internal/version"
)

// ErrEmptyCatalog is returned when no eligible release remains after filtering
// and the non-draft fallback.
var ErrEmptyCatalog = errors.New("no eligible releases")

// Asset is one downloadable file attached to a release.
type Asset struct {
	FileName    string `json:"file_name"`
	DownloadURL string `json:"download_url"`
}

// Release is one published version from the hosting API.
type Release struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Tag        string    `json:"tag"`
	CreatedAt  time.Time `json:"created_at"`
	Draft      bool      `json:"draft"`
	Prerelease bool      `json:"prerelease"`
	Assets     []Asset   `json:"assets"`
	Body       string    `json:"body,omitempty"`
}

// DisplayName returns the release name, falling back to its tag.
func (r Release) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Tag
}

// Filter drops drafts (always) and prereleases (unless includePrereleases),
// ordering the rest newest first. When nothing survives, all non-draft
// releases are used instead; ErrEmptyCatalog is returned only if that is
// empty too.
func Filter(releases []Release, includePrereleases bool) ([]Release, error) {
	var eligible, nonDraft []Release
	for _, r := range releases {
		if r.Draft {
			continue
		}
		nonDraft = append(nonDraft, r)
		if r.Prerelease && !includePrereleases {
			continue
		}
		eligible = append(eligible, r)
	}

	if len(eligible) == 0 {
		eligible = nonDraft
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: %d releases, all drafts or none published", ErrEmptyCatalog, len(releases))
	}

	SortNewestFirst(eligible)
	return eligible, nil
}

// SortNewestFirst orders releases by creation time, descending. Releases
// created at the same instant are ordered by semantic version of their tags
// when both parse, preserving input order otherwise.
func SortNewestFirst(releases []Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		a, b := releases[i], releases[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		cmp, err := version.CompareTags(a.Tag, b.Tag)
		return err == nil && cmp > 0
	})
}

// Constrain keeps releases whose tag satisfies the semver constraint.
// An empty constraint returns releases unchanged.
func Constrain(releases []Release, constraint *version.Constraint) []Release {
	if constraint.IsEmpty() {
		return releases
	}
	var out []Release
	for _, r := range releases {
		if constraint.Matches(r.Tag) {
			out = append(out, r)
		}
	}
	return out
}
