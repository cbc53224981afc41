// Package cli provides command-line interface components with testable abstractions.
package cli

import (
	"context"

	"github.com/prostore-ios/installer/internal/advisory"
	"github.com/prostore-ios/installer/internal/catalog"
)

// ReleaseLister abstracts the release listing for testing.
// Following Dave Cheney's principle: "Accept interfaces, return structs"
type ReleaseLister interface {
	// ListReleases returns one page of releases in API order.
	ListReleases(ctx context.Context) ([]catalog.Release, error)
}

// AdvisoryFetcher abstracts the advisory download for testing.
type AdvisoryFetcher interface {
	// Fetch downloads and parses the advisory document.
	Fetch(ctx context.Context) (advisory.Document, error)
}
