package cli

import (
	"context"

	"github.com/prostore-ios/installer/internal/advisory"
	"github.com/prostore-ios/installer/internal/catalog"
)

// mockReleaseLister implements ReleaseLister for testing.
type mockReleaseLister struct {
	listReleasesFn func(ctx context.Context) ([]catalog.Release, error)
}

// ListReleases implements ReleaseLister.
func (m *mockReleaseLister) ListReleases(ctx context.Context) ([]catalog.Release, error) {
	if m.listReleasesFn != nil {
		return m.listReleasesFn(ctx)
	}
	return nil, nil
}

// mockAdvisoryFetcher implements AdvisoryFetcher for testing.
type mockAdvisoryFetcher struct {
	fetchFn func(ctx context.Context) (advisory.Document, error)
}

// Fetch implements AdvisoryFetcher.
func (m *mockAdvisoryFetcher) Fetch(ctx context.Context) (advisory.Document, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}
	return advisory.Document{}, nil
}
