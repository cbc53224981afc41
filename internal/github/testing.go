package github

import (
	"net/http"
)

// NewTestClient creates a GitHub client for testing with a custom HTTP client and base URL.
// This allows tests to use httptest.Server for mocking GitHub API responses.
// The baseURL should be the URL of your httptest.NewServer().
func NewTestClient(httpClient *http.Client, baseURL, repository, token string) (*Client, error) {
	return NewClient(repository, Options{
		Token:      token,
		BaseURL:    baseURL,
		HTTPClient: httpClient,
	})
}
