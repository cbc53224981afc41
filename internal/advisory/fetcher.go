package advisory

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/prostore-ios/installer/internal/transport"
)

const (
	// DefaultURL is the raw README of the certificates repository
	DefaultURL = "https://raw.githubusercontent.com/ProStore-iOS/certificates/refs/heads/main/README.md"

	// maxDocumentSize caps how much of the advisory body is read
	maxDocumentSize = 4 << 20
)

// Config holds configuration for the advisory fetcher
type Config struct {
	URL        string
	UserAgent  string
	HTTPClient transport.Doer
}

// Fetcher downloads and parses the advisory document.
type Fetcher struct {
	config Config
}

// NewFetcher creates a Fetcher, filling unset fields with defaults.
func NewFetcher(config Config) *Fetcher {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.UserAgent == "" {
		config.UserAgent = transport.DefaultUserAgent
	}
	if config.HTTPClient == nil {
		config.HTTPClient = transport.NewHTTPClient(0)
	}
	return &Fetcher{config: config}
}

// FetchRaw returns the markdown body of the advisory document.
func (f *Fetcher) FetchRaw(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.config.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain, text/markdown")
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.config.HTTPClient.Do(req)
	if err != nil {
		return "", &transport.Error{Op: "fetch advisory", URL: f.config.URL, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if !transport.IsSuccess(resp.StatusCode) {
		return "", &transport.Error{
			Op:         "fetch advisory",
			URL:        f.config.URL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return "", &transport.Error{Op: "read advisory", URL: f.config.URL, StatusCode: resp.StatusCode, Err: err}
	}
	return string(body), nil
}

// Fetch downloads the advisory and parses it.
func (f *Fetcher) Fetch(ctx context.Context) (Document, error) {
	md, err := f.FetchRaw(ctx)
	if err != nil {
		return Document{}, err
	}
	return Parse(md), nil
}
