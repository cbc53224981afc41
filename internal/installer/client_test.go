package installer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prostore-ios/installer/internal/advisory"
	"github.com/prostore-ios/installer/internal/catalog"
	gh "github.com/prostore-ios/installer/internal/github"
	"github.com/prostore-ios/installer/internal/signing"
)

func TestClient_BeforeFirstRun(t *testing.T) {
	o := newTestOrchestrator(t, Config{Releases: staticReleases(), Signer: staticJob("x")})
	c := NewClient(o)

	if c.Session() != nil {
		t.Error("Session() != nil before first run")
	}
	if c.State() != StateIdle {
		t.Errorf("State() = %s, want idle", c.State())
	}
	if c.Progress() != 0 {
		t.Errorf("Progress() = %d, want 0", c.Progress())
	}
	if _, err := c.InstallLink(); !errors.Is(err, ErrLinkUnavailable) {
		t.Errorf("InstallLink() error = %v, want ErrLinkUnavailable", err)
	}
	if c.LastError() != nil {
		t.Errorf("LastError() = %v, want nil", c.LastError())
	}
	if _, ok := c.ChosenRelease(); ok {
		t.Error("ChosenRelease() ok before first run")
	}
	if _, ok := c.ChosenAsset(); ok {
		t.Error("ChosenAsset() ok before first run")
	}
}

func TestClient_EndToEnd(t *testing.T) {
	var ghServer *httptest.Server
	ghServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/app/releases" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `[{
			"id": 1,
			"tag_name": "v1.2.0",
			"name": "App 1.2.0",
			"created_at": "2024-05-01T10:00:00Z",
			"assets": [
				{"name": "readme.txt", "browser_download_url": "%[1]s/dl/readme.txt"},
				{"name": "App-signed.ipa", "browser_download_url": "%[1]s/dl/App-signed.ipa"}
			]
		}]`, ghServer.URL)
	}))
	defer ghServer.Close()

	advisoryServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer advisoryServer.Close()

	var submitted string
	signServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		submitted = body.URL
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"job123"}`))
	}))
	defer signServer.Close()

	signer, err := signing.NewClient(signing.Config{Endpoint: signServer.URL, HTTPClient: signServer.Client()})
	if err != nil {
		t.Fatalf("signing.NewClient() error: %v", err)
	}
	o, err := NewOrchestrator(Config{
		Releases:    GitHubReleases(gh.Options{BaseURL: ghServer.URL, HTTPClient: ghServer.Client()}),
		Advisory:    advisory.NewFetcher(advisory.Config{URL: advisoryServer.URL, HTTPClient: advisoryServer.Client()}),
		Signer:      signer,
		InstallBase: "https://sign.example.com/install",
	})
	if err != nil {
		t.Fatalf("NewOrchestrator() error: %v", err)
	}
	c := NewClient(o)

	if err := c.Start(context.Background(), Options{Repository: "owner/app"}); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if submitted != ghServer.URL+"/dl/App-signed.ipa" {
		t.Errorf("signing request url = %q, want App-signed.ipa", submitted)
	}
	if c.State() != StateReady || c.Progress() != 100 {
		t.Errorf("State/Progress = %s/%d, want ready/100", c.State(), c.Progress())
	}

	link, err := c.InstallLink()
	if err != nil {
		t.Fatalf("InstallLink() error: %v", err)
	}
	if !strings.Contains(link, "job123") {
		t.Errorf("InstallLink() = %q, want job123", link)
	}

	const prefix = "itms-services://?action=download-manifest&url="
	if !strings.HasPrefix(link, prefix) {
		t.Fatalf("InstallLink() = %q, want prefix %q", link, prefix)
	}
	manifest, err := url.QueryUnescape(strings.TrimPrefix(link, prefix))
	if err != nil {
		t.Fatalf("QueryUnescape() error: %v", err)
	}
	if manifest != "https://sign.example.com/install/job123/manifest.plist" {
		t.Errorf("manifest url = %q", manifest)
	}

	rel, ok := c.ChosenRelease()
	if !ok || rel.Tag != "v1.2.0" {
		t.Errorf("ChosenRelease().Tag = %q, want v1.2.0", rel.Tag)
	}
	if c.LastError() != nil {
		t.Errorf("LastError() = %v, want nil", c.LastError())
	}
}

func TestClient_StartReportsFailure(t *testing.T) {
	o := newTestOrchestrator(t, Config{Releases: staticReleases(), Signer: staticJob("x")})
	c := NewClient(o)

	err := c.Start(context.Background(), Options{Repository: "owner/app"})
	if err == nil {
		t.Fatal("Start() expected error, got nil")
	}
	if !errors.Is(c.LastError(), err) {
		t.Errorf("LastError() = %v, want %v", c.LastError(), err)
	}
	if c.State() != StateFailed || c.Progress() != 0 {
		t.Errorf("State/Progress = %s/%d, want failed/0", c.State(), c.Progress())
	}
}

func TestClient_LastErrorSurvivesNextStart(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	o := newTestOrchestrator(t, Config{
		Releases: func(repository, token string) (ReleaseLister, error) {
			if repository == "owner/empty" {
				return listerFunc(func(ctx context.Context) ([]catalog.Release, error) {
					return nil, nil
				}), nil
			}
			return listerFunc(func(ctx context.Context) ([]catalog.Release, error) {
				close(entered)
				<-unblock
				return []catalog.Release{release("App", time.Now(), "App.ipa")}, nil
			}), nil
		},
		Signer: staticJob("job"),
	})
	c := NewClient(o)

	failure := c.Start(context.Background(), Options{Repository: "owner/empty"})
	if failure == nil {
		t.Fatal("Start() expected error, got nil")
	}

	second := o.Start(context.Background(), Options{Repository: "owner/app"})
	<-entered
	if c.State().Terminal() {
		t.Fatalf("State() = %s, want a running state", c.State())
	}
	if !errors.Is(c.LastError(), failure) {
		t.Errorf("LastError() during next run = %v, want %v", c.LastError(), failure)
	}

	close(unblock)
	if err := second.Wait(); err != nil {
		t.Fatalf("second.Wait() error: %v", err)
	}
	if c.LastError() != nil {
		t.Errorf("LastError() after successful run = %v, want nil", c.LastError())
	}
	if o.LastError() != nil {
		t.Errorf("orchestrator LastError() after successful run = %v, want nil", o.LastError())
	}
}
