package platform

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestFindPlatform(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty selects default", input: "", want: "ios"},
		{name: "exact", input: "ios", want: "ios"},
		{name: "case insensitive", input: " iOS ", want: "ios"},
		{name: "unknown", input: "android", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FindPlatform(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("FindPlatform(%q) expected error, got %+v", tt.input, p)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindPlatform(%q) unexpected error: %v", tt.input, err)
			}
			if p.Name != tt.want {
				t.Errorf("FindPlatform(%q) = %q, want %q", tt.input, p.Name, tt.want)
			}
		})
	}
}

func TestNormalizeExtension(t *testing.T) {
	tests := map[string]string{
		"ipa":   ".ipa",
		".IPA":  ".ipa",
		" tipa": ".tipa",
		"":      "",
	}
	for in, want := range tests {
		if got := NormalizeExtension(in); got != want {
			t.Errorf("NormalizeExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPlatform_ManifestURL(t *testing.T) {
	p := Default()

	got, err := p.ManifestURL("https://install.example.com/jobs/", "job123")
	if err != nil {
		t.Fatalf("ManifestURL() error: %v", err)
	}
	want := "https://install.example.com/jobs/job123/manifest.plist"
	if got != want {
		t.Errorf("ManifestURL() = %q, want %q", got, want)
	}

	got, err = p.ManifestURL("https://install.example.com", "a/b c")
	if err != nil {
		t.Fatalf("ManifestURL() error: %v", err)
	}
	if !strings.Contains(got, "/a%2Fb%20c/") {
		t.Errorf("ManifestURL() = %q, job id not path-escaped", got)
	}

	if _, err := p.ManifestURL("https://install.example.com", " "); !errors.Is(err, ErrEmptyJobID) {
		t.Errorf("ManifestURL() error = %v, want ErrEmptyJobID", err)
	}
	if _, err := p.ManifestURL("", "job123"); err == nil {
		t.Error("ManifestURL() expected error for empty install base")
	}
}

func TestPlatform_InstallLink(t *testing.T) {
	p := Default()

	link, err := p.InstallLink("https://install.example.com", "job123")
	if err != nil {
		t.Fatalf("InstallLink() error: %v", err)
	}
	if !strings.HasPrefix(link, p.TriggerPrefix) {
		t.Fatalf("InstallLink() = %q, want prefix %q", link, p.TriggerPrefix)
	}

	encoded := strings.TrimPrefix(link, p.TriggerPrefix)
	if strings.ContainsAny(encoded, ":/") {
		t.Errorf("manifest URL not percent-encoded: %q", encoded)
	}
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		t.Fatalf("QueryUnescape() error: %v", err)
	}
	if decoded != "https://install.example.com/job123/manifest.plist" {
		t.Errorf("decoded manifest = %q", decoded)
	}

	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("url.Parse() error: %v", err)
	}
	query := parsed.Query()
	if len(query) != 2 || query.Get("action") != "download-manifest" || query.Get("url") != decoded {
		t.Errorf("InstallLink() query = %v, want action=download-manifest and url", query)
	}
}
