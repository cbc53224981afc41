// Package platform describes install targets: which artifact extension they
// consume and how an install-trigger link is composed for them.
package platform

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrEmptyJobID is returned when composing a link without a signing job.
var ErrEmptyJobID = errors.New("signing job id cannot be empty")

// Platform represents an install target
type Platform struct {
	Name    string // ios
	FileExt string // .ipa
	// TriggerPrefix is the URI prefix the percent-encoded manifest URL is
	// appended to. For iOS it carries action=download-manifest as well as
	// url=, since itms-services rejects a link without the action parameter;
	// url is the only parameter that varies per link.
	TriggerPrefix string
	ManifestPath  string // path segment after the job id
}

// PredefinedPlatforms returns the supported install targets
func PredefinedPlatforms() []Platform {
	return []Platform{
		{
			Name:          "ios",
			FileExt:       ".ipa",
			TriggerPrefix: "itms-services://?action=download-manifest&url=",
			ManifestPath:  "manifest.plist",
		},
	}
}

// Default returns the iOS platform.
func Default() Platform {
	return PredefinedPlatforms()[0]
}

// FindPlatform finds a platform by name; an empty name selects Default.
func FindPlatform(name string) (Platform, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Default(), nil
	}
	for _, p := range PredefinedPlatforms() {
		if p.Name == name {
			return p, nil
		}
	}
	return Platform{}, fmt.Errorf("unknown platform: %s", name)
}

// NormalizeExtension lower-cases ext and ensures a leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// ManifestURL builds <installBase>/<jobID>/<manifest path>.
func (p Platform) ManifestURL(installBase, jobID string) (string, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return "", ErrEmptyJobID
	}
	if strings.TrimSpace(installBase) == "" {
		return "", fmt.Errorf("install base cannot be empty")
	}
	base := strings.TrimSuffix(installBase, "/")
	manifest := strings.TrimPrefix(p.ManifestPath, "/")
	return base + "/" + url.PathEscape(jobID) + "/" + manifest, nil
}

// InstallLink composes the install-trigger URI for a signing job. Its only
// variable parameter is the percent-encoded manifest URL.
func (p Platform) InstallLink(installBase, jobID string) (string, error) {
	manifest, err := p.ManifestURL(installBase, jobID)
	if err != nil {
		return "", err
	}
	return p.TriggerPrefix + url.QueryEscape(manifest), nil
}
