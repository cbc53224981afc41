package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/prostore-ios/installer/internal/advisory"
	"github.com/prostore-ios/installer/internal/catalog"
	"github.com/prostore-ios/installer/internal/installer"
	"github.com/prostore-ios/installer/internal/selector"
)

// Output formats accepted by the --output flag.
const (
	outputText = "text"
	outputJSON = "json"
)

// textRenderer is implemented by command results with a human-readable form.
type textRenderer interface {
	writeText(w io.Writer) error
}

// render writes v as indented JSON or as text.
func render(w io.Writer, format string, v textRenderer) error {
	switch strings.ToLower(format) {
	case outputJSON:
		output, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(output))
		return err
	case outputText, "":
		return v.writeText(w)
	default:
		return fmt.Errorf("unsupported output format %q (text, json)", format)
	}
}

// InstallResult is the outcome of the install command.
type InstallResult struct {
	Repository     string `json:"repository"`
	Release        string `json:"release"`
	Tag            string `json:"tag"`
	Asset          string `json:"asset"`
	DownloadURL    string `json:"download_url"`
	Recommendation string `json:"recommendation,omitempty"`
	JobID          string `json:"job_id"`
	InstallLink    string `json:"install_link"`
}

func newInstallResult(repository string, s *installer.Session) (InstallResult, error) {
	link, err := s.InstallLink()
	if err != nil {
		return InstallResult{}, err
	}
	rel, _ := s.ChosenRelease()
	asset, _ := s.ChosenAsset()
	return InstallResult{
		Repository:     repository,
		Release:        rel.DisplayName(),
		Tag:            rel.Tag,
		Asset:          asset.FileName,
		DownloadURL:    asset.DownloadURL,
		Recommendation: s.Recommendation(),
		JobID:          s.JobID(),
		InstallLink:    link,
	}, nil
}

func (r InstallResult) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Release:\t%s (%s)\n", r.Release, r.Tag)
	_, _ = fmt.Fprintf(tw, "Asset:\t%s\n", r.Asset)
	if r.Recommendation != "" {
		_, _ = fmt.Fprintf(tw, "Certificate:\t%s\n", r.Recommendation)
	}
	_, _ = fmt.Fprintf(tw, "Signing job:\t%s\n", r.JobID)
	_, _ = fmt.Fprintf(tw, "Install link:\t%s\n", r.InstallLink)
	return tw.Flush()
}

// ReleaseSummary describes one release in the releases command output.
type ReleaseSummary struct {
	Name       string    `json:"name"`
	Tag        string    `json:"tag"`
	CreatedAt  time.Time `json:"created_at"`
	Prerelease bool      `json:"prerelease"`
	Draft      bool      `json:"draft"`
	Candidates []string  `json:"candidates"`
}

// ReleasesResult is the outcome of the releases command.
type ReleasesResult struct {
	Repository string           `json:"repository"`
	Extension  string           `json:"extension"`
	Releases   []ReleaseSummary `json:"releases"`
}

func summarizeRelease(r catalog.Release, ext string) ReleaseSummary {
	candidates := []string{}
	for _, a := range selector.Candidates(r, ext) {
		candidates = append(candidates, a.FileName)
	}
	return ReleaseSummary{
		Name:       r.DisplayName(),
		Tag:        r.Tag,
		CreatedAt:  r.CreatedAt,
		Prerelease: r.Prerelease,
		Draft:      r.Draft,
		Candidates: candidates,
	}
}

func (r ReleasesResult) writeText(w io.Writer) error {
	if len(r.Releases) == 0 {
		_, err := fmt.Fprintf(w, "No releases found for %s\n", r.Repository)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TAG\tNAME\tCREATED\tFLAGS\tASSETS")
	for _, rel := range r.Releases {
		var flags []string
		if rel.Draft {
			flags = append(flags, "draft")
		}
		if rel.Prerelease {
			flags = append(flags, "prerelease")
		}
		created := "-"
		if !rel.CreatedAt.IsZero() {
			created = rel.CreatedAt.Format(time.DateOnly)
		}
		assets := strings.Join(rel.Candidates, ", ")
		if assets == "" {
			assets = "(no " + r.Extension + ")"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			rel.Tag, rel.Name, created, strings.Join(flags, ","), assets)
	}
	return tw.Flush()
}

// AdvisoryResult is the outcome of the advisory command.
type AdvisoryResult struct {
	advisory.Document
	RecommendedRevoked bool `json:"recommended_revoked"`
}

func (r AdvisoryResult) writeText(w io.Writer) error {
	recommended := r.Recommended
	if recommended == "" {
		recommended = "(none)"
	} else if r.RecommendedRevoked {
		recommended += " [revoked]"
	}
	_, _ = fmt.Fprintf(w, "Recommended: %s\n\n", recommended)

	titleCaser := cases.Title(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tTYPE\tSTATUS\tVALID FROM\tVALID TO")
	for _, e := range r.Entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Name, dash(e.Category), titleCaser.String(string(e.Status)), dash(e.ValidFrom), dash(e.ValidTo))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.ChangeLog) > 0 {
		_, _ = fmt.Fprintln(w, "\nUpdates:")
		for _, line := range r.ChangeLog {
			_, _ = fmt.Fprintf(w, "  - %s\n", line)
		}
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// ConfigInitResult is the outcome of the config init command.
type ConfigInitResult struct {
	Path string `json:"path"`
}

func (r ConfigInitResult) writeText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Wrote default configuration to %s\n", r.Path)
	return err
}
