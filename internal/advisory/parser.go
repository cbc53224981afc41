// Package advisory parses the certificate advisory README into a recommendation,
// a table of signing-identity entries and a change log.
//
// The source document is hand-authored markdown. Parsing is best-effort: a
// missing or malformed section yields an empty result, never an error.
package advisory

import (
	"regexp"
	"strings"
)

// Status is the classification of an advisory entry.
type Status string

const (
	StatusSigned  Status = "signed"
	StatusRevoked Status = "revoked"
	StatusUnknown Status = "unknown"
)

const (
	tableHeaderPrefix = "| company |"
	updatesHeading    = "updates"
	revokedKeyword    = "revok"
	revokedGlyph      = "❌"
	suffixSeparator   = " - "
	minChangeLogLen   = 3
)

var recommendationMarkers = []string{
	"recommend certificate",
	"recommended certificate",
}

var (
	markdownLinkRe = regexp.MustCompile(`\[[^\]]*?\]\((https?://[^)\s]+)\)`)
	bareURLRe      = regexp.MustCompile(`https?://\S+`)
	blockquoteRe   = regexp.MustCompile(`^>\s?`)
	quoteReplacer  = strings.NewReplacer(`"`, "", "`", "", "“", "", "”", "")
)

// Entry is one row of the advisory table.
type Entry struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Status      Status `json:"status"`
	RawStatus   string `json:"raw_status,omitempty"`
	ValidFrom   string `json:"valid_from,omitempty"`
	ValidTo     string `json:"valid_to,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

// Revoked reports whether the entry is classified as revoked.
func (e Entry) Revoked() bool {
	return e.Status == StatusRevoked
}

// Document is the parsed advisory.
type Document struct {
	// Recommended is the bare name of the recommended entry, or "" when the
	// document has no usable recommendation.
	Recommended string   `json:"recommended,omitempty"`
	Entries     []Entry  `json:"entries"`
	ChangeLog   []string `json:"change_log"`
}

// HasRecommendation reports whether a recommendation was found.
func (d Document) HasRecommendation() bool {
	return d.Recommended != ""
}

// Entry returns the entry whose name matches name, ignoring case and
// surrounding whitespace.
func (d Document) Entry(name string) (Entry, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Entry{}, false
	}
	for _, e := range d.Entries {
		if strings.ToLower(e.Name) == key {
			return e, true
		}
	}
	return Entry{}, false
}

// RecommendedEntry returns the table entry named by the recommendation.
func (d Document) RecommendedEntry() (Entry, bool) {
	return d.Entry(d.Recommended)
}

// Parse extracts the recommendation, entries and change log from markdown.
func Parse(markdown string) Document {
	lines := strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n")
	return Document{
		Recommended: parseRecommendation(lines),
		Entries:     parseTable(lines),
		ChangeLog:   parseChangeLog(lines),
	}
}

func parseRecommendation(lines []string) string {
	start := -1
	for i, line := range lines {
		text, ok := headingText(line)
		if !ok {
			continue
		}
		for _, marker := range recommendationMarkers {
			if strings.HasPrefix(text, marker) {
				start = i
				break
			}
		}
		if start != -1 {
			break
		}
	}
	if start == -1 {
		return ""
	}

	for _, line := range lines[start+1:] {
		ln := strings.TrimSpace(line)
		if ln == "" {
			continue
		}
		return BareName(ln)
	}
	return ""
}

// BareName reduces a recommendation line to its identifying phrase: emphasis,
// blockquote and quote markup are removed and a trailing " - <status>"
// annotation is dropped.
func BareName(line string) string {
	s := stripEmphasis(line)
	s = strings.TrimSpace(blockquoteRe.ReplaceAllString(s, ""))
	s = quoteReplacer.Replace(s)
	if idx := strings.Index(s, suffixSeparator); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func parseTable(lines []string) []Entry {
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), tableHeaderPrefix) {
			start = i
			break
		}
	}
	if start == -1 {
		return nil
	}

	var entries []Entry
	for i := start + 2; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "|") {
			break
		}
		parts := strings.Split(line, "|")
		for j := range parts {
			parts[j] = strings.TrimSpace(parts[j])
		}

		name := stripEmphasis(cell(parts, 1))
		if name == "" {
			continue
		}
		rawStatus := stripEmphasis(cell(parts, 3))
		entries = append(entries, Entry{
			Name:        name,
			Category:    stripEmphasis(cell(parts, 2)),
			Status:      ClassifyStatus(rawStatus),
			RawStatus:   rawStatus,
			ValidFrom:   stripEmphasis(cell(parts, 4)),
			ValidTo:     stripEmphasis(cell(parts, 5)),
			DownloadURL: ExtractURL(cell(parts, 6)),
		})
	}
	return entries
}

// ClassifyStatus maps a free-form status cell onto the closed Status set.
func ClassifyStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return StatusUnknown
	case strings.Contains(s, revokedKeyword), strings.Contains(s, revokedGlyph):
		return StatusRevoked
	default:
		return StatusSigned
	}
}

// ExtractURL resolves a download cell to a URL. A markdown link wins over a
// bare URL; neither yields "".
func ExtractURL(s string) string {
	if s == "" {
		return ""
	}
	if m := markdownLinkRe.FindStringSubmatch(s); len(m) == 2 {
		return m[1]
	}
	return bareURLRe.FindString(s)
}

func parseChangeLog(lines []string) []string {
	start := -1
	for i, line := range lines {
		if text, ok := headingText(line); ok && text == updatesHeading {
			start = i
			break
		}
	}
	if start == -1 {
		return nil
	}

	var updates []string
	for _, line := range lines[start+1:] {
		ln := strings.TrimSpace(line)
		if ln == "" {
			continue
		}
		if strings.HasPrefix(ln, "#") {
			break
		}
		if isHorizontalRule(ln) {
			continue
		}
		ln = stripEmphasis(ln)
		if len([]rune(ln)) < minChangeLogLen {
			continue
		}
		updates = append(updates, ln)
	}
	return updates
}

// headingText returns the lower-cased text of a markdown heading line.
func headingText(line string) (string, bool) {
	ln := strings.TrimSpace(line)
	if !strings.HasPrefix(ln, "#") {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(strings.TrimLeft(ln, "#"))), true
}

func isHorizontalRule(s string) bool {
	switch strings.ReplaceAll(s, " ", "") {
	case "---", "***", "___":
		return true
	}
	return len(s) > 3 && strings.Trim(s, "-") == ""
}

func stripEmphasis(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}

func cell(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}
