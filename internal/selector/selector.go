// Package selector picks the single downloadable artifact to install from an
// ordered list of eligible releases, optionally steered by an advisory
// recommendation.
package selector

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/prostore-ios/installer/internal/catalog"
)

const (
	// DefaultExtension is the distributable artifact extension for iOS.
	DefaultExtension = ".ipa"

	signedMarker = "signed"
)

// ErrNoAsset is returned once every eligible release has been scanned without
// finding a candidate artifact.
var ErrNoAsset = errors.New("no eligible asset")

// Selection is the outcome of Select.
type Selection struct {
	Release catalog.Release
	Asset   catalog.Asset
	// MatchedRecommendation is true when the recommendation steered the choice.
	MatchedRecommendation bool
}

// Select chooses one asset from releases, which must already be in filter
// order. ext is the platform artifact extension; empty means DefaultExtension.
func Select(releases []catalog.Release, recommended, ext string) (Selection, error) {
	if ext == "" {
		ext = DefaultExtension
	}

	if key := Normalize(recommended); key != "" {
		if sel, ok := selectRecommended(releases, key, ext); ok {
			return sel, nil
		}
	}

	for _, r := range releases {
		candidates := Candidates(r, ext)
		if len(candidates) == 0 {
			continue
		}
		return Selection{Release: r, Asset: preferred(candidates)}, nil
	}
	return Selection{}, ErrNoAsset
}

func selectRecommended(releases []catalog.Release, key, ext string) (Selection, bool) {
	for _, r := range releases {
		candidates := Candidates(r, ext)
		if len(candidates) == 0 {
			continue
		}
		for _, a := range candidates {
			if strings.Contains(Normalize(a.FileName), key) {
				return Selection{Release: r, Asset: a, MatchedRecommendation: true}, true
			}
		}
		if strings.Contains(Normalize(r.Name+" "+r.Tag+" "+r.Body), key) {
			return Selection{Release: r, Asset: preferred(candidates), MatchedRecommendation: true}, true
		}
	}
	return Selection{}, false
}

// Candidates returns the release's assets whose file name ends with ext,
// case-insensitively, in listed order.
func Candidates(r catalog.Release, ext string) []catalog.Asset {
	ext = strings.ToLower(ext)
	var out []catalog.Asset
	for _, a := range r.Assets {
		if strings.HasSuffix(strings.ToLower(a.FileName), ext) {
			out = append(out, a)
		}
	}
	return out
}

func preferred(candidates []catalog.Asset) catalog.Asset {
	for _, a := range candidates {
		if strings.Contains(strings.ToLower(a.FileName), signedMarker) {
			return a
		}
	}
	return candidates[0]
}

// Normalize case-folds s and collapses every run of non-alphanumeric
// characters into a single space.
func Normalize(s string) string {
	folded := cases.Fold().String(s)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}
