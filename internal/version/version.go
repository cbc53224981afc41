// Package version provides semantic version parsing of release tags and
// constraint matching.
package version

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// String constants for operations (used in ErrVersionParseFailed)
const (
	OpParseTag        = "parse_tag"
	OpParseConstraint = "parse_constraint"
	OpCompareTags     = "compare_tags"
)

// Custom error types for better error handling and comparison
var (
	ErrInvalidVersion    = errors.New("invalid version format")
	ErrInvalidConstraint = errors.New("invalid version constraint")
)

// ErrVersionParseFailed represents a version parsing error
type ErrVersionParseFailed struct {
	Version string
	Op      string
	Cause   error
}

func (e ErrVersionParseFailed) Error() string {
	return fmt.Sprintf("failed to parse version %s in operation %s: %v", e.Version, e.Op, e.Cause)
}

func (e ErrVersionParseFailed) Unwrap() error {
	return e.Cause
}

func (e ErrVersionParseFailed) Is(target error) bool {
	if target == ErrInvalidVersion {
		return e.Op != OpParseConstraint
	}
	if target == ErrInvalidConstraint {
		return e.Op == OpParseConstraint
	}
	var parseErr ErrVersionParseFailed
	return errors.As(target, &parseErr)
}

// ParseTag parses a release tag such as "v2.1.0" or "2.1.0-beta.1".
func ParseTag(tag string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimSpace(tag))
	if err != nil {
		return nil, ErrVersionParseFailed{
			Version: tag,
			Op:      OpParseTag,
			Cause:   err,
		}
	}
	return v, nil
}

// Constraint matches release tags against a semver range expression.
type Constraint struct {
	raw         string
	constraints *semver.Constraints
}

// NewConstraint parses expr (e.g. ">=2.0, <3"). An empty expression yields a
// constraint that matches every tag.
func NewConstraint(expr string) (*Constraint, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Constraint{}, nil
	}
	c, err := semver.NewConstraint(expr)
	if err != nil {
		return nil, ErrVersionParseFailed{
			Version: expr,
			Op:      OpParseConstraint,
			Cause:   err,
		}
	}
	return &Constraint{raw: expr, constraints: c}, nil
}

// String returns the original expression.
func (c *Constraint) String() string {
	return c.raw
}

// IsEmpty reports whether the constraint matches everything.
func (c *Constraint) IsEmpty() bool {
	return c == nil || c.constraints == nil
}

// Matches reports whether tag satisfies the constraint. Prerelease and
// build metadata are ignored so "v2.0.0-beta" satisfies ">=2". Tags that are
// not semver never satisfy a non-empty constraint.
func (c *Constraint) Matches(tag string) bool {
	if c.IsEmpty() {
		return true
	}
	v, err := ParseTag(tag)
	if err != nil {
		return false
	}
	core := semver.New(v.Major(), v.Minor(), v.Patch(), "", "")
	return c.constraints.Check(core)
}

// CompareTags compares two tags (-1 if a < b, 0 if equal, 1 if a > b).
func CompareTags(a, b string) (int, error) {
	va, err := ParseTag(a)
	if err != nil {
		return 0, ErrVersionParseFailed{Version: a, Op: OpCompareTags, Cause: err}
	}
	vb, err := ParseTag(b)
	if err != nil {
		return 0, ErrVersionParseFailed{Version: b, Op: OpCompareTags, Cause: err}
	}
	return va.Compare(vb), nil
}
