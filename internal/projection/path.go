package projection

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/sparkmeter/nquery/internal/common/nqerrors"
)

const (
	separator        = "."
	pathArgumentName = "field"
)

// Path is a parsed field path such as "Meta.data-source".
// Segments are split lexically on "."; there is no escape syntax, so a key that itself
// contains a "." can't be addressed.
type Path struct {
	literal  string
	segments []string
}

// ParsePath parses a dotted field path. The path must be non-empty and contain no empty segments,
// i.e., "", ".", "a.", ".a" and "a..b" are all rejected.
func ParsePath(raw string) (Path, error) {
	if raw == "" {
		return Path{}, invalidPath(raw, "path is empty")
	}
	segments := strings.Split(raw, separator)
	for _, segment := range segments {
		if segment == "" {
			return Path{}, invalidPath(raw, "path contains an empty segment")
		}
	}
	return Path{literal: raw, segments: segments}, nil
}

// ParsePaths parses each of raws in order. Exact duplicates are dropped, keeping the first occurrence,
// so the result is an ordered set keyed by the literal path. All malformed paths are reported together.
func ParsePaths(raws []string) ([]Path, error) {
	var result *multierror.Error
	paths := make([]Path, 0, len(raws))
	seen := make(map[string]bool, len(raws))
	for _, raw := range raws {
		p, err := ParsePath(raw)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if seen[p.literal] {
			continue
		}
		seen[p.literal] = true
		paths = append(paths, p)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return paths, nil
}

// MustParsePath is like ParsePath but panics on error. Intended for tests and constants.
func MustParsePath(raw string) Path {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the path exactly as it was given, which is also its key in projected records.
func (p Path) String() string {
	return p.literal
}

// Segments returns a copy of the keys making up the path.
func (p Path) Segments() []string {
	return slices.Clone(p.segments)
}

func (p Path) Len() int {
	return len(p.segments)
}

// IsInvalidPath returns true if err, or any error it wraps or aggregates, was returned by ParsePath.
func IsInvalidPath(err error) bool {
	var e *nqerrors.ErrInvalidArgument
	return errors.As(err, &e) && e.Name == pathArgumentName
}

func invalidPath(raw string, message string) error {
	return errors.WithStack(&nqerrors.ErrInvalidArgument{
		Name:    pathArgumentName,
		Value:   raw,
		Message: message,
	})
}
