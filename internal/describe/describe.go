// Package describe resolves a human-readable build identifier from the
// version-control state of a source tree.  Each backend (local git
// binary, git inside a container) implements the Describer interface so
// callers never depend on the ambient working directory directly.
package describe

import (
	"context"
	"errors"
	"strings"
)

// Fallback is the descriptor used whenever the query cannot produce one.
const Fallback = "unknown"

// DescribeArgs is the query every backend runs: nearest reachable tag
// (lightweight tags included), hash abbreviated to 4 hex digits, a
// "-dirty" suffix for uncommitted changes, and a bare hash when no tag
// exists.
var DescribeArgs = []string{"describe", "--abbrev=4", "--dirty", "--always", "--tags"}

var (
	// ErrNotASCII is returned when the query output contains non-ASCII bytes.
	ErrNotASCII = errors.New("describe output is not ASCII")

	// ErrEmptyDescriptor is returned when the query succeeded but printed nothing.
	ErrEmptyDescriptor = errors.New("describe output is empty")
)

// Describer is a queryable handle on a repository.
type Describer interface {
	// Describe returns the trimmed descriptor for the current revision.
	Describe(ctx context.Context) (string, error)
}

// Resolve returns the descriptor reported by d, or Fallback on any
// failure.  The returned string is always non-empty and usable.  The
// error is informational only: it carries the query failure cause for
// logging and is nil when the descriptor is genuine.
func Resolve(ctx context.Context, d Describer) (string, error) {
	if d == nil {
		return Fallback, errors.New("no describer configured")
	}
	desc, err := d.Describe(ctx)
	if err != nil {
		return Fallback, err
	}
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return Fallback, ErrEmptyDescriptor
	}
	return desc, nil
}

// decode converts raw query output to a descriptor.
func decode(out []byte) (string, error) {
	for _, b := range out {
		if b > 0x7f {
			return "", ErrNotASCII
		}
	}
	desc := strings.TrimSpace(string(out))
	if desc == "" {
		return "", ErrEmptyDescriptor
	}
	return desc, nil
}
