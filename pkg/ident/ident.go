// Package ident provides canonical module identities.
//
// A dependency graph is only as good as its node identity. The file scanner
// reports modules as filesystem paths ("agentpm/cli/utils/project.py") while
// the import parser reports them as dotted names ("agentpm.cli.utils.project").
// Both spellings must map to the same node or dependency chains fragment and
// every downstream metric is corrupted. Normalize is the single funnel through
// which every raw spelling passes before it touches the graph.
//
// Normalization is idempotent: feeding a canonical identity back through
// Normalize yields the same identity. This property is covered by
// property-based tests.
package ident

import (
	"strings"

	"github.com/agentpm/modgraph/pkg/errors"
)

// Identity is a canonical module identifier in dotted form.
// Two raw spellings of the same logical module always produce equal
// identities; equality and map keys are defined on the normalized string.
type Identity string

// String returns the canonical dotted form.
func (id Identity) String() string { return string(id) }

// Rules configures normalization for a source language.
// The zero value is not usable; use DefaultRules or build one from config.
type Rules struct {
	// Extensions are source-file suffixes stripped from the end of an
	// identifier (e.g. ".py"). Matched case-sensitively, longest first
	// is not required since suffixes are stripped repeatedly.
	Extensions []string

	// IndexNames are package-index units collapsed onto their parent
	// package (e.g. "__init__", so "pkg/__init__.py" becomes "pkg").
	IndexNames []string
}

// DefaultRules returns the rules for Python projects, the primary target.
func DefaultRules() Rules {
	return Rules{
		Extensions: []string{".py", ".pyi"},
		IndexNames: []string{"__init__"},
	}
}

// Normalize maps a raw module spelling to its canonical Identity using
// DefaultRules. See Rules.Normalize.
func Normalize(raw string) (Identity, error) {
	return DefaultRules().Normalize(raw)
}

// MustNormalize is a test and fixture helper that panics on invalid input.
func MustNormalize(raw string) Identity {
	id, err := Normalize(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// Normalize maps a raw module spelling to its canonical Identity.
//
// The same steps apply whether raw looks like a filesystem path or an
// already-dotted import name:
//
//  1. Path separators ('/' and '\') become segment boundaries; empty and
//     "." segments are dropped.
//  2. Trailing source-file extensions are stripped.
//  3. Trailing package-index segments are collapsed onto the parent.
//  4. Segments are joined with ".".
//
// Steps 2 and 3 repeat until a fixpoint so that normalization is idempotent
// even for degenerate spellings like "pkg/__init__/__init__.py".
//
// Returns an error with code INVALID_IDENTIFIER when raw is empty,
// whitespace-only, or normalizes to nothing (e.g. ".py").
func (r Rules) Normalize(raw string) (Identity, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", errors.New(errors.ErrCodeInvalidIdentifier, "empty module identifier")
	}

	s = strings.ReplaceAll(s, "\\", "/")
	parts := strings.Split(s, "/")
	segments := parts[:0]
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		segments = append(segments, p)
	}
	s = strings.Join(segments, ".")

	for {
		next := r.stripExtension(s)
		next = r.stripIndex(next)
		if next == s {
			break
		}
		s = next
	}

	if s == "" {
		return "", errors.New(errors.ErrCodeInvalidIdentifier, "identifier %q normalizes to nothing", raw)
	}
	return Identity(s), nil
}

func (r Rules) stripExtension(s string) string {
	for _, ext := range r.Extensions {
		if ext != "" && strings.HasSuffix(s, ext) {
			return s[:len(s)-len(ext)]
		}
	}
	return s
}

func (r Rules) stripIndex(s string) string {
	for _, idx := range r.IndexNames {
		if idx == "" {
			continue
		}
		if strings.HasSuffix(s, "."+idx) {
			return s[:len(s)-len(idx)-1]
		}
	}
	return s
}
