// Package extractor recognizes tags that follow a compiled version pattern and turns them
// into comparable versions.
package extractor

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/lucas-albers-lz4/updock/pkg/pattern"
	"github.com/lucas-albers-lz4/updock/pkg/tags"
	"github.com/lucas-albers-lz4/updock/pkg/version"
)

// ErrNoMatch is returned by Extract when a tag does not follow the pattern.
// It signals "skip this tag", not a failure.
var ErrNoMatch = errors.New("tag does not match pattern")

// ComponentOverflowError reports a digit run too large for a version component.
type ComponentOverflowError struct {
	Tag    string
	Digits string
	Err    error
}

func (e *ComponentOverflowError) Error() string {
	return fmt.Sprintf("tag %q: component %q does not fit in 64 bits", e.Tag, e.Digits)
}

func (e *ComponentOverflowError) Unwrap() error {
	return e.Err
}

// Extractor extracts versions from tags using one compiled pattern.
type Extractor struct {
	pattern *pattern.Pattern
}

// New returns an Extractor for a compiled pattern.
func New(p *pattern.Pattern) *Extractor {
	return &Extractor{pattern: p}
}

// Parse compiles source and returns an Extractor for it.
func Parse(source string) (*Extractor, error) {
	p, err := pattern.Compile(source)
	if err != nil {
		return nil, err
	}
	return New(p), nil
}

// Pattern returns the compiled pattern.
func (e *Extractor) Pattern() *pattern.Pattern {
	return e.pattern
}

// String returns the pattern source.
func (e *Extractor) String() string {
	return e.pattern.String()
}

// BreakingDegree returns the breaking degree in the form expected by version.Classify:
// a negative value when the pattern has no breaking placeholder.
func (e *Extractor) BreakingDegree() int {
	degree, ok := e.pattern.BreakingDegree()
	if !ok {
		return -1
	}
	return degree
}

// Extract parses tag into a Version. It returns ErrNoMatch when the tag does not follow
// the pattern and a *ComponentOverflowError when a component exceeds uint64.
func (e *Extractor) Extract(tag string) (version.Version, error) {
	runs, ok := e.pattern.Match(tag)
	if !ok {
		return nil, ErrNoMatch
	}
	v := make(version.Version, len(runs))
	for i, digits := range runs {
		n, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			return nil, &ComponentOverflowError{Tag: tag, Digits: digits, Err: err}
		}
		v[i] = n
	}
	return v, nil
}

// ExtractFrom is Extract reduced to "version or no match". Overflowing components are
// reported as no match; use Extract to tell them apart.
func (e *Extractor) ExtractFrom(tag string) (version.Version, bool) {
	v, err := e.Extract(tag)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Matches reports whether tag yields a version.
func (e *Extractor) Matches(tag string) bool {
	_, ok := e.ExtractFrom(tag)
	return ok
}

// Filter returns a lazy Source of the tags from src that yield a version.
func (e *Extractor) Filter(src tags.Source) tags.Source {
	return tags.Filter(src, e.Matches)
}

// FilterSlice returns the tags that yield a version, preserving order.
func (e *Extractor) FilterSlice(in []string) []string {
	out := make([]string, 0, len(in))
	for _, tag := range in {
		if e.Matches(tag) {
			out = append(out, tag)
		}
	}
	return out
}
