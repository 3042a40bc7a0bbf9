// Package version provides the numeric versions extracted from image tags,
// their ordering, and the classification of an update as compatible or breaking.
package version

import (
	"strconv"
	"strings"
)

// Version holds one unsigned component per pattern placeholder, most significant first.
// Two versions are only meaningfully comparable when extracted with the same pattern.
type Version []uint64

// String joins the components with dots, e.g. "14.4". Leading zeros from the tag are not kept.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, c := range v {
		parts[i] = strconv.FormatUint(c, 10)
	}
	return strings.Join(parts, ".")
}

// Compare orders a and b lexicographically, leftmost component first.
// It returns -1 if a < b, 0 if a == b, and +1 if a > b. When one version is a
// prefix of the other, the shorter one sorts first.
func Compare(a, b Version) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] > b[i] {
				return 1
			}
			return -1
		}
	}
	switch {
	case len(a) > len(b):
		return 1
	case len(a) < len(b):
		return -1
	default:
		return 0
	}
}

// UpdateType is the classification of a newer version relative to the current one.
type UpdateType int

const (
	// UpdateNone means the candidate is not newer than the current version.
	UpdateNone UpdateType = iota
	// UpdateCompatible means the candidate only differs after the breaking degree.
	UpdateCompatible
	// UpdateBreaking means the candidate differs at or before the breaking degree.
	UpdateBreaking
)

// String returns the lower-case name of the update type.
func (u UpdateType) String() string {
	switch u {
	case UpdateCompatible:
		return "compatible"
	case UpdateBreaking:
		return "breaking"
	default:
		return "none"
	}
}

// Classify returns how candidate relates to current. breakingDegree is the placeholder
// index of the last breaking component, or a negative value when the pattern declares none;
// in that case no update is ever breaking. Candidates that are not strictly newer yield UpdateNone.
func Classify(candidate, current Version, breakingDegree int) UpdateType {
	if Compare(candidate, current) <= 0 {
		return UpdateNone
	}

	// Leftmost differing component. If candidate only extends current, the first extra
	// component is where they differ.
	i := 0
	for i < len(candidate) && i < len(current) && candidate[i] == current[i] {
		i++
	}

	if breakingDegree >= 0 && i <= breakingDegree {
		return UpdateBreaking
	}
	return UpdateCompatible
}
