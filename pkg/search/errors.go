package search

import (
	"fmt"
)

// CurrentTagPatternConflictError is returned when the current tag does not follow the pattern,
// so no version can be derived for comparison.
type CurrentTagPatternConflictError struct {
	Tag     string
	Pattern string
	Err     error
}

func (e *CurrentTagPatternConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("current tag %q does not match pattern %q: %v", e.Tag, e.Pattern, e.Err)
	}
	return fmt.Sprintf("current tag %q does not match pattern %q", e.Tag, e.Pattern)
}

func (e *CurrentTagPatternConflictError) Unwrap() error {
	return e.Err
}

// FetchFailedError wraps an error produced by the tag source.
type FetchFailedError struct {
	Err error
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("failed to fetch tags: %v", e.Err)
}

func (e *FetchFailedError) Unwrap() error {
	return e.Err
}

// CurrentTagNotEncounteredError is returned when the tag source ran out before the current tag
// was seen and no breaking update was found. Examined counts every item pulled.
type CurrentTagNotEncounteredError struct {
	Tag      string
	Examined int
}

func (e *CurrentTagNotEncounteredError) Error() string {
	return fmt.Sprintf("current tag %q not found after examining %d tags", e.Tag, e.Examined)
}
