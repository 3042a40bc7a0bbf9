package pattern

import (
	"errors"
	"fmt"
)

// ErrSyntax is matched by every *SyntaxError via errors.Is.
var ErrSyntax = errors.New("invalid version pattern")

// SyntaxError reports a malformed pattern. Offset is the byte position of the problem,
// or -1 when the pattern as a whole is rejected.
type SyntaxError struct {
	Pattern string
	Offset  int
	Reason  string
}

func (e *SyntaxError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%v %q: %s", ErrSyntax, e.Pattern, e.Reason)
	}
	return fmt.Sprintf("%v %q at offset %d: %s", ErrSyntax, e.Pattern, e.Offset, e.Reason)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}
