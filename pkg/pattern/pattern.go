// Package pattern compiles version patterns such as "<!>.<>-alpine" into an immutable
// sequence of segments and matches tags against them.
//
// A pattern mixes literal text with two placeholder markers:
//
//	<!>  a numeric component whose change breaks compatibility
//	<>   a plain numeric component
//
// Every placeholder matches one run of ASCII digits. Literal text must appear verbatim.
package pattern

import (
	"strings"
)

// Placeholder markers recognized by Compile.
const (
	BreakingMarker = "<!>"
	PlainMarker    = "<>"
)

// Kind distinguishes literal segments from placeholders.
type Kind int

const (
	// KindLiteral matches its Text exactly.
	KindLiteral Kind = iota
	// KindPlaceholder matches a maximal, non-empty run of decimal digits.
	KindPlaceholder
)

// Segment is one compiled element of a pattern.
type Segment struct {
	Kind Kind
	// Text is the literal text (KindLiteral only).
	Text string
	// Breaking marks a placeholder declared with "<!>" (KindPlaceholder only).
	Breaking bool
}

// Literal returns a literal segment.
func Literal(text string) Segment {
	return Segment{Kind: KindLiteral, Text: text}
}

// Placeholder returns a placeholder segment.
func Placeholder(breaking bool) Segment {
	return Segment{Kind: KindPlaceholder, Breaking: breaking}
}

// Pattern is a compiled version pattern. It is safe for concurrent use.
type Pattern struct {
	source         string
	segments       []Segment
	placeholders   int
	breakingDegree int
}

// Compile parses a pattern string. It fails with a *SyntaxError when the pattern has no
// placeholder, contains a '<' that does not open "<>" or "<!>", contains a stray '>',
// or places two placeholders next to each other.
func Compile(source string) (*Pattern, error) {
	p := &Pattern{source: source, breakingDegree: -1}

	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			p.segments = append(p.segments, Literal(literal.String()))
			literal.Reset()
		}
	}
	addPlaceholder := func(offset int, breaking bool) error {
		flush()
		if n := len(p.segments); n > 0 && p.segments[n-1].Kind == KindPlaceholder {
			return &SyntaxError{Pattern: source, Offset: offset, Reason: "placeholders must be separated by literal text"}
		}
		if breaking {
			p.breakingDegree = p.placeholders
		}
		p.placeholders++
		p.segments = append(p.segments, Placeholder(breaking))
		return nil
	}

	for i := 0; i < len(source); {
		rest := source[i:]
		switch {
		case strings.HasPrefix(rest, BreakingMarker):
			if err := addPlaceholder(i, true); err != nil {
				return nil, err
			}
			i += len(BreakingMarker)
		case strings.HasPrefix(rest, PlainMarker):
			if err := addPlaceholder(i, false); err != nil {
				return nil, err
			}
			i += len(PlainMarker)
		case source[i] == '<':
			return nil, &SyntaxError{Pattern: source, Offset: i, Reason: `"<" must start "<>" or "<!>"`}
		case source[i] == '>':
			return nil, &SyntaxError{Pattern: source, Offset: i, Reason: `unexpected ">"`}
		default:
			literal.WriteByte(source[i])
			i++
		}
	}
	flush()

	if p.placeholders == 0 {
		return nil, &SyntaxError{Pattern: source, Offset: -1, Reason: "at least one placeholder (<> or <!>) is required"}
	}
	return p, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and constants.
func MustCompile(source string) *Pattern {
	p, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source text of the pattern.
func (p *Pattern) String() string {
	return p.source
}

// Segments returns a copy of the compiled segments.
func (p *Pattern) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// Placeholders returns the number of numeric components a matching tag yields.
func (p *Pattern) Placeholders() int {
	return p.placeholders
}

// BreakingDegree returns the index, among placeholders, of the last breaking placeholder.
// ok is false when the pattern has no breaking placeholder.
func (p *Pattern) BreakingDegree() (degree int, ok bool) {
	return p.breakingDegree, p.breakingDegree >= 0
}

// Match scans s from left to right and returns the digit run captured by each placeholder.
// It only succeeds when the whole string is consumed.
func (p *Pattern) Match(s string) ([]string, bool) {
	runs := make([]string, 0, p.placeholders)
	pos := 0
	for _, seg := range p.segments {
		switch seg.Kind {
		case KindLiteral:
			if !strings.HasPrefix(s[pos:], seg.Text) {
				return nil, false
			}
			pos += len(seg.Text)
		case KindPlaceholder:
			end := pos
			for end < len(s) && isDigit(s[end]) {
				end++
			}
			if end == pos {
				return nil, false
			}
			runs = append(runs, s[pos:end])
			pos = end
		}
	}
	if pos != len(s) {
		return nil, false
	}
	return runs, true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
