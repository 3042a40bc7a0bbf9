// Package dockerfile finds annotated FROM instructions in Dockerfiles.
//
// An image is checked when the FROM line is preceded by a comment of the form
//
//	# updock pattern: "<!>.<>"
//
// FROM lines without such a comment are ignored.
package dockerfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	log "github.com/lucas-albers-lz4/updock/pkg/log"
)

// AnnotationPrefix starts the comment that declares the version pattern of the next FROM.
const AnnotationPrefix = "updock pattern:"

// ErrMalformed is matched by every *ParseError.
var ErrMalformed = errors.New("malformed Dockerfile")

// ParseError reports a structural problem at a line of a Dockerfile.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformed
}

// Statement is an annotated FROM instruction.
type Statement struct {
	// Line is the 1-based line of the FROM instruction
	Line int `json:"line"`
	// Image is the image reference as written
	Image string `json:"image"`
	// Pattern is the declared version pattern, not yet compiled
	Pattern string `json:"pattern"`
	// Stage is the build stage name given with AS, if any
	Stage string `json:"stage,omitempty"`
	// Platform is the value of --platform, if any
	Platform string `json:"platform,omitempty"`
}

// Load reads and parses the Dockerfile at path.
func Load(fs afero.Fs, path string) ([]Statement, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read Dockerfile %s", path)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn("Failed to close Dockerfile", "path", path, "error", closeErr)
		}
	}()

	statements, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse Dockerfile %s", path)
	}
	log.Debug("Parsed Dockerfile", "path", path, "annotated", len(statements))
	return statements, nil
}

// Parse returns the annotated FROM instructions of a Dockerfile in file order.
func Parse(r io.Reader) ([]Statement, error) {
	var (
		statements []Statement
		pending    *Statement // annotation waiting for its FROM
		lineNo     int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			pattern, isAnnotation, err := ParseAnnotation(line)
			if err != nil {
				return nil, &ParseError{Line: lineNo, Reason: err.Error()}
			}
			if !isAnnotation {
				continue
			}
			if pending != nil {
				return nil, &ParseError{Line: pending.Line, Reason: "pattern annotation is not followed by a FROM instruction"}
			}
			pending = &Statement{Line: lineNo, Pattern: pattern}
			continue
		}

		instruction := strings.Fields(line)[0]
		args := strings.TrimSpace(line[len(instruction):])
		if !strings.EqualFold(instruction, "FROM") {
			if pending != nil {
				return nil, &ParseError{Line: pending.Line, Reason: "pattern annotation is not followed by a FROM instruction"}
			}
			continue
		}
		if pending == nil {
			continue
		}

		stmt, err := parseFrom(args)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Reason: err.Error()}
		}
		stmt.Line = lineNo
		stmt.Pattern = pending.Pattern
		statements = append(statements, stmt)
		pending = nil
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read Dockerfile")
	}
	if pending != nil {
		return nil, &ParseError{Line: pending.Line, Reason: "pattern annotation is not followed by a FROM instruction"}
	}
	return statements, nil
}

// ParseAnnotation recognizes a `# updock pattern: "<p>"` comment and returns the pattern.
// It reports false for ordinary comments. The leading '#' is optional.
func ParseAnnotation(comment string) (string, bool, error) {
	comment = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(comment), "#"))
	rest, ok := strings.CutPrefix(comment, AnnotationPrefix)
	if !ok {
		return "", false, nil
	}
	rest = strings.TrimSpace(rest)
	pattern, err := strconv.Unquote(rest)
	if err != nil || pattern == "" {
		return "", true, fmt.Errorf("pattern annotation must be a non-empty quoted string, got %s", rest)
	}
	return pattern, true, nil
}

// parseFrom parses the arguments of `FROM [--platform=<p>] <image> [AS <name>]`.
func parseFrom(args string) (Statement, error) {
	var stmt Statement
	fields := strings.Fields(args)
	for len(fields) > 0 && strings.HasPrefix(fields[0], "--") {
		if value, ok := strings.CutPrefix(fields[0], "--platform="); ok {
			stmt.Platform = value
		}
		fields = fields[1:]
	}

	switch {
	case len(fields) == 1:
	case len(fields) == 3 && strings.EqualFold(fields[1], "AS"):
		stmt.Stage = fields[2]
	case len(fields) == 0:
		return stmt, errors.New("FROM instruction has no image")
	default:
		return stmt, fmt.Errorf("unexpected FROM arguments %q", args)
	}
	stmt.Image = fields[0]
	return stmt, nil
}
