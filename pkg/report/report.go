// Package report collects the outcome of checking a set of images and renders it as text or JSON.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iancoleman/orderedmap"
	"github.com/mattn/go-runewidth"

	"github.com/lucas-albers-lz4/updock/pkg/search"
)

// Level summarizes a report. Higher levels take precedence.
type Level int

const (
	// LevelNoUpdates means every image is up to date.
	LevelNoUpdates Level = iota
	// LevelCompatible means at least one compatible update and no breaking update or failure.
	LevelCompatible
	// LevelBreaking means at least one breaking update and no failure.
	LevelBreaking
	// LevelFailure means at least one image could not be checked.
	LevelFailure
)

func (l Level) String() string {
	switch l {
	case LevelNoUpdates:
		return "no updates"
	case LevelCompatible:
		return "compatible update"
	case LevelBreaking:
		return "breaking update"
	case LevelFailure:
		return "failure"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Entry is the outcome for one image.
type Entry struct {
	// Name identifies the image in output, e.g. "ubuntu:18.04" or "web: ubuntu:18.04"
	Name   string
	Update search.Update
	Err    error
}

// Report holds entries in the order they were added.
type Report struct {
	// Kind describes the checked input, e.g. "Dockerfile"
	Kind string
	// Path is the checked file, or the image for single-image checks
	Path    string
	entries []Entry
}

// New returns an empty report.
func New(kind, path string) *Report {
	return &Report{Kind: kind, Path: path}
}

// AddUpdate records a successful check.
func (r *Report) AddUpdate(name string, u search.Update) {
	r.entries = append(r.entries, Entry{Name: name, Update: u})
}

// AddFailure records a failed check.
func (r *Report) AddFailure(name string, err error) {
	r.entries = append(r.entries, Entry{Name: name, Err: err})
}

// Entries returns all entries.
func (r *Report) Entries() []Entry {
	return r.entries
}

// Failures returns the failed entries.
func (r *Report) Failures() []Entry {
	return r.filter(func(e Entry) bool { return e.Err != nil })
}

// NoUpdates returns the entries without any update.
func (r *Report) NoUpdates() []Entry {
	return r.filter(func(e Entry) bool { return e.Err == nil && e.Update.IsZero() })
}

// CompatibleUpdates returns the entries with a compatible update.
func (r *Report) CompatibleUpdates() []Entry {
	return r.filter(func(e Entry) bool { return e.Err == nil && e.Update.HasCompatible() })
}

// BreakingUpdates returns the entries with a breaking update. An entry may have both kinds.
func (r *Report) BreakingUpdates() []Entry {
	return r.filter(func(e Entry) bool { return e.Err == nil && e.Update.HasBreaking() })
}

func (r *Report) filter(keep func(Entry) bool) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Level returns the most severe outcome in the report.
func (r *Report) Level() Level {
	level := LevelNoUpdates
	for _, e := range r.entries {
		switch {
		case e.Err != nil:
			return LevelFailure
		case e.Update.HasBreaking():
			level = max(level, LevelBreaking)
		case e.Update.HasCompatible():
			level = max(level, LevelCompatible)
		}
	}
	return level
}

// WriteText renders the report for humans. Failures go to errOut, everything else to out.
func (r *Report) WriteText(out, errOut io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Report for %s at `%s`:\n\n", r.Kind, r.Path)

	if failures := r.Failures(); len(failures) > 0 {
		var eb strings.Builder
		eb.WriteString("Failures:\n")
		writeRows(&eb, failures, func(e Entry) string { return e.Err.Error() })
		if _, err := io.WriteString(errOut, eb.String()+"\n"); err != nil {
			return err
		}
	}

	sections := []struct {
		title   string
		entries []Entry
		detail  func(Entry) string
	}{
		{"No updates", r.NoUpdates(), func(Entry) string { return "" }},
		{"Compatible updates", r.CompatibleUpdates(), func(e Entry) string { return "-> " + e.Update.Compatible }},
		{"Breaking updates", r.BreakingUpdates(), func(e Entry) string { return "-> " + e.Update.Breaking }},
	}
	for _, s := range sections {
		if len(s.entries) == 0 {
			fmt.Fprintf(&b, "%s: none\n", s.title)
			continue
		}
		fmt.Fprintf(&b, "%s:\n", s.title)
		writeRows(&b, s.entries, s.detail)
	}

	_, err := io.WriteString(out, b.String())
	return err
}

// writeRows writes one indented line per entry with the details aligned in a column.
func writeRows(b *strings.Builder, entries []Entry, detail func(Entry) string) {
	width := 0
	for _, e := range entries {
		width = max(width, runewidth.StringWidth(e.Name))
	}
	for _, e := range entries {
		d := detail(e)
		if d == "" {
			fmt.Fprintf(b, "  %s\n", e.Name)
			continue
		}
		fmt.Fprintf(b, "  %s  %s\n", runewidth.FillRight(e.Name, width), d)
	}
}

// MarshalJSON renders the report as an object whose buckets keep the insertion order:
// path, failures (name to message), no_updates (names), compatible_updates and
// breaking_updates (name to tag).
func (r *Report) MarshalJSON() ([]byte, error) {
	failures := orderedmap.New()
	for _, e := range r.Failures() {
		failures.Set(e.Name, e.Err.Error())
	}
	noUpdates := make([]string, 0)
	for _, e := range r.NoUpdates() {
		noUpdates = append(noUpdates, e.Name)
	}
	compatible := orderedmap.New()
	for _, e := range r.CompatibleUpdates() {
		compatible.Set(e.Name, e.Update.Compatible)
	}
	breaking := orderedmap.New()
	for _, e := range r.BreakingUpdates() {
		breaking.Set(e.Name, e.Update.Breaking)
	}

	data := orderedmap.New()
	data.SetEscapeHTML(false)
	data.Set("path", r.Path)
	data.Set("failures", failures)
	data.Set("no_updates", noUpdates)
	data.Set("compatible_updates", compatible)
	data.Set("breaking_updates", breaking)
	for _, m := range []*orderedmap.OrderedMap{failures, compatible, breaking} {
		m.SetEscapeHTML(false)
	}
	return data.MarshalJSON()
}

// WriteJSON writes the report as indented JSON followed by a newline.
func (r *Report) WriteJSON(w io.Writer) error {
	raw, err := r.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}
