// Package search finds the newest compatible and breaking updates for a tag in a
// newest-first tag stream.
package search

import (
	"context"
	"errors"
	"io"

	"github.com/lucas-albers-lz4/updock/pkg/extractor"
	log "github.com/lucas-albers-lz4/updock/pkg/log"
	"github.com/lucas-albers-lz4/updock/pkg/tags"
	"github.com/lucas-albers-lz4/updock/pkg/version"
)

// Update is the result of one search. An empty field means no update of that kind;
// registries never serve empty tags.
type Update struct {
	Compatible string `json:"compatible,omitempty"`
	Breaking   string `json:"breaking,omitempty"`
}

// HasCompatible reports whether a compatible update was found.
func (u Update) HasCompatible() bool { return u.Compatible != "" }

// HasBreaking reports whether a breaking update was found.
func (u Update) HasBreaking() bool { return u.Breaking != "" }

// IsZero reports whether no update was found.
func (u Update) IsZero() bool { return !u.HasCompatible() && !u.HasBreaking() }

// FindUpdate scans src once, front to back, looking for updates of currentTag.
//
// src is assumed to produce tags newest-first. Reaching currentTag ends the search, the
// first compatible update ends it as well, and only the first breaking update is kept.
// The source is never pulled after the search has decided.
func FindUpdate(ctx context.Context, src tags.Source, currentTag string, ext *extractor.Extractor) (Update, error) {
	current, err := ext.Extract(currentTag)
	if err != nil {
		return Update{}, &CurrentTagPatternConflictError{Tag: currentTag, Pattern: ext.String(), Err: err}
	}
	degree := ext.BreakingDegree()

	var (
		update   Update
		examined int
	)
	for {
		tag, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		examined++
		if err != nil {
			return Update{}, &FetchFailedError{Err: err}
		}

		if tag == currentTag {
			log.Debug("Reached current tag", "tag", tag, "examined", examined)
			return update, nil
		}

		candidate, err := ext.Extract(tag)
		if err != nil {
			var overflow *extractor.ComponentOverflowError
			if errors.As(err, &overflow) {
				log.Warn("Skipping tag with oversized version component", "tag", tag, "component", overflow.Digits)
			} else {
				log.Debug("Skipping tag", "tag", tag, "reason", "no match")
			}
			continue
		}
		if version.Compare(candidate, current) <= 0 {
			log.Debug("Skipping tag", "tag", tag, "reason", "not newer")
			continue
		}

		switch version.Classify(candidate, current, degree) {
		case version.UpdateCompatible:
			log.Debug("Found compatible update", "tag", tag, "examined", examined)
			update.Compatible = tag
			return update, nil
		case version.UpdateBreaking:
			if update.Breaking == "" {
				log.Debug("Found breaking update", "tag", tag, "examined", examined)
				update.Breaking = tag
			}
		}
	}

	if update.HasBreaking() {
		return update, nil
	}
	return Update{}, &CurrentTagNotEncounteredError{Tag: currentTag, Examined: examined}
}
