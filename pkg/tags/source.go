// Package tags defines the pull-based tag stream consumed by the update search,
// together with adapters for paginated registry APIs.
//
// A Source yields tags one at a time in registry order (expected most-recent-first).
// It never reads ahead: pulling k tags fetches no more pages than needed to produce them.
// A fetch failure is reported exactly once; afterwards the source is exhausted.
package tags

import (
	"context"
	"errors"
	"io"
)

// Source is a lazy, single-pass sequence of tags.
//
// Next returns the next tag, io.EOF once the sequence is exhausted, or the error that
// ended it. A Source is owned by one caller and is not safe for concurrent use.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// SourceFunc adapts an ordinary function to the Source interface.
type SourceFunc func(ctx context.Context) (string, error)

// Next calls f(ctx).
func (f SourceFunc) Next(ctx context.Context) (string, error) {
	return f(ctx)
}

// Item is one element of a fixed sequence: either a tag or an error.
type Item struct {
	Tag string
	Err error
}

// FromSlice returns a Source yielding the given tags in order.
func FromSlice(tags ...string) Source {
	items := make([]Item, len(tags))
	for i, t := range tags {
		items[i] = Item{Tag: t}
	}
	return FromItems(items...)
}

// FromItems returns a Source yielding the given items in order. The first error item
// ends the sequence.
func FromItems(items ...Item) Source {
	return &itemSource{items: items}
}

type itemSource struct {
	items []Item
	done  bool
}

func (s *itemSource) Next(_ context.Context) (string, error) {
	if s.done || len(s.items) == 0 {
		return "", io.EOF
	}
	item := s.items[0]
	s.items = s.items[1:]
	if item.Err != nil {
		s.done = true
		return "", item.Err
	}
	return item.Tag, nil
}

// Limit returns a Source that ends after n tags without pulling src again.
// A non-positive n leaves src unbounded.
func Limit(src Source, n int) Source {
	if n <= 0 {
		return src
	}
	remaining := n
	return SourceFunc(func(ctx context.Context) (string, error) {
		if remaining <= 0 {
			return "", io.EOF
		}
		tag, err := src.Next(ctx)
		if err != nil {
			remaining = 0
			return "", err
		}
		remaining--
		return tag, nil
	})
}

// Filter returns a Source yielding only the tags for which keep returns true.
// Errors from src are passed through unchanged.
func Filter(src Source, keep func(string) bool) Source {
	return SourceFunc(func(ctx context.Context) (string, error) {
		for {
			tag, err := src.Next(ctx)
			if err != nil {
				return "", err
			}
			if keep(tag) {
				return tag, nil
			}
		}
	})
}

// Collect pulls up to n tags (all of them when n <= 0) and returns them.
// On error it returns the tags collected so far together with the error.
func Collect(ctx context.Context, src Source, n int) ([]string, error) {
	var out []string
	for n <= 0 || len(out) < n {
		tag, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, tag)
	}
	return out, nil
}
