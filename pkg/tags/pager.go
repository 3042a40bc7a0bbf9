package tags

import (
	"context"
	"errors"
	"fmt"
	"io"

	log "github.com/lucas-albers-lz4/updock/pkg/log"
)

// ErrStalledPagination is returned when a registry hands back an empty page whose
// continuation cursor is the one just requested.
var ErrStalledPagination = errors.New("registry pagination did not advance")

// Page is one response of a cursor-paginated tag listing.
type Page struct {
	Tags []string
	// Next is the opaque cursor of the following page; empty on the last page.
	Next string
}

// PageFetcher retrieves a single page. An empty cursor requests the first page.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string) (Page, error)
}

// PageFetcherFunc adapts an ordinary function to the PageFetcher interface.
type PageFetcherFunc func(ctx context.Context, cursor string) (Page, error)

// FetchPage calls f(ctx, cursor).
func (f PageFetcherFunc) FetchPage(ctx context.Context, cursor string) (Page, error) {
	return f(ctx, cursor)
}

// Pager turns a PageFetcher into a Source. A page is only requested when the
// previous one has been fully consumed and another tag is pulled.
type Pager struct {
	fetcher PageFetcher
	buf     []string
	cursor  string
	started bool
	done    bool
	pages   int
}

// NewPager returns a Pager reading from f. No request is made until the first Next.
func NewPager(f PageFetcher) *Pager {
	return &Pager{fetcher: f}
}

// Next implements Source.
func (p *Pager) Next(ctx context.Context) (string, error) {
	for len(p.buf) == 0 {
		if p.done || (p.started && p.cursor == "") {
			p.done = true
			return "", io.EOF
		}

		requested := p.cursor
		page, err := p.fetcher.FetchPage(ctx, requested)
		p.started = true
		if err != nil {
			p.done = true
			return "", fmt.Errorf("fetch tag page %d: %w", p.pages+1, err)
		}
		p.pages++
		log.Debug("Fetched tag page", "page", p.pages, "tags", len(page.Tags), "hasNext", page.Next != "")

		if len(page.Tags) == 0 && page.Next != "" && page.Next == requested {
			p.done = true
			return "", fmt.Errorf("fetch tag page %d: %w", p.pages, ErrStalledPagination)
		}
		p.buf = page.Tags
		p.cursor = page.Next
	}

	tag := p.buf[0]
	p.buf = p.buf[1:]
	return tag, nil
}

// Pages returns the number of pages fetched so far.
func (p *Pager) Pages() int {
	return p.pages
}
