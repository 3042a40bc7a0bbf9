package registry

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/lucas-albers-lz4/updock/pkg/tags"
)

// dockerHubFetcher pages through /v2/repositories/<repo>/tags, following the "next" URL.
type dockerHubFetcher struct {
	client     *Client
	endpoint   Endpoint
	repository string
	pageSize   int
}

type dockerHubTagsResponse struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []struct {
		Name string `json:"name"`
	} `json:"results"`
}

func (f *dockerHubFetcher) firstPageURL() string {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(f.pageSize))
	if f.endpoint.Ordering != "" {
		q.Set("ordering", f.endpoint.Ordering)
	}
	return fmt.Sprintf("%s/v2/repositories/%s/tags?%s", f.endpoint.URL, f.repository, q.Encode())
}

// FetchPage implements tags.PageFetcher. The cursor is the absolute URL of the page.
func (f *dockerHubFetcher) FetchPage(ctx context.Context, cursor string) (tags.Page, error) {
	pageURL := cursor
	if pageURL == "" {
		pageURL = f.firstPageURL()
	}

	var resp dockerHubTagsResponse
	if _, err := f.client.getJSON(ctx, pageURL, &resp); err != nil {
		return tags.Page{}, err
	}

	page := tags.Page{Tags: make([]string, 0, len(resp.Results))}
	for _, r := range resp.Results {
		page.Tags = append(page.Tags, r.Name)
	}
	if resp.Next != nil {
		page.Next = *resp.Next
	}
	return page, nil
}
