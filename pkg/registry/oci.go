package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/lucas-albers-lz4/updock/pkg/tags"
)

// ociFetcher pages through the distribution API /v2/<repo>/tags/list, following the Link header.
type ociFetcher struct {
	client     *Client
	endpoint   Endpoint
	repository string
	pageSize   int
}

type ociTagsResponse struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// FetchPage implements tags.PageFetcher. The cursor is the absolute URL of the page.
func (f *ociFetcher) FetchPage(ctx context.Context, cursor string) (tags.Page, error) {
	pageURL := cursor
	if pageURL == "" {
		pageURL = fmt.Sprintf("%s/v2/%s/tags/list?n=%s", f.endpoint.URL, f.repository, strconv.Itoa(f.pageSize))
	}

	var resp ociTagsResponse
	header, err := f.client.getJSON(ctx, pageURL, &resp)
	if err != nil {
		return tags.Page{}, err
	}

	next, err := nextLink(pageURL, header)
	if err != nil {
		return tags.Page{}, err
	}
	return tags.Page{Tags: resp.Tags, Next: next}, nil
}

// nextLink resolves the rel="next" entry of an RFC 5988 Link header against the page URL.
func nextLink(pageURL string, header http.Header) (string, error) {
	for _, value := range header.Values("Link") {
		for _, link := range strings.Split(value, ",") {
			target, params, ok := strings.Cut(strings.TrimSpace(link), ";")
			if !ok || !isNextRel(params) {
				continue
			}
			target = strings.Trim(strings.TrimSpace(target), "<>")
			base, err := url.Parse(pageURL)
			if err != nil {
				return "", errors.Wrapf(err, "parse page url %q", pageURL)
			}
			ref, err := url.Parse(target)
			if err != nil {
				return "", errors.Wrapf(err, "parse Link header target %q", target)
			}
			return base.ResolveReference(ref).String(), nil
		}
	}
	return "", nil
}

func isNextRel(params string) bool {
	for _, p := range strings.Split(params, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(p), "=")
		if ok && strings.EqualFold(key, "rel") && strings.Trim(value, `"`) == "next" {
			return true
		}
	}
	return false
}
