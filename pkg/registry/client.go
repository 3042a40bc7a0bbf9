package registry

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/lucas-albers-lz4/updock/pkg/image"
	log "github.com/lucas-albers-lz4/updock/pkg/log"
	"github.com/lucas-albers-lz4/updock/pkg/tags"
)

const (
	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second
	// DefaultRetries is the number of retries of a failed page request.
	DefaultRetries = 3

	userAgent = "updock"
)

// Client lists tags of images through the endpoint configured for their registry.
// Anonymous tokens are cached per host without locking, so a Client serves one check at a time.
type Client struct {
	http       *http.Client
	timeout    time.Duration
	config     *Config
	token      string
	tokenHost  string
	tokenOwner string
	pageSize   int
	retries    uint64
	newBackOff func() backoff.BackOff
	tokens     map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithToken sends a bearer token to the API host of the registry domain, and only there.
// Requests to any other host carry no credentials of their own.
func WithToken(domain, token string) Option {
	return func(c *Client) {
		c.tokenOwner = domain
		c.token = token
	}
}

// WithPageSize sets the default number of tags per page. Endpoint settings take precedence.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = min(n, MaxPageSize)
		}
	}
}

// WithRetries sets how many times a failed page request is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = uint64(n)
		}
	}
}

// WithBackOff sets the retry delay policy.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = newBackOff }
}

// NewClient returns a Client for the given endpoint configuration. A nil config uses DefaultConfig.
func NewClient(config *Config, opts ...Option) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	c := &Client{
		timeout:  DefaultTimeout,
		config:   config,
		pageSize: DefaultPageSize,
		retries:  DefaultRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = time.Minute
			return b
		},
		tokens: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = &http.Client{Timeout: c.timeout}
	if c.token != "" {
		c.tokenHost = hostOf(config.Lookup(c.tokenOwner).URL)
	}
	return c
}

// Tags returns a lazy, newest-first (where the registry supports it) source of the tags of ref.
// No request is made until the first tag is pulled.
func (c *Client) Tags(ref *image.Reference) (tags.Source, error) {
	fetcher, err := c.Fetcher(ref)
	if err != nil {
		return nil, err
	}
	return tags.NewPager(fetcher), nil
}

// Fetcher returns the page fetcher for ref's registry.
func (c *Client) Fetcher(ref *image.Reference) (tags.PageFetcher, error) {
	ep := c.config.Lookup(ref.Registry)
	pageSize := c.pageSize
	if ep.PageSize > 0 {
		pageSize = ep.PageSize
	}

	switch ep.Kind {
	case KindDockerHub:
		return &dockerHubFetcher{client: c, endpoint: ep, repository: ref.Repository, pageSize: pageSize}, nil
	case KindOCI:
		log.Warn("Registry does not list tags newest-first; updates may be missed", "registry", ep.Domain, "image", ref.Name())
		return &ociFetcher{client: c, endpoint: ep, repository: ref.Repository, pageSize: pageSize}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedKind, "%q for registry %s", ep.Kind, ep.Domain)
	}
}

// getJSON requests url, retrying transient failures, and decodes the JSON body into v.
// It returns the response headers of the successful attempt.
func (c *Client) getJSON(ctx context.Context, url string, v any) (http.Header, error) {
	var header http.Header
	attempt := 0
	operation := func() error {
		attempt++
		h, err := c.doGet(ctx, url, v)
		if err != nil {
			if isTemporary(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		header = h
		return nil
	}
	notify := func(err error, delay time.Duration) {
		log.Warn("Retrying registry request", "url", url, "attempt", attempt, "delay", delay.String(), "error", err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.retries), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, err
	}
	return header, nil
}

func (c *Client) doGet(ctx context.Context, url string, v any) (http.Header, error) {
	resp, err := c.send(ctx, url, c.authorization(url))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && !c.ownsToken(url) {
		// Public images on OCI registries still need an anonymous token.
		challenge := resp.Header.Get("WWW-Authenticate")
		drain(resp)
		token, err := c.anonymousToken(ctx, challenge)
		if err != nil {
			return nil, err
		}
		c.tokens[hostOf(url)] = token
		if resp, err = c.send(ctx, url, "Bearer "+token); err != nil {
			return nil, err
		}
	}
	defer drain(resp)

	if err := checkStatus(url, resp.StatusCode); err != nil {
		return nil, err
	}
	if err := decodeJSON(resp, v); err != nil {
		return nil, err
	}
	return resp.Header, nil
}

func decodeJSON(resp *http.Response, v any) error {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrapf(err, "decode response of %s", resp.Request.URL.Redacted())
	}
	return nil
}

func (c *Client) send(ctx context.Context, url, authorization string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build registry request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	log.Debug("Registry request", "url", url)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ownsToken reports whether the configured token belongs to the host of url.
func (c *Client) ownsToken(url string) bool {
	return c.token != "" && c.tokenHost != "" && hostOf(url) == c.tokenHost
}

func (c *Client) authorization(url string) string {
	if c.ownsToken(url) {
		return "Bearer " + c.token
	}
	if token, ok := c.tokens[hostOf(url)]; ok {
		return "Bearer " + token
	}
	return ""
}

func checkStatus(url string, code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errors.Wrap(ErrNotFound, url)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.Wrapf(ErrUnauthorized, "%s: status %d", url, code)
	default:
		return &StatusError{URL: url, Code: code}
	}
}

func isTemporary(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
