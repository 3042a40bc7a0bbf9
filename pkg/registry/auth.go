package registry

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// challenge is a parsed Bearer WWW-Authenticate header.
type challenge struct {
	Realm   string
	Service string
	Scope   string
}

// parseChallenge parses `Bearer realm="...",service="...",scope="..."`.
func parseChallenge(header string) (challenge, bool) {
	scheme, params, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return challenge{}, false
	}

	var c challenge
	for _, part := range splitParams(params) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "realm":
			c.Realm = value
		case "service":
			c.Service = value
		case "scope":
			c.Scope = value
		}
	}
	return c, c.Realm != ""
}

// splitParams splits on commas outside of quotes; scopes such as
// "repository:a/b:pull,push" contain commas.
func splitParams(s string) []string {
	var (
		parts  []string
		quoted bool
		start  int
	)
	for i, r := range s {
		switch r {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// anonymousToken requests a pull token from the realm named by a Bearer challenge.
func (c *Client) anonymousToken(ctx context.Context, header string) (string, error) {
	ch, ok := parseChallenge(header)
	if !ok {
		return "", errors.Wrapf(ErrUnauthorized, "unsupported authentication challenge %q", header)
	}

	u, err := url.Parse(ch.Realm)
	if err != nil {
		return "", errors.Wrapf(err, "parse token realm %q", ch.Realm)
	}
	q := u.Query()
	if ch.Service != "" {
		q.Set("service", ch.Service)
	}
	if ch.Scope != "" {
		q.Set("scope", ch.Scope)
	}
	u.RawQuery = q.Encode()

	resp, err := c.send(ctx, u.String(), "")
	if err != nil {
		return "", err
	}
	defer drain(resp)
	if err := checkStatus(u.String(), resp.StatusCode); err != nil {
		return "", err
	}

	var body struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return "", err
	}
	if body.Token != "" {
		return body.Token, nil
	}
	if body.AccessToken != "" {
		return body.AccessToken, nil
	}
	return "", errors.Wrapf(ErrUnauthorized, "token endpoint %s returned no token", ch.Realm)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
