// Package registry lists image tags from remote registries as lazy tag sources.
package registry

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	log "github.com/lucas-albers-lz4/updock/pkg/log"
)

// Kind selects the tag listing API spoken by an endpoint.
type Kind string

const (
	// KindDockerHub is the Docker Hub repositories API, which can order tags by last update.
	KindDockerHub Kind = "dockerhub"
	// KindOCI is the OCI distribution tags/list API. It returns tags in lexical order.
	KindOCI Kind = "oci"
)

const (
	// DefaultPageSize is the number of tags requested per page.
	DefaultPageSize = 100
	// MaxPageSize is the largest page size accepted by Docker Hub.
	MaxPageSize = 100
	// DefaultOrdering is the Docker Hub ordering that yields newest tags first.
	DefaultOrdering = "last_updated"
	// MaxDomainLength bounds endpoint domains in the config file.
	MaxDomainLength = 253
)

// Endpoint describes how to list tags of images hosted under one registry domain.
type Endpoint struct {
	// Domain is the registry domain as it appears in image references (e.g., docker.io, ghcr.io)
	Domain string `json:"domain"`
	// Kind selects the listing API
	Kind Kind `json:"kind"`
	// URL is the API base URL; defaults to https://<domain>
	URL string `json:"url,omitempty"`
	// PageSize overrides the number of tags per page
	PageSize int `json:"pageSize,omitempty"`
	// Ordering is the Docker Hub ordering parameter
	Ordering string `json:"ordering,omitempty"`
}

// Config is the registry endpoint configuration file.
type Config struct {
	// Version of the config format
	Version string `json:"version,omitempty"`
	// Endpoints are matched by exact domain
	Endpoints []Endpoint `json:"endpoints"`
}

// DefaultConfig returns the built-in endpoints.
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Endpoints: []Endpoint{
			{Domain: "docker.io", Kind: KindDockerHub, URL: "https://hub.docker.com", Ordering: DefaultOrdering},
			{Domain: "ghcr.io", Kind: KindOCI, URL: "https://ghcr.io"},
			{Domain: "quay.io", Kind: KindOCI, URL: "https://quay.io"},
			{Domain: "registry.k8s.io", Kind: KindOCI, URL: "https://registry.k8s.io"},
		},
	}
}

// Lookup returns the endpoint serving domain. Unknown domains are assumed to speak the
// OCI distribution API over HTTPS.
func (c *Config) Lookup(domain string) Endpoint {
	for _, ep := range c.Endpoints {
		if ep.Domain == domain {
			return ep.withDefaults()
		}
	}
	return Endpoint{Domain: domain, Kind: KindOCI}.withDefaults()
}

func (e Endpoint) withDefaults() Endpoint {
	if e.URL == "" {
		e.URL = "https://" + e.Domain
	}
	e.URL = strings.TrimRight(e.URL, "/")
	if e.Kind == KindDockerHub && e.Ordering == "" {
		e.Ordering = DefaultOrdering
	}
	return e
}

// Merge returns a copy of c where endpoints from override replace those with the same domain.
func (c *Config) Merge(override *Config) *Config {
	merged := &Config{Version: c.Version}
	index := make(map[string]int, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		index[ep.Domain] = len(merged.Endpoints)
		merged.Endpoints = append(merged.Endpoints, ep)
	}
	if override == nil {
		return merged
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	for _, ep := range override.Endpoints {
		if i, ok := index[ep.Domain]; ok {
			merged.Endpoints[i] = ep
			continue
		}
		index[ep.Domain] = len(merged.Endpoints)
		merged.Endpoints = append(merged.Endpoints, ep)
	}
	return merged
}

// LoadConfig reads and validates a registry endpoint file from fs.
// The result contains only the endpoints of the file; merge it over DefaultConfig to use it.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
		return nil, WrapConfigFileRead(path, fmt.Errorf("registry config file must end with .yaml or .yml"))
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, WrapConfigFileNotExist(path, err)
		}
		return nil, WrapConfigFileRead(path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, WrapConfigFileEmpty(path)
	}

	var config Config
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, WrapConfigFileParse(path, err)
	}
	if err := validateConfig(&config, path); err != nil {
		return nil, err
	}

	log.Debug("Loaded registry config", "path", path, "endpoints", len(config.Endpoints))
	return &config, nil
}

func validateConfig(config *Config, path string) error {
	if len(config.Endpoints) == 0 {
		return WrapConfigFileEmpty(path)
	}

	seen := make(map[string]bool, len(config.Endpoints))
	for i, ep := range config.Endpoints {
		switch {
		case ep.Domain == "":
			return WrapInvalidEndpoint(path, i, ep.Domain, "domain is required")
		case len(ep.Domain) > MaxDomainLength:
			return WrapInvalidEndpoint(path, i, ep.Domain, fmt.Sprintf("domain exceeds %d characters", MaxDomainLength))
		case strings.ContainsAny(ep.Domain, "/ "):
			return WrapInvalidEndpoint(path, i, ep.Domain, "domain must not contain a path or spaces")
		}
		if seen[ep.Domain] {
			return WrapDuplicateDomain(path, ep.Domain)
		}
		seen[ep.Domain] = true

		switch ep.Kind {
		case KindDockerHub, KindOCI:
		default:
			return WrapInvalidEndpoint(path, i, ep.Domain, fmt.Sprintf("kind must be %q or %q, got %q", KindDockerHub, KindOCI, ep.Kind))
		}
		if ep.URL != "" {
			u, err := url.Parse(ep.URL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return WrapInvalidEndpoint(path, i, ep.Domain, fmt.Sprintf("url %q must be an absolute http(s) URL", ep.URL))
			}
		}
		if ep.PageSize < 0 || ep.PageSize > MaxPageSize {
			return WrapInvalidEndpoint(path, i, ep.Domain, fmt.Sprintf("pageSize must be between 1 and %d", MaxPageSize))
		}
		if ep.Ordering != "" && ep.Kind != KindDockerHub {
			return WrapInvalidEndpoint(path, i, ep.Domain, "ordering is only supported by dockerhub endpoints")
		}
	}
	return nil
}
