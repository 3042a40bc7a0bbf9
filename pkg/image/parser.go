// Package image parses container image references as they appear in Dockerfile FROM lines
// and compose files.
package image

import (
	"strings"

	"github.com/distribution/reference"
	"github.com/pkg/errors"

	log "github.com/lucas-albers-lz4/updock/pkg/log"
)

const (
	// DefaultTag is used when a reference carries no tag.
	DefaultTag = "latest"
	// DefaultRegistry is the registry of references without a domain.
	DefaultRegistry = "docker.io"
	// OfficialRepositoryName is the namespace of official Docker Hub images.
	OfficialRepositoryName = "library"
)

// ParseImageReference parses an image reference string into its components.
//
// Familiar names are normalized the way the Docker CLI does it: "ubuntu:14.04" becomes
// registry docker.io, repository library/ubuntu, tag 14.04. A reference without a tag
// gets DefaultTag. Digest-only references are rejected with ErrMissingTag.
func ParseImageReference(imageRef string) (*Reference, error) {
	imageRef = strings.TrimSpace(imageRef)
	if imageRef == "" {
		return nil, ErrEmptyImageReference
	}

	named, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		log.Debug("Failed to parse image reference", "reference", imageRef, "error", err)
		return nil, errors.Wrapf(ErrInvalidImageReference, "%q: %v", imageRef, err)
	}

	result := &Reference{
		Original:   imageRef,
		Registry:   reference.Domain(named),
		Repository: reference.Path(named),
	}
	if tagged, ok := named.(reference.Tagged); ok {
		result.Tag = tagged.Tag()
	}
	if digested, ok := named.(reference.Digested); ok {
		result.Digest = digested.Digest().String()
	}

	if result.Tag == "" {
		if result.Digest != "" {
			return nil, errors.Wrapf(ErrMissingTag, "%q", imageRef)
		}
		result.Tag = DefaultTag
	}

	log.Debug("Parsed image reference", "reference", imageRef, "registry", result.Registry,
		"repository", result.Repository, "tag", result.Tag)
	return result, nil
}
