package image

import (
	"fmt"
	"strings"
)

// Reference is a container image reference split into the parts needed to list its tags.
type Reference struct {
	Original   string // The string as written in the manifest
	Registry   string // Registry domain, including any port (e.g., docker.io, ghcr.io, localhost:5000)
	Repository string // Repository path within the registry (e.g., library/ubuntu)
	Tag        string // Image tag; "latest" when the reference has none
	Digest     string // Optional pinned digest (e.g., sha256:abc123...)
}

// Name returns the repository in its familiar form, without the Docker Hub
// registry and "library/" prefix (e.g., ubuntu, grafana/grafana, ghcr.io/org/app).
func (r *Reference) Name() string {
	if r.Registry == DefaultRegistry {
		if rest, ok := strings.CutPrefix(r.Repository, OfficialRepositoryName+"/"); ok {
			return rest
		}
		return r.Repository
	}
	return r.Registry + "/" + r.Repository
}

// String returns the familiar name:tag form of the reference.
func (r *Reference) String() string {
	if r.Digest != "" {
		return fmt.Sprintf("%s:%s@%s", r.Name(), r.Tag, r.Digest)
	}
	return fmt.Sprintf("%s:%s", r.Name(), r.Tag)
}
