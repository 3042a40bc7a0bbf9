// Package compose reads the services of a Docker Compose file.
//
// A service either builds a local folder (a string `build` field), whose Dockerfile is checked
// for annotated FROM lines, or runs an `image`. An image is checked when its field carries a
// `# updock pattern: "<p>"` comment or when a pattern is configured for its repository.
package compose

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/lucas-albers-lz4/updock/pkg/dockerfile"
	"github.com/lucas-albers-lz4/updock/pkg/image"
	log "github.com/lucas-albers-lz4/updock/pkg/log"
)

// ErrMalformedCompose is returned when the file is not YAML, is not a mapping, has services that
// are not mappings, or carries a malformed pattern annotation.
var ErrMalformedCompose = errors.New("the Docker Compose file seems to be invalid")

// MissingFieldError reports a required field that is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("failed to find `%s`", e.Field)
}

// UnsupportedBuildContextError reports a service that neither builds a folder nor names an image.
type UnsupportedBuildContextError struct {
	Service string
}

func (e *UnsupportedBuildContextError) Error() string {
	return fmt.Sprintf("no build context was found for service `%s` (only `build` and `image` fields containing strings are supported)", e.Service)
}

// InvalidImageError reports an image field that is not a valid reference.
type InvalidImageError struct {
	Service string
	Image   string
	Err     error
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("the image definition `%s` of service `%s` is invalid: %v", e.Image, e.Service, e.Err)
}

func (e *InvalidImageError) Unwrap() error {
	return e.Err
}

// Service is one entry of `services`, in file order.
type Service struct {
	Name string
	// Line is the 1-based line of the service key
	Line int
	// Build is the build folder, relative to the compose file; empty for image services
	Build string
	// Image is the parsed image of image services
	Image *image.Reference
	// Pattern is the pattern annotated on the image field, if any
	Pattern string
}

// IsBuild reports whether the service builds a local folder.
func (s Service) IsBuild() bool {
	return s.Build != ""
}

// DockerfilePath returns the Dockerfile of a build service. A relative build folder is resolved
// against the compose file directory.
func (s Service) DockerfilePath(composePath string) string {
	if filepath.IsAbs(s.Build) {
		return filepath.Join(s.Build, "Dockerfile")
	}
	return filepath.Join(filepath.Dir(composePath), s.Build, "Dockerfile")
}

// Load reads and parses the compose file at path.
func Load(fs afero.Fs, path string) ([]Service, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read Docker Compose file %s", path)
	}
	services, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse Docker Compose file %s", path)
	}
	log.Debug("Parsed Docker Compose file", "path", path, "services", len(services))
	return services, nil
}

// Parse returns the services of a compose document in file order.
func Parse(data []byte) ([]Service, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(ErrMalformedCompose, "failed to read the input: %v", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, &MissingFieldError{Field: "services"}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, ErrMalformedCompose
	}

	_, servicesNode := lookup(root, "services")
	if servicesNode == nil {
		return nil, &MissingFieldError{Field: "services"}
	}
	if servicesNode.Kind != yaml.MappingNode {
		return nil, ErrMalformedCompose
	}

	services := make([]Service, 0, len(servicesNode.Content)/2)
	for i := 0; i+1 < len(servicesNode.Content); i += 2 {
		keyNode, valueNode := servicesNode.Content[i], servicesNode.Content[i+1]
		svc, err := parseService(keyNode, valueNode)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, nil
}

func parseService(keyNode, node *yaml.Node) (Service, error) {
	svc := Service{Name: keyNode.Value, Line: keyNode.Line}
	if node.Kind != yaml.MappingNode {
		return svc, ErrMalformedCompose
	}

	if _, build := lookup(node, "build"); build != nil {
		if build.Kind != yaml.ScalarNode || build.Value == "" {
			return svc, &UnsupportedBuildContextError{Service: svc.Name}
		}
		svc.Build = build.Value
		return svc, nil
	}

	imageKey, imageNode := lookup(node, "image")
	if imageNode == nil || imageNode.Kind != yaml.ScalarNode {
		return svc, &UnsupportedBuildContextError{Service: svc.Name}
	}
	ref, err := image.ParseImageReference(imageNode.Value)
	if err != nil {
		return svc, &InvalidImageError{Service: svc.Name, Image: imageNode.Value, Err: err}
	}
	svc.Image = ref

	pattern, err := annotation(imageKey.HeadComment, imageKey.LineComment, imageNode.HeadComment, imageNode.LineComment, node.HeadComment, keyNode.HeadComment)
	if err != nil {
		return svc, errors.Wrapf(ErrMalformedCompose, "service `%s`: %v", svc.Name, err)
	}
	svc.Pattern = pattern
	return svc, nil
}

// lookup returns the key and value nodes of a mapping entry.
func lookup(mapping *yaml.Node, key string) (*yaml.Node, *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i], mapping.Content[i+1]
		}
	}
	return nil, nil
}

// annotation returns the first pattern annotation found in the given comment blocks.
func annotation(comments ...string) (string, error) {
	for _, block := range comments {
		for _, line := range strings.Split(block, "\n") {
			pattern, ok, err := dockerfile.ParseAnnotation(line)
			if err != nil {
				return "", err
			}
			if ok {
				return pattern, nil
			}
		}
	}
	return "", nil
}
