// Package check runs update searches for the images declared in Dockerfiles and compose files.
package check

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/lucas-albers-lz4/updock/pkg/compose"
	"github.com/lucas-albers-lz4/updock/pkg/dockerfile"
	"github.com/lucas-albers-lz4/updock/pkg/extractor"
	"github.com/lucas-albers-lz4/updock/pkg/image"
	log "github.com/lucas-albers-lz4/updock/pkg/log"
	"github.com/lucas-albers-lz4/updock/pkg/report"
	"github.com/lucas-albers-lz4/updock/pkg/search"
	"github.com/lucas-albers-lz4/updock/pkg/tags"
)

// TagLister opens a tag source for an image. *registry.Client implements it.
type TagLister interface {
	Tags(ref *image.Reference) (tags.Source, error)
}

// Checker checks images one after another against a TagLister.
type Checker struct {
	lister   TagLister
	fs       afero.Fs
	horizon  int
	patterns map[string]string
}

// Option configures a Checker.
type Option func(*Checker)

// WithFs sets the filesystem manifests are read from.
func WithFs(fs afero.Fs) Option {
	return func(c *Checker) { c.fs = fs }
}

// WithHorizon bounds the number of tags pulled per image. Zero means unbounded.
func WithHorizon(n int) Option {
	return func(c *Checker) { c.horizon = n }
}

// WithPatterns sets patterns for compose images without an annotation, keyed by image
// name (e.g. "ubuntu", "grafana/grafana", "ghcr.io/org/app").
func WithPatterns(patterns map[string]string) Option {
	return func(c *Checker) { c.patterns = patterns }
}

// New returns a Checker reading from the OS filesystem by default.
func New(lister TagLister, opts ...Option) *Checker {
	c := &Checker{lister: lister, fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckImage searches updates of ref.
func (c *Checker) CheckImage(ctx context.Context, ref *image.Reference, ext *extractor.Extractor) (search.Update, error) {
	src, err := c.lister.Tags(ref)
	if err != nil {
		return search.Update{}, err
	}
	log.Debug("Checking image", "image", ref.String(), "pattern", ext.String(), "horizon", c.horizon)
	return search.FindUpdate(ctx, tags.Limit(src, c.horizon), ref.Tag, ext)
}

// CheckDockerfile checks every annotated FROM of the Dockerfile at path.
// The error is only set when the file itself cannot be read or parsed.
func (c *Checker) CheckDockerfile(ctx context.Context, path string) (*report.Report, error) {
	statements, err := dockerfile.Load(c.fs, path)
	if err != nil {
		return nil, err
	}
	r := report.New("Dockerfile", path)
	c.checkStatements(ctx, r, "", statements)
	return r, nil
}

// CheckCompose checks the services of the compose file at path. Build services are checked
// through their Dockerfile; image services when a pattern is annotated or configured.
func (c *Checker) CheckCompose(ctx context.Context, path string) (*report.Report, error) {
	services, err := compose.Load(c.fs, path)
	if err != nil {
		return nil, err
	}

	r := report.New("Docker Compose file", path)
	for _, svc := range services {
		if svc.IsBuild() {
			dockerfilePath := svc.DockerfilePath(path)
			statements, err := dockerfile.Load(c.fs, dockerfilePath)
			if err != nil {
				r.AddFailure(svc.Name, err)
				continue
			}
			c.checkStatements(ctx, r, svc.Name+": ", statements)
			continue
		}

		pattern := svc.Pattern
		if pattern == "" {
			pattern = c.patterns[svc.Image.Name()]
		}
		if pattern == "" {
			log.Debug("Skipping service without pattern", "service", svc.Name, "image", svc.Image.String())
			continue
		}
		c.checkOne(ctx, r, svc.Name+": "+svc.Image.String(), svc.Image, pattern)
	}
	return r, nil
}

func (c *Checker) checkStatements(ctx context.Context, r *report.Report, prefix string, statements []dockerfile.Statement) {
	for _, stmt := range statements {
		ref, err := image.ParseImageReference(stmt.Image)
		if err != nil {
			r.AddFailure(prefix+stmt.Image, err)
			continue
		}
		c.checkOne(ctx, r, prefix+ref.String(), ref, stmt.Pattern)
	}
}

func (c *Checker) checkOne(ctx context.Context, r *report.Report, name string, ref *image.Reference, pattern string) {
	ext, err := extractor.Parse(pattern)
	if err != nil {
		r.AddFailure(name, err)
		return
	}
	update, err := c.CheckImage(ctx, ref, ext)
	if err != nil {
		r.AddFailure(name, errors.Wrapf(err, "check %s", ref.String()))
		return
	}
	r.AddUpdate(name, update)
}
