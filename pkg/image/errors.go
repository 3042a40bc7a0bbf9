package image

import "errors"

// Sentinel errors related to image reference parsing.
var (
	ErrEmptyImageReference   = errors.New("cannot parse empty image reference")
	ErrInvalidImageReference = errors.New("invalid image reference")
	// ErrMissingTag is returned for digest-only references: they cannot be compared with other tags.
	ErrMissingTag = errors.New("image reference has a digest but no tag")
)
