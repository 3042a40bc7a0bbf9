package registry

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by registry requests.
var (
	// ErrNotFound is returned when the registry does not know the repository.
	ErrNotFound = errors.New("repository not found")
	// ErrUnauthorized is returned when the registry rejects the request credentials.
	ErrUnauthorized = errors.New("registry denied access")
	// ErrUnsupportedKind is returned for endpoints of an unknown kind.
	ErrUnsupportedKind = errors.New("unsupported registry kind")
)

// StatusError reports an unexpected HTTP status from a registry.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry request %s returned status %d", e.URL, e.Code)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == 429
}

// ErrConfigFileNotExist indicates the registry config file does not exist.
type ErrConfigFileNotExist struct {
	Path string
	Err  error
}

func (e *ErrConfigFileNotExist) Error() string {
	return fmt.Sprintf("registry config file does not exist: %s (%v)", e.Path, e.Err)
}

func (e *ErrConfigFileNotExist) Unwrap() error {
	return e.Err
}

// WrapConfigFileNotExist creates a new ErrConfigFileNotExist error.
func WrapConfigFileNotExist(path string, err error) error {
	return &ErrConfigFileNotExist{Path: path, Err: err}
}

// ErrConfigFileRead indicates an error occurred while reading the registry config file.
type ErrConfigFileRead struct {
	Path string
	Err  error
}

func (e *ErrConfigFileRead) Error() string {
	return fmt.Sprintf("failed to read registry config file '%s': %v", e.Path, e.Err)
}

func (e *ErrConfigFileRead) Unwrap() error {
	return e.Err
}

// WrapConfigFileRead creates a new ErrConfigFileRead error.
func WrapConfigFileRead(path string, err error) error {
	return &ErrConfigFileRead{Path: path, Err: err}
}

// ErrConfigFileEmpty indicates the registry config file declares no endpoints.
type ErrConfigFileEmpty struct {
	Path string
}

func (e *ErrConfigFileEmpty) Error() string {
	return fmt.Sprintf("registry config file is empty: %s", e.Path)
}

// WrapConfigFileEmpty creates a new ErrConfigFileEmpty error.
func WrapConfigFileEmpty(path string) error {
	return &ErrConfigFileEmpty{Path: path}
}

// ErrConfigFileParse indicates an error occurred while parsing the registry config file.
type ErrConfigFileParse struct {
	Path string
	Err  error
}

func (e *ErrConfigFileParse) Error() string {
	return fmt.Sprintf("failed to parse registry config file '%s': %v", e.Path, e.Err)
}

func (e *ErrConfigFileParse) Unwrap() error {
	return e.Err
}

// WrapConfigFileParse creates a new ErrConfigFileParse error.
func WrapConfigFileParse(path string, err error) error {
	return &ErrConfigFileParse{Path: path, Err: err}
}

// ErrInvalidEndpoint indicates an endpoint entry failed validation.
type ErrInvalidEndpoint struct {
	Path   string
	Index  int
	Domain string
	Reason string
}

func (e *ErrInvalidEndpoint) Error() string {
	return fmt.Sprintf("invalid endpoint %d (%q) in registry config file '%s': %s", e.Index, e.Domain, e.Path, e.Reason)
}

// WrapInvalidEndpoint creates a new ErrInvalidEndpoint error.
func WrapInvalidEndpoint(path string, index int, domain, reason string) error {
	return &ErrInvalidEndpoint{Path: path, Index: index, Domain: domain, Reason: reason}
}

// ErrDuplicateDomain indicates two endpoints share a domain.
type ErrDuplicateDomain struct {
	Path   string
	Domain string
}

func (e *ErrDuplicateDomain) Error() string {
	return fmt.Sprintf("duplicate registry domain '%s' found in registry config file '%s'", e.Domain, e.Path)
}

// WrapDuplicateDomain creates a new ErrDuplicateDomain error.
func WrapDuplicateDomain(path, domain string) error {
	return &ErrDuplicateDomain{Path: path, Domain: domain}
}
