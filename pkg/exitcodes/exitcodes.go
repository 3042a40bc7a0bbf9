// Package exitcodes provides centralized exit code definitions and error handling for updock.
// Exit codes are organized in ranges:
//
//	0-2:   Check outcome (no update, compatible update, breaking update)
//	10-19: Input/Configuration Errors (e.g., missing flags, invalid pattern, unreadable manifest)
//	20-29: Runtime Errors (e.g., I/O errors, registry failures)
//	30-39: Internal Errors
package exitcodes

import (
	"errors"
	"fmt"
)

// Exit code constants organized by category
const (
	// Check outcome (0-2)
	ExitSuccess          = 0
	ExitNoUpdate         = 0 // No image has a newer tag
	ExitCompatibleUpdate = 1 // At least one compatible update and no breaking one
	ExitBreakingUpdate   = 2 // At least one breaking update

	// Input/Configuration Errors (10-19)
	ExitCheckFailed             = 10 // At least one image could not be checked
	ExitMissingRequiredFlag     = 11 // Required command flag not provided
	ExitInputConfigurationError = 12 // General configuration error
	ExitInvalidPattern          = 13 // Version pattern could not be compiled
	ExitManifestNotFound        = 14 // Dockerfile or compose file not found
	ExitManifestParsingError    = 15 // Dockerfile or compose file could not be parsed

	// Runtime Errors (20-29)
	ExitGeneralRuntimeError = 20 // General runtime/system error
	ExitIOError             = 21 // IO operation error
	ExitRegistryError       = 22 // Tag listing failed

	// Internal Errors (30-39)
	ExitInternalError = 30 // Internal error in command execution
)

// ExitCodeError wraps an error with an exit code for consistent error handling.
// It is returned by command handlers and unwrapped by main to pick the process exit code.
type ExitCodeError struct {
	Code int   // Exit code to return
	Err  error // Underlying error
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d: %v", e.Code, e.Err)
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// IsExitCodeError checks if an error is an ExitCodeError and returns its code.
// Returns false and 0 if the error is not an ExitCodeError.
func IsExitCodeError(err error) (int, bool) {
	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// CodeDescriptions maps exit codes to their human-readable descriptions.
// ExitNoUpdate shares its value with ExitSuccess and is described by it.
var CodeDescriptions = map[int]string{
	ExitSuccess:                 "Success, no update available",
	ExitCompatibleUpdate:        "Compatible update available",
	ExitBreakingUpdate:          "Breaking update available",
	ExitCheckFailed:             "At least one image could not be checked",
	ExitMissingRequiredFlag:     "Required command flag not provided",
	ExitInputConfigurationError: "General configuration error",
	ExitInvalidPattern:          "Version pattern could not be compiled",
	ExitManifestNotFound:        "Dockerfile or compose file not found",
	ExitManifestParsingError:    "Dockerfile or compose file could not be parsed",
	ExitGeneralRuntimeError:     "General runtime/system error",
	ExitIOError:                 "IO operation error",
	ExitRegistryError:           "Tag listing failed",
	ExitInternalError:           "Internal error in command execution",
}
