// Package main implements the command-line interface of updock, which checks
// container image tags in Dockerfiles and compose files for newer versions.
package main

import (
	"fmt"
	"os"

	"github.com/lucas-albers-lz4/updock/pkg/exitcodes"
)

func main() {
	os.Exit(run())
}

// run executes the root command and returns the process exit code.
func run() int {
	root := newRootCmd()
	err := root.Execute()
	if err == nil {
		return exitcodes.ExitSuccess
	}

	code, ok := exitcodes.IsExitCodeError(err)
	if !ok {
		// Commands return ExitCodeError; anything else is a flag or argument error from cobra.
		code = exitcodes.ExitInputConfigurationError
	}
	// Update outcomes are already printed as a report.
	if code >= exitcodes.ExitCheckFailed {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return code
}
