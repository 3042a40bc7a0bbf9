package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lucas-albers-lz4/updock/pkg/check"
	"github.com/lucas-albers-lz4/updock/pkg/compose"
	"github.com/lucas-albers-lz4/updock/pkg/dockerfile"
	"github.com/lucas-albers-lz4/updock/pkg/exitcodes"
	"github.com/lucas-albers-lz4/updock/pkg/report"
)

// errUpdatesAvailable marks the non-zero exit of a successful check that found updates.
var errUpdatesAvailable = errors.New("updates available")

func newCheckCmd(v *viper.Viper) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check DOCKERFILE",
		Short: "Check the annotated FROM instructions of a Dockerfile",
		Long: `Check every FROM instruction of a Dockerfile that is preceded by a pattern comment:

  # updock pattern: "<!>.<>"
  FROM ubuntu:18.04

FROM instructions without such a comment are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checker, err := newChecker(v)
			if err != nil {
				return err
			}
			r, err := checker.CheckDockerfile(cmd.Context(), args[0])
			if err != nil {
				return manifestError(err)
			}
			return writeReport(cmd, r, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}

// newChecker wires a Checker to the registry client and AppFs.
func newChecker(v *viper.Viper) (*check.Checker, error) {
	client, err := newRegistryClient(v)
	if err != nil {
		return nil, err
	}
	return check.New(client,
		check.WithFs(AppFs),
		check.WithHorizon(v.GetInt("max-tags")),
		check.WithPatterns(v.GetStringMapString("patterns")),
	), nil
}

// manifestError maps a Dockerfile or compose loading error to its exit code.
func manifestError(err error) error {
	code := exitcodes.ExitIOError
	var (
		missing     *compose.MissingFieldError
		unsupported *compose.UnsupportedBuildContextError
		invalid     *compose.InvalidImageError
	)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		code = exitcodes.ExitManifestNotFound
	case errors.Is(err, dockerfile.ErrMalformed),
		errors.Is(err, compose.ErrMalformedCompose),
		errors.As(err, &missing),
		errors.As(err, &unsupported),
		errors.As(err, &invalid):
		code = exitcodes.ExitManifestParsingError
	}
	return &exitcodes.ExitCodeError{Code: code, Err: err}
}

// writeReport prints r and turns its level into the command result.
func writeReport(cmd *cobra.Command, r *report.Report, jsonOutput bool) error {
	var err error
	if jsonOutput {
		err = r.WriteJSON(cmd.OutOrStdout())
	} else {
		err = r.WriteText(cmd.OutOrStdout(), cmd.ErrOrStderr())
	}
	if err != nil {
		return &exitcodes.ExitCodeError{Code: exitcodes.ExitIOError, Err: fmt.Errorf("write report: %w", err)}
	}
	return levelError(r)
}

func levelError(r *report.Report) error {
	switch r.Level() {
	case report.LevelFailure:
		return &exitcodes.ExitCodeError{
			Code: exitcodes.ExitCheckFailed,
			Err:  fmt.Errorf("%d image(s) could not be checked", len(r.Failures())),
		}
	case report.LevelBreaking:
		return &exitcodes.ExitCodeError{Code: exitcodes.ExitBreakingUpdate, Err: errUpdatesAvailable}
	case report.LevelCompatible:
		return &exitcodes.ExitCodeError{Code: exitcodes.ExitCompatibleUpdate, Err: errUpdatesAvailable}
	default:
		return nil
	}
}
