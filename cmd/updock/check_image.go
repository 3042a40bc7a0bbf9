package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lucas-albers-lz4/updock/pkg/exitcodes"
	"github.com/lucas-albers-lz4/updock/pkg/extractor"
	"github.com/lucas-albers-lz4/updock/pkg/image"
	"github.com/lucas-albers-lz4/updock/pkg/report"
)

func newCheckImageCmd(v *viper.Viper) *cobra.Command {
	var (
		patternSource string
		jsonOutput    bool
	)

	cmd := &cobra.Command{
		Use:     "check-image IMAGE:TAG",
		Short:   "Check a single image for updates",
		Example: `  updock check-image ubuntu:18.04 --pattern '<!>.<>'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if patternSource == "" {
				return &exitcodes.ExitCodeError{
					Code: exitcodes.ExitMissingRequiredFlag,
					Err:  errors.New("required flag \"pattern\" not set"),
				}
			}
			ref, err := image.ParseImageReference(args[0])
			if err != nil {
				return &exitcodes.ExitCodeError{Code: exitcodes.ExitInputConfigurationError, Err: err}
			}
			ext, err := extractor.Parse(patternSource)
			if err != nil {
				return &exitcodes.ExitCodeError{Code: exitcodes.ExitInvalidPattern, Err: err}
			}
			checker, err := newChecker(v)
			if err != nil {
				return err
			}

			r := report.New("image", ref.String())
			update, err := checker.CheckImage(cmd.Context(), ref, ext)
			if err != nil {
				r.AddFailure(ref.String(), fmt.Errorf("check %s: %w", ref.String(), err))
			} else {
				r.AddUpdate(ref.String(), update)
			}
			return writeReport(cmd, r, jsonOutput)
		},
	}
	cmd.Flags().StringVarP(&patternSource, "pattern", "p", "", "version pattern of the image tags (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}
