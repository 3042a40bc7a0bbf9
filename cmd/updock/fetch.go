package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lucas-albers-lz4/updock/pkg/exitcodes"
	"github.com/lucas-albers-lz4/updock/pkg/extractor"
	"github.com/lucas-albers-lz4/updock/pkg/image"
	"github.com/lucas-albers-lz4/updock/pkg/tags"
)

const defaultFetchAmount = 25

func newFetchCmd(v *viper.Viper) *cobra.Command {
	var (
		patternSource string
		amount        int
	)

	cmd := &cobra.Command{
		Use:   "fetch IMAGE",
		Short: "List the most recent tags of an image",
		Long: `List the most recent tags of an image, newest first where the registry allows it.
With --pattern only the tags following the pattern are printed. Only --amount tags are
requested from the registry either way.`,
		Example: `  updock fetch ubuntu --pattern '<!>.<>' --amount 50`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := image.ParseImageReference(args[0])
			if err != nil {
				return &exitcodes.ExitCodeError{Code: exitcodes.ExitInputConfigurationError, Err: err}
			}
			if amount < 1 {
				return &exitcodes.ExitCodeError{
					Code: exitcodes.ExitInputConfigurationError,
					Err:  fmt.Errorf("--amount must be positive, got %d", amount),
				}
			}
			var ext *extractor.Extractor
			if patternSource != "" {
				if ext, err = extractor.Parse(patternSource); err != nil {
					return &exitcodes.ExitCodeError{Code: exitcodes.ExitInvalidPattern, Err: err}
				}
			}

			client, err := newRegistryClient(v)
			if err != nil {
				return err
			}
			src, err := client.Tags(ref)
			if err != nil {
				return &exitcodes.ExitCodeError{Code: exitcodes.ExitRegistryError, Err: err}
			}
			fetched, err := tags.Collect(cmd.Context(), tags.Limit(src, amount), 0)
			if err != nil {
				return &exitcodes.ExitCodeError{
					Code: exitcodes.ExitRegistryError,
					Err:  fmt.Errorf("fetch tags of %s: %w", ref.Name(), err),
				}
			}

			return printTags(cmd.OutOrStdout(), fetched, ext)
		},
	}
	cmd.Flags().StringVarP(&patternSource, "pattern", "p", "", "only print tags following this version pattern")
	cmd.Flags().IntVarP(&amount, "amount", "n", defaultFetchAmount, "number of tags to fetch")
	return cmd
}

func printTags(w io.Writer, fetched []string, ext *extractor.Extractor) error {
	shown := fetched
	header := fmt.Sprintf("Fetched %d tags:\n", len(fetched))
	if ext != nil {
		shown = ext.FilterSlice(fetched)
		header = fmt.Sprintf("Fetched %d tags. Found %d matching `%s`:\n", len(fetched), len(shown), ext)
	}

	if _, err := io.WriteString(w, header); err != nil {
		return &exitcodes.ExitCodeError{Code: exitcodes.ExitIOError, Err: err}
	}
	for _, tag := range shown {
		if _, err := fmt.Fprintln(w, tag); err != nil {
			return &exitcodes.ExitCodeError{Code: exitcodes.ExitIOError, Err: err}
		}
	}
	return nil
}
