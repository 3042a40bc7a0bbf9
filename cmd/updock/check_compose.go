package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCheckComposeCmd(v *viper.Viper) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check-compose FILE",
		Short: "Check the services of a Docker Compose file",
		Long: `Check the services of a Docker Compose file.

A service with a build context is checked through the Dockerfile of that folder. A service
with an image is checked when its image line carries a pattern comment or when the config
file maps the image name to a pattern:

  patterns:
    ubuntu: "<!>.<>"
    grafana/grafana: "<!>.<>.<>"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checker, err := newChecker(v)
			if err != nil {
				return err
			}
			r, err := checker.CheckCompose(cmd.Context(), args[0])
			if err != nil {
				return manifestError(err)
			}
			return writeReport(cmd, r, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}
