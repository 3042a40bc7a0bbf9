package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lucas-albers-lz4/updock/pkg/exitcodes"
	"github.com/lucas-albers-lz4/updock/pkg/image"
	log "github.com/lucas-albers-lz4/updock/pkg/log"
	"github.com/lucas-albers-lz4/updock/pkg/registry"
)

const envPrefix = "UPDOCK"

// AppFs is the filesystem manifests and config files are read from.
var AppFs = afero.NewOsFs()

// SetFs replaces AppFs and returns a function restoring the previous one.
func SetFs(newFs afero.Fs) func() {
	oldFs := AppFs
	AppFs = newFs
	return func() {
		AppFs = oldFs
	}
}

// newRootCmd builds the command tree. Every call gets its own viper instance so that
// tests do not share flag or config state.
func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "updock",
		Short: "Check container image tags for updates",
		Long: `updock checks whether newer tags exist for the container images used in
Dockerfiles and Docker Compose files.

A version pattern describes the tags of an image, e.g. "<!>.<>-alpine". Each <> is a
numeric component; the component marked <!> is the breaking one, so an update that
changes it is reported as breaking and every other update as compatible.

Exit codes: 0 no update, 1 compatible update, 2 breaking update, 10 and above errors.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(v)
		},
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &exitcodes.ExitCodeError{
					Code: exitcodes.ExitMissingRequiredFlag,
					Err:  errors.New("a subcommand is required"),
				}
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (default is $HOME/.updock.yaml)")
	flags.String("log-level", "info", "set log level (debug, info, warn, error)")
	flags.Bool("debug", false, "enable debug logging")
	flags.Int("page-size", registry.DefaultPageSize, "number of tags requested per registry page")
	flags.Int("max-tags", 0, "stop searching an image after this many tags (0 means no limit)")
	flags.Duration("timeout", registry.DefaultTimeout, "timeout of a single registry request")
	flags.Int("retries", registry.DefaultRetries, "retries of a failed registry request")
	flags.String("registry-file", "", "YAML file describing registry endpoints")
	flags.String("registry-token-domain", image.DefaultRegistry, "registry domain that receives UPDOCK_REGISTRY_TOKEN")
	flags.Bool("log-timestamps", false, "include timestamps in JSON logs")
	cobra.CheckErr(v.BindPFlags(flags))

	cmd.AddCommand(
		newFetchCmd(v),
		newCheckCmd(v),
		newCheckComposeCmd(v),
		newCheckImageCmd(v),
	)
	return cmd
}

// initConfig reads the config file and environment, then sets up logging.
func initConfig(v *viper.Viper) error {
	v.SetFs(AppFs)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfgFile := v.GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(".updock")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return &exitcodes.ExitCodeError{
				Code: exitcodes.ExitInputConfigurationError,
				Err:  fmt.Errorf("read config: %w", err),
			}
		}
	}

	level := log.LevelInfo
	if v.GetBool("debug") {
		level = log.LevelDebug
	} else if levelStr := v.GetString("log-level"); levelStr != "" {
		parsed, err := log.ParseLevel(levelStr)
		if err != nil {
			log.Warnf("Invalid log level specified: '%s'. Using default: %s. Error: %v", levelStr, level, err)
		} else {
			level = parsed
		}
	}
	log.SetLevel(level)
	log.SetTimestamps(v.GetBool("log-timestamps"))
	log.Debug("Configuration loaded", "config", v.ConfigFileUsed(), "level", level.String())
	return nil
}

// newRegistryClient builds a registry client from the registry file, flags and environment.
// The bearer token comes from UPDOCK_REGISTRY_TOKEN and is only sent to the registry named by
// --registry-token-domain.
func newRegistryClient(v *viper.Viper) (*registry.Client, error) {
	config := registry.DefaultConfig()
	if path := v.GetString("registry-file"); path != "" {
		loaded, err := registry.LoadConfig(AppFs, path)
		if err != nil {
			return nil, &exitcodes.ExitCodeError{Code: exitcodes.ExitInputConfigurationError, Err: err}
		}
		log.Info("Loaded registry endpoints", "path", path, "endpoints", len(loaded.Endpoints))
		config = config.Merge(loaded)
	}

	return registry.NewClient(config,
		registry.WithTimeout(v.GetDuration("timeout")),
		registry.WithPageSize(v.GetInt("page-size")),
		registry.WithRetries(v.GetInt("retries")),
		registry.WithToken(v.GetString("registry-token-domain"), v.GetString("registry-token")),
	), nil
}
