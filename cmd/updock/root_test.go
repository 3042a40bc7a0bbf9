package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucas-albers-lz4/updock/pkg/exitcodes"
	"github.com/lucas-albers-lz4/updock/pkg/testutil"
)

const ubuntuDockerfile = `# updock pattern: "<!>.<>"
FROM ubuntu:18.04 AS build

FROM scratch
`

// executeCommand runs root with args and returns everything written to its out and err streams.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// setupWorkspace installs an in-memory filesystem holding a registry file that points
// docker.io at a local tag server.
func setupWorkspace(t *testing.T) (afero.Fs, *testutil.TagServer) {
	t.Helper()
	t.Cleanup(testutil.SuppressLogging())

	fs := afero.NewMemMapFs()
	t.Cleanup(SetFs(fs))

	server := testutil.NewTagServer(t)
	registryFile := "endpoints:\n  - domain: docker.io\n    kind: dockerhub\n    url: " + server.URL + "\n"
	require.NoError(t, afero.WriteFile(fs, "/registry.yaml", []byte(registryFile), 0o644))
	return fs, server
}

func requireExitCode(t *testing.T, err error, want int) {
	t.Helper()
	require.Error(t, err)
	code, ok := exitcodes.IsExitCodeError(err)
	require.True(t, ok, "expected an exit code error, got %v", err)
	assert.Equal(t, want, code, "error: %v", err)
}

func TestRootCommand_NoSubcommand(t *testing.T) {
	t.Cleanup(SetFs(afero.NewMemMapFs()))
	_, err := executeCommand(newRootCmd())
	requireExitCode(t, err, exitcodes.ExitMissingRequiredFlag)
	assert.Contains(t, err.Error(), "a subcommand is required")
}

func TestRootCommand_Help(t *testing.T) {
	t.Cleanup(SetFs(afero.NewMemMapFs()))
	output, err := executeCommand(newRootCmd(), "help")
	require.NoError(t, err)
	assert.Contains(t, output, "updock checks whether newer tags exist")
	for _, sub := range []string{"fetch", "check", "check-compose", "check-image"} {
		assert.Contains(t, output, sub)
	}
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	setupWorkspace(t)
	_, err := executeCommand(newRootCmd(), "check", "/Dockerfile", "--config", "/missing.yaml")
	requireExitCode(t, err, exitcodes.ExitInputConfigurationError)
}

func TestRootCommand_InvalidRegistryFile(t *testing.T) {
	fs, _ := setupWorkspace(t)
	require.NoError(t, afero.WriteFile(fs, "/Dockerfile", []byte(ubuntuDockerfile), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("endpoints:\n  - domain: docker.io\n    kind: ftp\n"), 0o644))

	_, err := executeCommand(newRootCmd(), "check", "/Dockerfile", "--registry-file", "/bad.yaml")
	requireExitCode(t, err, exitcodes.ExitInputConfigurationError)
	assert.Contains(t, err.Error(), "kind must be")
}

func TestFetch(t *testing.T) {
	_, server := setupWorkspace(t)
	server.SetTags("library/ubuntu", "latest", "20.04", "focal", "18.04", "bionic", "16.04")

	t.Run("all tags up to amount", func(t *testing.T) {
		output, err := executeCommand(newRootCmd(), "fetch", "ubuntu", "--amount", "3", "--registry-file", "/registry.yaml")
		require.NoError(t, err)
		assert.Equal(t, "Fetched 3 tags:\nlatest\n20.04\nfocal\n", output)
	})

	t.Run("filtered by pattern", func(t *testing.T) {
		output, err := executeCommand(newRootCmd(), "fetch", "ubuntu", "-p", "<!>.<>", "--amount", "5", "--registry-file", "/registry.yaml")
		require.NoError(t, err)
		assert.Equal(t, "Fetched 5 tags. Found 2 matching `<!>.<>`:\n20.04\n18.04\n", output)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := executeCommand(newRootCmd(), "fetch", "ubuntu", "-p", "<!", "--registry-file", "/registry.yaml")
		requireExitCode(t, err, exitcodes.ExitInvalidPattern)
	})

	t.Run("unknown repository", func(t *testing.T) {
		_, err := executeCommand(newRootCmd(), "fetch", "nope", "--registry-file", "/registry.yaml", "--retries", "0")
		requireExitCode(t, err, exitcodes.ExitRegistryError)
	})
}

func TestFetchPullsOnlyNeededPages(t *testing.T) {
	_, server := setupWorkspace(t)
	server.SetTags("library/ubuntu", "22.04", "20.04", "18.04", "16.04", "14.04")

	output, err := executeCommand(newRootCmd(), "fetch", "ubuntu", "--amount", "2", "--page-size", "2", "--registry-file", "/registry.yaml")
	require.NoError(t, err)
	assert.Equal(t, "Fetched 2 tags:\n22.04\n20.04\n", output)
	assert.Equal(t, 1, server.Requests("library/ubuntu"))
}

func TestCheck(t *testing.T) {
	fs, server := setupWorkspace(t)
	server.SetTags("library/ubuntu", "latest", "20.04", "18.10", "18.04", "16.04")
	require.NoError(t, afero.WriteFile(fs, "/app/Dockerfile", []byte(ubuntuDockerfile), 0o644))

	t.Run("text report", func(t *testing.T) {
		output, err := executeCommand(newRootCmd(), "check", "/app/Dockerfile", "--registry-file", "/registry.yaml")
		requireExitCode(t, err, exitcodes.ExitBreakingUpdate)
		assert.Contains(t, output, "Report for Dockerfile at `/app/Dockerfile`:")
		assert.Contains(t, output, "Compatible updates:")
		assert.Contains(t, output, "-> 18.10")
		assert.Contains(t, output, "Breaking updates:")
		assert.Contains(t, output, "-> 20.04")
	})

	t.Run("json report", func(t *testing.T) {
		output, err := executeCommand(newRootCmd(), "check", "/app/Dockerfile", "--json", "--registry-file", "/registry.yaml")
		requireExitCode(t, err, exitcodes.ExitBreakingUpdate)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal([]byte(output), &decoded))
		assert.Equal(t, "/app/Dockerfile", decoded["path"])
		assert.Len(t, decoded["breaking_updates"], 1)
		assert.Len(t, decoded["compatible_updates"], 1)
	})

	t.Run("current tag beyond max-tags", func(t *testing.T) {
		output, err := executeCommand(newRootCmd(), "check", "/app/Dockerfile", "--max-tags", "1", "--registry-file", "/registry.yaml")
		requireExitCode(t, err, exitcodes.ExitCheckFailed)
		assert.Contains(t, output, "Failures:")
	})
}

func TestCheckManifestErrors(t *testing.T) {
	fs, _ := setupWorkspace(t)
	require.NoError(t, afero.WriteFile(fs, "/bad/Dockerfile", []byte("# updock pattern: \"<!>.<>\"\nRUN true\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/bad/compose.yml", []byte("version: '3'\n"), 0o644))

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "missing Dockerfile", args: []string{"check", "/nope/Dockerfile"}, want: exitcodes.ExitManifestNotFound},
		{name: "dangling annotation", args: []string{"check", "/bad/Dockerfile"}, want: exitcodes.ExitManifestParsingError},
		{name: "missing compose file", args: []string{"check-compose", "/nope/compose.yml"}, want: exitcodes.ExitManifestNotFound},
		{name: "compose without services", args: []string{"check-compose", "/bad/compose.yml"}, want: exitcodes.ExitManifestParsingError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(newRootCmd(), append(tt.args, "--registry-file", "/registry.yaml")...)
			requireExitCode(t, err, tt.want)
		})
	}
}

func TestCheckCompose(t *testing.T) {
	fs, server := setupWorkspace(t)
	server.SetTags("library/ubuntu", "20.04", "18.04")
	server.SetTags("grafana/grafana", "7.1.0", "7.0.3", "6.7.4")
	require.NoError(t, afero.WriteFile(fs, "/updock.yaml", []byte("patterns:\n  ubuntu: \"<!>.<>\"\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/stack/compose.yml", []byte(`services:
  db:
    image: ubuntu:20.04
  dashboard:
    # updock pattern: "<!>.<>.<>"
    image: grafana/grafana:7.0.3
  cache:
    image: redis:6
`), 0o644))

	output, err := executeCommand(newRootCmd(), "check-compose", "/stack/compose.yml",
		"--config", "/updock.yaml", "--registry-file", "/registry.yaml")
	requireExitCode(t, err, exitcodes.ExitCompatibleUpdate)
	assert.Contains(t, output, "Report for Docker Compose file at `/stack/compose.yml`:")
	assert.Contains(t, output, "db: ubuntu:20.04")
	assert.Contains(t, output, "dashboard: grafana/grafana:7.0.3")
	assert.Contains(t, output, "-> 7.1.0")
	assert.NotContains(t, output, "redis")
}

func TestCheckImage(t *testing.T) {
	_, server := setupWorkspace(t)
	server.SetTags("library/ubuntu", "20.04", "18.10", "18.04")

	t.Run("compatible update", func(t *testing.T) {
		output, err := executeCommand(newRootCmd(), "check-image", "ubuntu:18.04", "--pattern", "<>.<>", "--registry-file", "/registry.yaml")
		requireExitCode(t, err, exitcodes.ExitCompatibleUpdate)
		assert.Contains(t, output, "-> 20.04")
	})

	t.Run("up to date", func(t *testing.T) {
		output, err := executeCommand(newRootCmd(), "check-image", "ubuntu:20.04", "--pattern", "<!>.<>", "--registry-file", "/registry.yaml")
		require.NoError(t, err)
		assert.Contains(t, output, "No updates:\n  ubuntu:20.04")
	})

	t.Run("missing pattern", func(t *testing.T) {
		_, err := executeCommand(newRootCmd(), "check-image", "ubuntu:18.04")
		requireExitCode(t, err, exitcodes.ExitMissingRequiredFlag)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := executeCommand(newRootCmd(), "check-image", "ubuntu:18.04", "--pattern", "<>>")
		requireExitCode(t, err, exitcodes.ExitInvalidPattern)
	})

	t.Run("tag does not follow pattern", func(t *testing.T) {
		output, err := executeCommand(newRootCmd(), "check-image", "ubuntu:bionic", "--pattern", "<!>.<>", "--registry-file", "/registry.yaml")
		requireExitCode(t, err, exitcodes.ExitCheckFailed)
		assert.Contains(t, output, "Failures:")
	})
}
