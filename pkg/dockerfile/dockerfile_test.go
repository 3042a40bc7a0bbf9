package dockerfile

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := `# syntax=docker/dockerfile:1
# updock pattern: "<!>.<>"
FROM ubuntu:18.04 AS base

FROM golang:1.22 AS ignored

# build stage
# updock pattern: "<!>.<>-alpine"
from --platform=linux/amd64 node:16.3-alpine as build
RUN echo done

# updock pattern: "<>.<>.<>"
FROM	ghcr.io/org/tool:1.2.3
`
	got, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	want := []Statement{
		{Line: 3, Image: "ubuntu:18.04", Pattern: "<!>.<>", Stage: "base"},
		{Line: 9, Image: "node:16.3-alpine", Pattern: "<!>.<>-alpine", Stage: "build", Platform: "linux/amd64"},
		{Line: 13, Image: "ghcr.io/org/tool:1.2.3", Pattern: "<>.<>.<>"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseWithoutAnnotations(t *testing.T) {
	got, err := Parse(strings.NewReader("FROM ubuntu:18.04\nRUN true\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "annotation followed by another instruction",
			input:    "# updock pattern: \"<>\"\nRUN true\nFROM ubuntu:18.04\n",
			wantLine: 1,
			wantMsg:  "not followed by a FROM",
		},
		{
			name:     "annotation at end of file",
			input:    "FROM ubuntu:18.04\n# updock pattern: \"<>\"\n",
			wantLine: 2,
			wantMsg:  "not followed by a FROM",
		},
		{
			name:     "two annotations in a row",
			input:    "# updock pattern: \"<>\"\n# updock pattern: \"<!>\"\nFROM ubuntu:18.04\n",
			wantLine: 1,
			wantMsg:  "not followed by a FROM",
		},
		{
			name:     "unquoted pattern",
			input:    "# updock pattern: <!>.<>\nFROM ubuntu:18.04\n",
			wantLine: 1,
			wantMsg:  "quoted string",
		},
		{
			name:     "FROM without image",
			input:    "# updock pattern: \"<>\"\nFROM\n",
			wantLine: 2,
			wantMsg:  "no image",
		},
		{
			name:     "FROM with extra arguments",
			input:    "# updock pattern: \"<>\"\nFROM ubuntu:18.04 extra\n",
			wantLine: 2,
			wantMsg:  "unexpected FROM arguments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tt.wantLine, parseErr.Line)
			assert.Contains(t, parseErr.Reason, tt.wantMsg)
		})
	}
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/Dockerfile", []byte("# updock pattern: \"<!>.<>\"\nFROM ubuntu:18.04\n"), 0o644))

	got, err := Load(fs, "/app/Dockerfile")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ubuntu:18.04", got[0].Image)

	_, err = Load(fs, "/missing/Dockerfile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/missing/Dockerfile")

	require.NoError(t, afero.WriteFile(fs, "/bad/Dockerfile", []byte("# updock pattern: \"<>\"\n"), 0o644))
	_, err = Load(fs, "/bad/Dockerfile")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		comment     string
		wantPattern string
		wantOK      bool
		wantErr     bool
	}{
		{comment: `# updock pattern: "<!>.<>"`, wantPattern: "<!>.<>", wantOK: true},
		{comment: `updock pattern:"v<>"`, wantPattern: "v<>", wantOK: true},
		{comment: `#   updock pattern:   "<>-alpine"  `, wantPattern: "<>-alpine", wantOK: true},
		{comment: `# just a comment`},
		{comment: `# updock pattern: ""`, wantOK: true, wantErr: true},
		{comment: `# updock pattern: <>`, wantOK: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.comment, func(t *testing.T) {
			got, ok, err := ParseAnnotation(tt.comment)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPattern, got)
		})
	}
}
