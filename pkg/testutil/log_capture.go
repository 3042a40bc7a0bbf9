// Package testutil provides helpers shared by updock tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lucas-albers-lz4/updock/pkg/log"
)

// CaptureLogOutput redirects log output during testFunc and returns what was written.
// The previous output and level are restored afterwards.
//
//	output, err := testutil.CaptureLogOutput(log.LevelDebug, func() {
//	    log.Info("This will be captured")
//	})
//	require.NoError(t, err)
//	assert.Contains(t, output, "This will be captured")
func CaptureLogOutput(logLevel log.Level, testFunc func()) (string, error) {
	originalLevel := log.CurrentLevel()

	var logBuf bytes.Buffer
	restoreLog := log.SetOutput(&logBuf)
	defer restoreLog()

	log.SetLevel(logLevel)
	defer log.SetLevel(originalLevel)

	var panicErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = fmt.Errorf("panic during log capture: %v", r)
			}
		}()
		testFunc()
	}()

	return logBuf.String(), panicErr
}

// CaptureJSONLogs captures log output like CaptureLogOutput and parses every line as a JSON record.
// The logger must be in its default JSON format.
func CaptureJSONLogs(logLevel log.Level, testFunc func()) (logOutput string, parsedLogs []map[string]any, err error) {
	logOutput, err = CaptureLogOutput(logLevel, testFunc)
	if err != nil {
		return logOutput, nil, err
	}

	for i, line := range strings.Split(strings.TrimSpace(logOutput), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry map[string]any
		if unmarshalErr := json.Unmarshal([]byte(line), &entry); unmarshalErr != nil {
			return logOutput, parsedLogs, fmt.Errorf("failed to unmarshal log line %d as JSON: %w\nLine content: %s", i+1, unmarshalErr, line)
		}
		parsedLogs = append(parsedLogs, entry)
	}
	return logOutput, parsedLogs, nil
}

// AssertLogContainsJSON checks that some captured record contains all key-value pairs of expectedLog.
func AssertLogContainsJSON(t *testing.T, logs []map[string]any, expectedLog map[string]any) {
	t.Helper()
	for _, entry := range logs {
		if containsAll(entry, expectedLog) {
			return
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	for _, entry := range logs {
		_ = enc.Encode(entry) //nolint:errcheck // best-effort debug output
	}
	expected, _ := json.MarshalIndent(expectedLog, "", "  ") //nolint:errcheck // best-effort debug output
	assert.Fail(t, "Expected log entry not found",
		"Expected log containing:\n%s\n\nActual captured logs:\n%s", string(expected), buf.String())
}

// containsAll compares top-level fields; JSON numbers are float64, so ints in expected are converted.
func containsAll(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return false
		}
		if f, isFloat := got.(float64); isFloat {
			switch w := want.(type) {
			case int:
				if f != float64(w) {
					return false
				}
				continue
			case int64:
				if f != float64(w) {
					return false
				}
				continue
			}
		}
		if got != want {
			return false
		}
	}
	return true
}
