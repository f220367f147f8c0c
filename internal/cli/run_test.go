package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/surge/internal/loadgen/config"
	"github.com/wesleyorama2/surge/internal/loadgen/report"
)

func parseConfig(t *testing.T, args ...string) (*config.TestConfiguration, error) {
	t.Helper()

	cmd := newRunCmd()
	require.NoError(t, cmd.ParseFlags(args))

	v, err := newViper(cmd.Flags())
	require.NoError(t, err)

	return buildConfig(v, cmd.Flags())
}

func TestBuildConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(t, "--url", "http://localhost:8080")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.URL)
	assert.Equal(t, config.MethodGet, cfg.Method)
	assert.Equal(t, 1, cfg.Users)
	assert.Equal(t, 1, cfg.RampUp)
	assert.Equal(t, 1, cfg.LoopCount)
	assert.Equal(t, 1, cfg.RequestsPerSecond)
	assert.Equal(t, config.PacingDelay, cfg.Pacing)
	assert.Equal(t, "reports", cfg.OutputDir)
	assert.Empty(t, cfg.Headers)
	assert.Empty(t, cfg.Formats)
	assert.NoError(t, cfg.Validate())
}

func TestBuildConfig_AllFlags(t *testing.T) {
	cfg, err := parseConfig(t,
		"--url", "http://localhost:8080/api",
		"-X", "post",
		"-H", "Content-Type: application/json",
		"-H", "X-List: a, b",
		"-d", `{"a":1}`,
		"--auth-type", "bearer",
		"--auth-token", "abc",
		"-Q", "page=2",
		"-u", "4",
		"-r", "2",
		"-l", "3",
		"--rps", "5",
		"-t", "2s",
		"--pacing", "rate",
		"-o", "out",
		"--format", "yaml,XLSX",
	)
	require.NoError(t, err)

	assert.Equal(t, config.MethodPost, cfg.Method)
	assert.Equal(t, []config.Header{
		{Key: "Content-Type", Value: "application/json"},
		{Key: "X-List", Value: "a, b"},
	}, cfg.Headers)
	assert.Equal(t, `{"a":1}`, cfg.Body)
	assert.Equal(t, "Bearer abc", cfg.Authorization)
	assert.Equal(t, []config.Param{{Key: "page", Value: "2"}}, cfg.QueryParams)
	assert.Equal(t, 4, cfg.Users)
	assert.Equal(t, 2, cfg.RampUp)
	assert.Equal(t, 3, cfg.LoopCount)
	assert.Equal(t, 5, cfg.RequestsPerSecond)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, config.PacingRate, cfg.Pacing)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, []string{"yaml", "xlsx"}, cfg.Formats)
}

func TestBuildConfig_Environment(t *testing.T) {
	t.Setenv("SURGE_USERS", "7")
	t.Setenv("SURGE_RAMP_UP", "3")
	t.Setenv("SURGE_FORMAT", "yaml,xlsx")

	cfg, err := parseConfig(t, "--url", "http://localhost", "--users", "9")
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Users, "flag should win over environment")
	assert.Equal(t, 3, cfg.RampUp)
	assert.Equal(t, []string{"yaml", "xlsx"}, cfg.Formats)
}

func TestBuildConfig_Files(t *testing.T) {
	dir := t.TempDir()
	headersFile := filepath.Join(dir, "headers.txt")
	bodyFile := filepath.Join(dir, "body.txt")
	require.NoError(t, os.WriteFile(headersFile, []byte("Accept: */*\nbroken line\nX-Trace: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(bodyFile, []byte("aGVsbG8="), 0o644))

	cfg, err := parseConfig(t,
		"--url", "http://localhost",
		"--headers-file", headersFile,
		"-H", "X-Extra: yes",
		"--body-file", bodyFile,
	)
	require.NoError(t, err)

	assert.Equal(t, []config.Header{
		{Key: "Accept", Value: "*/*"},
		{Key: "X-Trace", Value: "1"},
		{Key: "X-Extra", Value: "yes"},
	}, cfg.Headers)
	assert.Equal(t, "aGVsbG8=", cfg.Body)
}

func TestBuildConfig_Errors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.txt")

	tests := []struct {
		name string
		args []string
	}{
		{"bad header", []string{"-H", "no colon here"}},
		{"bad query", []string{"-Q", "novalue"}},
		{"missing body file", []string{"--body-file", missing}},
		{"missing headers file", []string{"--headers-file", missing}},
		{"type without token", []string{"--auth-type", "bearer"}},
		{"unknown auth type", []string{"--auth-type", "digest", "--auth-token", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--url", "http://localhost"}, tt.args...)
			_, err := parseConfig(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestBuildConfig_RawAuthorization(t *testing.T) {
	cfg, err := parseConfig(t, "--url", "http://localhost", "--authorization", "Token xyz")
	require.NoError(t, err)
	assert.Equal(t, "Token xyz", cfg.Authorization)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"yaml", "xlsx"}, splitList([]string{"yaml, xlsx"}))
	assert.Equal(t, []string{"yaml", "xlsx"}, splitList([]string{"YAML", "", "xlsx"}))
	assert.Nil(t, splitList(nil))
}

func TestRunCommand_EndToEnd(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	outDir := filepath.Join(t.TempDir(), "reports")

	cmd := newRunCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{
		"--url", server.URL,
		"--users", "2",
		"--ramp-up", "1",
		"--loops", "1",
		"--rps", "2",
		"--output", outDir,
		"--format", "yaml",
		"--status-interval", "0",
		"--no-color",
	})

	require.NoError(t, cmd.Execute())

	assert.Equal(t, int64(4), hits.Load())

	text := out.String()
	assert.Contains(t, text, "Starting test with 2 users...")
	assert.Contains(t, text, "Total requests: 4")
	assert.Contains(t, text, "Test completed. Reports generated in: "+outDir)
	assert.Contains(t, text, "Total Reqs:    4")
	assert.Contains(t, text, "Successful:    4")
	assert.Contains(t, text, "Test finished: 4 results | min ")

	for _, name := range []string{report.SummaryFile, report.DetailedFile, report.SummaryYAMLFile} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestRunCommand_InvalidConfiguration(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "reports")

	cmd := newRunCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{
		"--url", "http://localhost:1",
		"--rps", "0",
		"--output", outDir,
		"--quiet",
	})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.NoDirExists(t, outDir)
}

func TestRunCommand_MutuallyExclusiveBody(t *testing.T) {
	cmd := newRunCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--url", "http://localhost", "--body", "x", "--body-file", "y"})

	assert.Error(t, cmd.Execute())
}

