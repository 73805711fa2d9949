package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"time":"2026-01-02T10:00:00Z","level":"INFO","msg":"search started","query":"voice"}
{"time":"2026-01-02T10:00:01Z","level":"ERROR","msg":"search failed","error":"boom"}
{"time":"2026-01-02T10:00:02Z","level":"INFO","msg":"search completed","result_count":2}
`

func writeServerLog(t *testing.T, env *testEnv) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(env.logDir, 0o755))
	path := filepath.Join(env.logDir, "server.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))
	return path
}

func TestLogsCmd(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{
			name: "tail all",
			args: []string{"logs", "--no-color"},
			want: []string{"search started", "search failed", "search completed"},
		},
		{
			name:    "last line",
			args:    []string{"logs", "-n", "1", "--no-color"},
			want:    []string{"search completed", "result_count=2"},
			notWant: []string{"search started"},
		},
		{
			name:    "level filter",
			args:    []string{"logs", "--level", "error", "--no-color"},
			want:    []string{"ERROR", "error=boom"},
			notWant: []string{"search started"},
		},
		{
			name:    "pattern filter",
			args:    []string{"logs", "--filter", "complet", "--no-color"},
			want:    []string{"search completed"},
			notWant: []string{"search failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a server log with three entries
			env := newTestEnv(t)
			path := writeServerLog(t, env)

			// When: viewing logs
			stdout, stderr, err := env.run(t, tt.args...)

			// Then: the matching entries are formatted
			require.NoError(t, err)
			assert.Contains(t, stderr, path)
			for _, w := range tt.want {
				assert.Contains(t, stdout, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, stdout, nw)
			}
		})
	}
}

func TestLogsCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing explicit file", []string{"logs", "--file", "/nonexistent/server.log"}, "log file not found"},
		{"bad pattern", []string{"logs", "--filter", "("}, "invalid filter pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			writeServerLog(t, env)

			_, _, err := env.run(t, tt.args...)

			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}
