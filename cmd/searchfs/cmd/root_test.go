package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"index", "search", "info", "config", "version"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCmd_VersionFlag(t *testing.T) {
	isolate(t)

	out, err := execute(t, "--version")

	require.NoError(t, err)
	assert.Contains(t, out, "searchfs version")
}

func TestRootCmd_LogsToFile(t *testing.T) {
	// Given: an isolated home
	home := isolate(t)

	// When: running a command with --debug
	_, err := execute(t, "--debug", "config", "path")

	// Then: the JSON log file is created under ~/.searchfs/logs
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(home, ".searchfs", "logs", "searchfs.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"debug_logging_enabled"`)
}

func TestRootCmd_DatabasePath(t *testing.T) {
	home := isolate(t)

	opts := &rootOptions{}
	path, err := opts.databasePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".searchfs", "searchfs.db"), path)

	opts = &rootOptions{database: "~/x.db"}
	path, err = opts.databasePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x.db"), path)
}
