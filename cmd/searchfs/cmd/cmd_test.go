package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolate points HOME and the config directory at a fresh temp dir and
// clears SEARCHFS_* overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, key := range []string{"SEARCHFS_DATABASE", "SEARCHFS_BATCH_SIZE", "SEARCHFS_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	return home
}

// execute runs the root command with args and returns everything written.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, strings.NewReader(""), args...)
}

func executeWithInput(t *testing.T, in io.Reader, args ...string) (string, error) {
	t.Helper()

	cmd, opts := newRootCmd()
	t.Cleanup(opts.close)

	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(in)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// makeTree creates files (with the given sizes) and directories (trailing /)
// below root.
func makeTree(t *testing.T, root string, files map[string]int) {
	t.Helper()
	for rel, size := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			require.NoError(t, os.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0o644))
	}
}

// indexedFixture builds an index of a small tree and returns the tree root
// and the index path.
func indexedFixture(t *testing.T) (string, string) {
	t.Helper()
	isolate(t)

	root := t.TempDir()
	makeTree(t, root, map[string]int{
		"docs/report.pdf": 2048,
		"docs/notes.txt":  10,
		"img/img_001.png": 100,
		"img/img_x.png":   100,
		"img/sub/":        0,
	})
	db := filepath.Join(t.TempDir(), "files.db")

	_, err := execute(t, "index", "--no-tui", "-o", db, root)
	require.NoError(t, err)
	return root, db
}

// lines splits output on sep, dropping the trailing terminator.
func lines(out string, sep string) []string {
	out = strings.TrimSuffix(out, sep)
	if out == "" {
		return nil
	}
	return strings.Split(out, sep)
}
