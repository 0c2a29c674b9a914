package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/searchfs/searchfs/internal/errors"
	"github.com/searchfs/searchfs/internal/search"
	"github.com/searchfs/searchfs/internal/store"
)

func TestSearchCmd_Filters(t *testing.T) {
	root, db := indexedFixture(t)
	p := func(rel string) string { return filepath.Join(root, filepath.FromSlash(rel)) }

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"glob", []string{"-n", "*.txt"}, []string{p("docs/notes.txt")}},
		{"ignore case", []string{"-n", "*.PDF", "-i"}, []string{p("docs/report.pdf")}},
		{"regex", []string{"-r", `^img_\d+$`}, nil},
		{"regex with extension", []string{"-r", `^img_\d+\.png$`}, []string{p("img/img_001.png")}},
		{"directories", []string{"-t", "d"}, []string{p("docs"), p("img"), p("img/sub")}},
		{"strict scope", []string{"-t", "d", "-s", root}, []string{p("docs"), p("img")}},
		{"subtree scope", []string{"-t", "f", p("img")}, []string{p("img/img_001.png"), p("img/img_x.png")}},
		{"size at least", []string{"--size", "+2K"}, []string{p("docs/report.pdf")}},
		{"unsigned size means at least", []string{"--size", "100", "-t", "f"}, []string{p("docs/report.pdf"), p("img/img_001.png"), p("img/img_x.png")}},
		{"size at most", []string{"--size", "-10", "-t", "f"}, []string{p("docs/notes.txt")}},
		{"newer", []string{"--newer", "1h", "-n", "*.pdf"}, []string{p("docs/report.pdf")}},
		{"older", []string{"--older", "1h", "-n", "*.pdf"}, nil},
		{"limit", []string{"-t", "f", "--limit", "1"}, []string{p("docs/notes.txt")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"search", "--db", db}, tt.args...)

			out, err := execute(t, args...)

			require.NoError(t, err)
			assert.Equal(t, tt.want, lines(out, "\n"))
		})
	}
}

func TestSearchCmd_NullSeparator(t *testing.T) {
	root, db := indexedFixture(t)

	out, err := execute(t, "search", "--db", db, "-0", "-n", "img_*")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "img", "img_001.png")+"\x00"+filepath.Join(root, "img", "img_x.png")+"\x00", out)
}

func TestSearchCmd_JSONFormat(t *testing.T) {
	root, db := indexedFixture(t)

	out, err := execute(t, "search", "--db", db, "--format", "json", "-n", "report.pdf")

	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, filepath.Join(root, "docs", "report.pdf"), rec["path"])
	assert.Equal(t, "file", rec["type"])
	assert.EqualValues(t, 2048, rec["size"])
}

func TestSearchCmd_LongHumanFormat(t *testing.T) {
	_, db := indexedFixture(t)

	out, err := execute(t, "search", "--db", db, "--format", "long", "-H", "-n", "report.pdf")

	require.NoError(t, err)
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "report.pdf")
}

func TestSearchCmd_FormatFromConfig(t *testing.T) {
	_, db := indexedFixture(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("search:\n  format: json\n"), 0o644))

	out, err := execute(t, "--config", cfgPath, "search", "--db", db, "-n", "notes.txt")

	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)), out)
}

func TestSearchCmd_Count(t *testing.T) {
	_, db := indexedFixture(t)

	out, err := execute(t, "search", "--db", db, "--count", "-t", "f")

	require.NoError(t, err)
	assert.Equal(t, "4\n", out)
}

func TestSearchCmd_Errors(t *testing.T) {
	root, db := indexedFixture(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"no criteria", []string{"--db", db}, serrors.ErrCodeFiltersEmpty},
		{"directory alone is not a criterion", []string{"--db", db, root}, serrors.ErrCodeFiltersEmpty},
		{"bad size", []string{"--db", db, "--size", "+10X"}, serrors.ErrCodeInvalidSize},
		{"bad regex", []string{"--db", db, "-r", "(unclosed"}, serrors.ErrCodeInvalidRegex},
		{"bad type", []string{"--db", db, "-t", "x"}, serrors.ErrCodeInvalidInput},
		{"bad time", []string{"--db", db, "--newer", "yesterday"}, serrors.ErrCodeInvalidInput},
		{"bad format", []string{"--db", db, "-n", "*", "--format", "xml"}, serrors.ErrCodeInvalidInput},
		{"missing index", []string{"--db", filepath.Join(root, "none.db"), "-n", "*"}, serrors.ErrCodeFileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"search"}, tt.args...)...)

			require.Error(t, err)
			assert.True(t, serrors.HasCode(err, tt.code), "got %v", err)
			assert.Empty(t, out)
		})
	}
}

func TestBuildFilters(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	f, err := buildFilters([]string{"/srv"}, searchOptions{
		name:         "*.go",
		entryType:    "f",
		size:         "+1K",
		strict:       true,
		newer:        "7d",
		createdOlder: "36h",
		limit:        5,
	}, now)

	require.NoError(t, err)
	assert.Equal(t, "*.go", f.NamePattern)
	assert.Equal(t, []string{"/srv"}, f.Directories)
	assert.True(t, f.StrictDirectory)
	require.NotNil(t, f.Type)
	assert.Equal(t, store.TypeFile, *f.Type)
	assert.Equal(t, &search.SizeRange{Op: search.SizeAtLeast, Bytes: 1024}, f.Size)
	assert.Equal(t, now.AddDate(0, 0, -7), f.ModifiedAfter)
	assert.Equal(t, now.Add(-36*time.Hour), f.CreatedBefore)
	assert.True(t, f.ModifiedBefore.IsZero())
	assert.Equal(t, 5, f.Limit)
}

func TestParseTimeBound(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"90m", now.Add(-90 * time.Minute)},
		{"36h", now.Add(-36 * time.Hour)},
		{"0d", now},
		{"7d", now.AddDate(0, 0, -7)},
		{"2026-01-02", time.Date(2026, 1, 2, 0, 0, 0, 0, time.Local)},
		{"2026-01-02T15:04:05", time.Date(2026, 1, 2, 15, 4, 5, 0, time.Local)},
		{"2026-01-02T15:04:05Z", time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTimeBound(tt.in, now)

			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}

	for _, bad := range []string{"", "-5m", "soon", "7 days", "2026-13-01"} {
		_, err := parseTimeBound(bad, now)
		assert.Error(t, err, bad)
	}
}
