package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/searchfs/searchfs/internal/errors"
	"github.com/searchfs/searchfs/internal/store"
)

var (
	modTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	fileEntry = store.Entry{
		Path: "/data/report.pdf", Parent: "/data", Name: "report.pdf",
		Type: store.TypeFile, Size: 1536, Created: modTime, Modified: modTime,
	}
	dirEntry = store.Entry{
		Path: "/data/img", Parent: "/data", Name: "img",
		Type: store.TypeDirectory, Created: modTime, Modified: modTime,
	}
)

func writeAll(t *testing.T, opts EntryOptions, entries ...store.Entry) string {
	t.Helper()
	buf := &bytes.Buffer{}
	w := NewEntryWriter(buf, opts)
	for _, e := range entries {
		require.NoError(t, w.Write(e))
	}
	require.NoError(t, w.Flush())
	assert.Equal(t, int64(len(entries)), w.Count())
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatPath},
		{"path", FormatPath},
		{"LONG", FormatLong},
		{" json ", FormatJSON},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("xml")
	require.Error(t, err)
	assert.True(t, serrors.HasCode(err, serrors.ErrCodeInvalidInput))
}

func TestEntryWriter_Path(t *testing.T) {
	out := writeAll(t, EntryOptions{}, fileEntry, dirEntry)

	assert.Equal(t, "/data/report.pdf\n/data/img\n", out)
}

func TestEntryWriter_NullSeparator(t *testing.T) {
	// Given: NUL separated output
	out := writeAll(t, EntryOptions{NullSeparator: true}, fileEntry, dirEntry)

	// Then: records end with NUL and contain no newline
	assert.Equal(t, "/data/report.pdf\x00/data/img\x00", out)
}

func TestEntryWriter_Long(t *testing.T) {
	local := modTime.Local().Format(LongTimeLayout)

	tests := []struct {
		name  string
		human bool
		entry store.Entry
		want  string
	}{
		{"file bytes", false, fileEntry, "f       1536 " + local + " /data/report.pdf\n"},
		{"file human", true, fileEntry, "f    1.5 KiB " + local + " /data/report.pdf\n"},
		{"directory has no size", true, dirEntry, "d          - " + local + " /data/img\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := writeAll(t, EntryOptions{Format: FormatLong, Human: tt.human}, tt.entry)

			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEntryWriter_JSON(t *testing.T) {
	// Given: JSON output of a file and a directory
	out := writeAll(t, EntryOptions{Format: FormatJSON}, fileEntry, dirEntry)

	// Then: one object per line, size omitted for the directory
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)

	var file map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &file))
	assert.Equal(t, "/data/report.pdf", file["path"])
	assert.Equal(t, "file", file["type"])
	assert.EqualValues(t, 1536, file["size"])
	assert.Equal(t, "2026-03-01T12:00:00Z", file["modified"])

	var dir map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &dir))
	assert.Equal(t, "directory", dir["type"])
	assert.NotContains(t, dir, "size")
}
