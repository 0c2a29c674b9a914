package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStatus(now time.Time) StatusInfo {
	return StatusInfo{
		Path:          "/home/u/.searchfs/searchfs.db",
		SizeBytes:     2048,
		SchemaVersion: "1",
		BuildID:       "b-1",
		BuiltAt:       now.Add(-2 * time.Hour),
		BuildDuration: 90 * time.Second,
		Version:       "1.0.0",
		Roots:         []string{"/home/u", "/srv"},
		Entries:       12345,
		Files:         12000,
		Directories:   345,
		Skipped:       7,
	}
}

func TestStatusRenderer_Render(t *testing.T) {
	// Given: a renderer with a fixed clock
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)
	r.now = func() time.Time { return now }

	// When: rendering a status
	require.NoError(t, r.Render(sampleStatus(now)))

	// Then: every field is shown in human form
	out := buf.String()
	assert.Contains(t, out, "Index: /home/u/.searchfs/searchfs.db")
	assert.Contains(t, out, "12,345 (12,000 files, 345 directories)")
	assert.Contains(t, out, "Skipped:      7")
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "/home/u, /srv")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "1m 30s")
	assert.Contains(t, out, "Schema:       v1")
	assert.Contains(t, out, "searchfs 1.0.0")
	assert.NotContains(t, out, "Integrity")
	assert.NotContains(t, out, "\x1b[")
}

func TestStatusRenderer_Render_Integrity(t *testing.T) {
	tests := []struct {
		name     string
		problems []string
		want     []string
	}{
		{"clean", nil, []string{"Integrity:    ok"}},
		{"problems", []string{"row 3 missing", "page 9 unused"}, []string{"2 problems", "- row 3 missing", "- page 9 unused"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			r := NewStatusRenderer(buf, true)
			info := sampleStatus(time.Now())
			info.Checked = true
			info.Problems = tt.problems

			require.NoError(t, r.Render(info))

			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestStatusRenderer_RenderJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	require.NoError(t, r.RenderJSON(sampleStatus(time.Now())))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "/home/u/.searchfs/searchfs.db", got["path"])
	assert.EqualValues(t, 12345, got["entries"])
	assert.EqualValues(t, 7, got["skipped"])
	assert.Equal(t, []any{"/home/u", "/srv"}, got["roots"])
	assert.NotContains(t, got, "problems")
}
