package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// StatusInfo describes a published index.
type StatusInfo struct {
	Path          string        `json:"path"`
	SizeBytes     int64         `json:"size_bytes"`
	SchemaVersion string        `json:"schema_version"`
	BuildID       string        `json:"build_id"`
	BuiltAt       time.Time     `json:"built_at"`
	BuildDuration time.Duration `json:"build_duration_ns"`
	Version       string        `json:"version,omitempty"`
	Roots         []string      `json:"roots"`
	Entries       int64         `json:"entries"`
	Files         int64         `json:"files"`
	Directories   int64         `json:"directories"`
	Skipped       int64         `json:"skipped"`

	// Checked is set when an integrity check ran; Problems holds its findings.
	Checked  bool     `json:"checked"`
	Problems []string `json:"problems,omitempty"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
	now    func() time.Time
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor || DetectNoColor()),
		now:    time.Now,
	}
}

// Render writes a human-readable summary.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index: "+info.Path))

	_, _ = fmt.Fprintf(r.out, "  Entries:      %s (%s files, %s directories)\n",
		humanize.Comma(info.Entries), humanize.Comma(info.Files), humanize.Comma(info.Directories))
	if info.Skipped > 0 {
		_, _ = fmt.Fprintf(r.out, "  Skipped:      %s\n", r.styles.Warning.Render(humanize.Comma(info.Skipped)))
	}
	_, _ = fmt.Fprintf(r.out, "  Size:         %s\n", humanize.IBytes(uint64(max(info.SizeBytes, 0))))
	if len(info.Roots) > 0 {
		_, _ = fmt.Fprintf(r.out, "  Roots:        %s\n", strings.Join(info.Roots, ", "))
	}
	_, _ = fmt.Fprintln(r.out)

	if !info.BuiltAt.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Built:        %s (%s)\n",
			info.BuiltAt.Local().Format("2006-01-02 15:04:05"), humanize.RelTime(info.BuiltAt, r.now(), "ago", "from now"))
	}
	if info.BuildDuration > 0 {
		_, _ = fmt.Fprintf(r.out, "  Build time:   %s\n", formatDuration(info.BuildDuration))
	}
	if info.BuildID != "" {
		_, _ = fmt.Fprintf(r.out, "  Build ID:     %s\n", info.BuildID)
	}
	_, _ = fmt.Fprintf(r.out, "  Schema:       v%s\n", info.SchemaVersion)
	if info.Version != "" {
		_, _ = fmt.Fprintf(r.out, "  Built by:     searchfs %s\n", info.Version)
	}

	if info.Checked {
		_, _ = fmt.Fprintln(r.out)
		if len(info.Problems) == 0 {
			_, _ = fmt.Fprintf(r.out, "  Integrity:    %s\n", r.styles.Success.Render("ok"))
		} else {
			_, _ = fmt.Fprintf(r.out, "  Integrity:    %s\n",
				r.styles.Error.Render(fmt.Sprintf("%d problems", len(info.Problems))))
			for _, p := range info.Problems {
				_, _ = fmt.Fprintf(r.out, "    - %s\n", p)
			}
		}
	}

	return nil
}

// RenderJSON writes info as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}
